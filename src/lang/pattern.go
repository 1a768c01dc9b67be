package lang

import "strings"

// globMatch implements the limited glob syntax used by the sources
// assignment filter and process_file_template: "*" matches any run of
// characters within a path segment boundary is not enforced (these
// patterns match against whole relative paths, not single segments).
func globMatch(pattern, s string) (bool, error) {
	return matchGlob(pattern, s), nil
}

func matchGlob(pattern, s string) bool {
	if pattern == "" {
		return s == ""
	}
	if pattern[0] == '*' {
		rest := pattern[1:]
		if rest == "" {
			return true
		}
		for i := 0; i <= len(s); i++ {
			if matchGlob(rest, s[i:]) {
				return true
			}
		}
		return false
	}
	if s == "" {
		return false
	}
	if pattern[0] != s[0] {
		return false
	}
	return matchGlob(pattern[1:], s[1:])
}

// substituteFileTemplate implements process_file_template's mini-language:
// {{source}} expands to the whole source path, {{source_name_part}} to its
// basename with the extension stripped.
func substituteFileTemplate(pattern, source string) string {
	out := strings.ReplaceAll(pattern, "{{source}}", source)
	out = strings.ReplaceAll(out, "{{source_name_part}}", sourceNamePart(source))
	return out
}

func sourceNamePart(source string) string {
	base := source
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	return base
}
