package engine

import (
	"path/filepath"

	"github.com/meshbuild/bg/src/core"
	"github.com/meshbuild/bg/src/lang"
)

// generateTarget reads a target declaration's populated scope into a
// core.Target, mirroring the field-by-field extraction knownTargetFields
// documents in builtins.go.
func generateTarget(outputType core.OutputType, scope *lang.Scope) *core.Target {
	t := &core.Target{
		OutputType:             outputType,
		Sources:                stringsField(scope, "sources"),
		DataFiles:              stringsField(scope, "data"),
		Deps:                   labelsField(scope, "deps"),
		DataDeps:               labelsField(scope, "data_deps"),
		Configs:                labelsField(scope, "configs"),
		AllDependentConfigs:    labelsField(scope, "all_dependent_configs"),
		DirectDependentConfigs: labelsField(scope, "direct_dependent_configs"),
		DestDir:                stringField(scope, "dest_dir"),
		ConfigValues:           generateConfigValues(scope),
	}
	if outputType == core.OutputCustom {
		t.ScriptValues = core.ScriptValues{
			Script:  stringField(scope, "script"),
			Args:    stringsField(scope, "args"),
			Outputs: stringsField(scope, "outputs"),
		}
	}
	return t
}

func generateConfigValues(scope *lang.Scope) core.ConfigValues {
	return core.ConfigValues{
		Includes:    stringsField(scope, "includes"),
		Defines:     stringsField(scope, "defines"),
		CFlags:      stringsField(scope, "cflags"),
		CFlagsC:     stringsField(scope, "cflags_c"),
		CFlagsCC:    stringsField(scope, "cflags_cc"),
		CFlagsObjC:  stringsField(scope, "cflags_objc"),
		CFlagsObjCC: stringsField(scope, "cflags_objcc"),
		LDFlags:     stringsField(scope, "ldflags"),
	}
}

func stringsField(scope *lang.Scope, name string) []string {
	v, ok := scope.Get(name, false)
	if !ok || v.Kind != core.KindList {
		return nil
	}
	out := make([]string, 0, len(v.List))
	for _, e := range v.List {
		if e.Kind == core.KindString {
			out = append(out, e.Str)
		}
	}
	return out
}

func stringField(scope *lang.Scope, name string) string {
	v, ok := scope.Get(name, false)
	if !ok || v.Kind != core.KindString {
		return ""
	}
	return v.Str
}

func labelsField(scope *lang.Scope, name string) []core.Label {
	v, ok := scope.Get(name, false)
	if !ok || v.Kind != core.KindList {
		return nil
	}
	var out []core.Label
	for _, e := range v.List {
		if e.Kind != core.KindString {
			continue
		}
		if l, err := core.ParseLabel(e.Str); err == nil {
			out = append(out, l)
		}
	}
	return out
}

// joinRoot joins a root-relative path onto rootDir for operations (exec)
// that need a real filesystem path rather than the abstract ReadOnlyFS.
func joinRoot(rootDir, p string) string {
	if rootDir == "" {
		return p
	}
	return filepath.Join(rootDir, p)
}
