package lang

import (
	"fmt"

	"github.com/meshbuild/bg/src/core"
)

// ModeFlag is one bit of Scope.ModeFlags. Flags are recursively visible to
// child scopes and must be set and cleared in paired fashion (set before
// clear, cleared before reuse).
type ModeFlag int

const (
	ModeProcessingBuildConfig ModeFlag = 1 << iota
	ModeProcessingDefaultBuildConfig
	ModeProcessingImport
)

type binding struct {
	value core.Value
	used  bool
	setAt Position
}

// Provider implements per-file read-only built-ins consulted before the
// values map on every scope in the chain, e.g. current_toolchain.
type Provider interface {
	Get(identifier string) (core.Value, bool)
}

// Scope is the recursive symbol table the evaluator threads through the
// AST. Every field listed in spec.md §3 is represented; see the field
// comments for which.
type Scope struct {
	values      map[string]*binding
	templates   map[string]*TemplateDef
	defaults    map[string]*Scope // target_defaults: type name -> child scope
	sourcesFilter []string

	modeFlags ModeFlag

	properties map[interface{}]interface{}

	providers []Provider

	// containing is this scope's parent. Exactly one of containing being
	// "mutable" (a normal nested block, writes propagate on merge) or
	// "read-only" (pointing at a shared base config) applies; readOnly
	// records which.
	containing *Scope
	readOnly   bool
}

// TemplateDef is a stored template: the call-site AST node that declared it
// plus its body block.
type TemplateDef struct {
	Name string
	Body *Block
}

// NewScope creates a root scope with no parent.
func NewScope() *Scope {
	return &Scope{
		values:    map[string]*binding{},
		templates: map[string]*TemplateDef{},
		defaults:  map[string]*Scope{},
		properties: map[interface{}]interface{}{},
	}
}

// Child creates a new mutable child scope of s.
func (s *Scope) Child() *Scope {
	c := NewScope()
	c.containing = s
	c.modeFlags = s.modeFlags
	return c
}

// ChildReadOnly creates a child scope pointing at s as a shared, read-only
// base (used for target_defaults child scopes shared across many targets).
func (s *Scope) ChildReadOnly() *Scope {
	c := s.Child()
	c.readOnly = true
	return c
}

// SetMode sets flag on s. Panics if already set, per the paired-fashion
// invariant.
func (s *Scope) SetMode(flag ModeFlag) {
	if s.modeFlags&flag != 0 {
		panic(fmt.Sprintf("lang: mode flag %d set twice without clearing", flag))
	}
	s.modeFlags |= flag
}

// ClearMode clears flag on s. Panics if not set.
func (s *Scope) ClearMode(flag ModeFlag) {
	if s.modeFlags&flag == 0 {
		panic(fmt.Sprintf("lang: mode flag %d cleared without being set", flag))
	}
	s.modeFlags &^= flag
}

// HasMode reports whether flag is set, recursively visible from any
// ancestor scope (flags are inherited at Child() time, so checking the
// local field suffices).
func (s *Scope) HasMode(flag ModeFlag) bool {
	return s.modeFlags&flag != 0
}

// AddProvider registers a Provider consulted before the values map.
func (s *Scope) AddProvider(p Provider) {
	s.providers = append(s.providers, p)
}

// Get looks up id, walking the containing chain. If countsAsUsed is true,
// the used flag is set on the first occurrence found in any ancestor.
func (s *Scope) Get(id string, countsAsUsed bool) (core.Value, bool) {
	for sc := s; sc != nil; sc = sc.containing {
		for _, p := range sc.providers {
			if v, ok := p.Get(id); ok {
				return v, true
			}
		}
		if b, ok := sc.values[id]; ok {
			if countsAsUsed {
				b.used = true
			}
			return b.value, true
		}
	}
	return core.None, false
}

// Set installs id = value in s's own values map (not an ancestor), marking
// it not-yet-used and recording where it was set for error messages.
func (s *Scope) Set(id string, value core.Value, at Position) {
	s.values[id] = &binding{value: value, setAt: at}
}

// Existing returns the binding for id in s's own scope only (not
// ancestors), for assignment-operator checks that need to know whether a
// name already exists locally.
func (s *Scope) Existing(id string) (value core.Value, used bool, setAt Position, ok bool) {
	b, ok := s.values[id]
	if !ok {
		return core.None, false, Position{}, false
	}
	return b.value, b.used, b.setAt, true
}

// ClearUsed clears the used flag on id (called by += so a later assignment
// check still fires if the final value is never read).
func (s *Scope) ClearUsed(id string) {
	if b, ok := s.values[id]; ok {
		b.used = false
	}
}

// MarkUsed marks id as used without reading it, e.g. for template_name's
// pre-marked-used pre-population.
func (s *Scope) MarkUsed(id string) {
	if b, ok := s.values[id]; ok {
		b.used = true
	}
}

// UnusedBindings returns the name and set-location of every set-but-unused
// binding directly in s (not ancestors), for the leaving-scope check.
func (s *Scope) UnusedBindings() []struct {
	Name  string
	SetAt Position
} {
	var out []struct {
		Name  string
		SetAt Position
	}
	for name, b := range s.values {
		if !b.used {
			out = append(out, struct {
				Name  string
				SetAt Position
			}{name, b.setAt})
		}
	}
	return out
}

// SetSourcesFilter installs the sources-assignment filter pattern list.
func (s *Scope) SetSourcesFilter(patterns []string) {
	s.sourcesFilter = patterns
}

// SourcesFilter returns the currently installed filter patterns, if any.
func (s *Scope) SourcesFilter() []string {
	return s.sourcesFilter
}

// SetTemplate registers a template definition.
func (s *Scope) SetTemplate(name string, t *TemplateDef) {
	s.templates[name] = t
}

// Template looks up a template by name, walking the containing chain.
func (s *Scope) Template(name string) (*TemplateDef, bool) {
	for sc := s; sc != nil; sc = sc.containing {
		if t, ok := sc.templates[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// SetDefaults installs the target_defaults child scope for typeName.
func (s *Scope) SetDefaults(typeName string, defaults *Scope) {
	s.defaults[typeName] = defaults
}

// Defaults returns the target_defaults child scope for typeName, if any,
// walking the containing chain.
func (s *Scope) Defaults(typeName string) (*Scope, bool) {
	for sc := s; sc != nil; sc = sc.containing {
		if d, ok := sc.defaults[typeName]; ok {
			return d, true
		}
	}
	return nil, false
}

// SetProperty stores an opaque value under key, used to thread structured
// state (e.g. the currently-open toolchain definition) through nested
// blocks without growing Scope's field list per use case.
func (s *Scope) SetProperty(key, value interface{}) {
	s.properties[key] = value
}

// Property retrieves a value stored with SetProperty, walking the
// containing chain.
func (s *Scope) Property(key interface{}) (interface{}, bool) {
	for sc := s; sc != nil; sc = sc.containing {
		if v, ok := sc.properties[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Merge copies all bindings, templates, sources filter, and
// target-default child scopes from src into s; a name collision in either
// values or templates is an error (a values collision names both set
// locations).
func Merge(src, dst *Scope) error {
	for name, b := range src.values {
		if existing, ok := dst.values[name]; ok {
			return fmt.Errorf("variable %q set at %s collides with existing binding at %s", name, b.setAt, existing.setAt)
		}
		dst.values[name] = b
	}
	for name, t := range src.templates {
		if _, ok := dst.templates[name]; ok {
			return fmt.Errorf("template %q already defined", name)
		}
		dst.templates[name] = t
	}
	for name, d := range src.defaults {
		dst.defaults[name] = d
	}
	if len(src.sourcesFilter) > 0 {
		dst.sourcesFilter = src.sourcesFilter
	}
	return nil
}
