// Package target implements the target manager and target resolver
// (components K and L): creating/looking-up target nodes, recording
// dependency edges, and flattening transitive configs and inherited
// libraries once a target's dependencies are all resolved.
package target

import (
	"fmt"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/meshbuild/bg/src/core"
)

var log = logging.MustGetLogger("target")

// Manager wraps an ItemGraph with the target-specific get/generation-complete
// operations from spec.md §4.10.
type Manager struct {
	graph *core.ItemGraph
}

// NewManager creates a Manager over graph.
func NewManager(graph *core.ItemGraph) *Manager {
	return &Manager{graph: graph}
}

// Get either creates a new referenced node for label (scheduling its load
// is the caller's responsibility once this returns) or returns the
// existing one. The node's kind isn't fixed here: a label referenced from
// a deps or configs list may turn out to name a target, a config or a
// toolchain once its own declaration runs, so Get always creates a bare
// ItemKindUnresolved placeholder rather than assuming Target. If depFrom
// is non-null, an edge is recorded so depFrom's resolution waits on label.
func (m *Manager) Get(label core.Label, origin core.Origin, depFrom core.Label, hasDepFrom bool) *core.Node {
	n := m.graph.GetOrNull(label)
	if n == nil {
		item := core.NewReferencedItem(label)
		item.Resolved = func(node *core.Node) { Resolve(m.graph, node) }
		n = m.graph.Add(item, origin)
	}
	if hasDepFrom {
		m.graph.AddDependency(depFrom, label)
	}
	return n
}

// GenerationComplete is called when the declaration for label's target has
// finished executing; it transitions the node to defined.
func (m *Manager) GenerationComplete(label core.Label) {
	m.graph.MarkDefined(label)
}

// Populate fills in target's payload fields on an already-created node, for
// use by the lang.Host.DeclareTarget implementation once the declaration
// block has finished running. Declaring deps as it goes keeps the item
// graph edges in sync with the payload's Deps list.
func (m *Manager) Populate(label core.Label, t *core.Target) error {
	n := m.graph.GetOrNull(label)
	if n == nil {
		return fmt.Errorf("target %s has no node to populate", label)
	}
	n.Item.SetTarget(t)
	for _, dep := range t.Deps {
		m.Get(dep, nil, label, true)
	}
	for _, dep := range t.Configs {
		m.Get(dep, nil, label, true)
	}
	return nil
}

// Resolve is the target resolver (component L), run as a node's resolved
// closure. It walks deps once and flattens transitive config and
// inherited-library state, per spec.md §4.10:
//   - a dep's all_dependent_configs propagate into both this target's
//     configs and its own all_dependent_configs;
//   - a dep's direct_dependent_configs propagate into this target's
//     configs only;
//   - a linkable (static/shared library) dep is inserted into
//     inherited_libraries;
//   - unless the dep is a shared library or executable (which encapsulate
//     their own transitive libs), the dep's inherited_libraries are merged
//     into this target's.
//
// Grounded on the teacher's graph.go linkDependencies/pending-reverse-dep
// bookkeeping for the general "walk deps once they're all resolved" shape,
// generalised from Please's require/provide mechanism (unused here) to this
// module's config/library propagation rules.
func Resolve(graph *core.ItemGraph, n *core.Node) {
	if n.Item.Kind != core.ItemTarget {
		return
	}
	t := n.Item.Target
	for _, depLabel := range t.Deps {
		depNode := graph.GetOrNull(depLabel)
		if depNode == nil || depNode.Item.Kind != core.ItemTarget {
			continue
		}
		dep := depNode.Item.Target

		t.Configs = append(t.Configs, dep.AllDependentConfigs...)
		t.AllDependentConfigs = append(t.AllDependentConfigs, dep.AllDependentConfigs...)
		t.Configs = append(t.Configs, dep.DirectDependentConfigs...)

		if isLinkable(dep.OutputType) {
			t.InheritedLibraries = append(t.InheritedLibraries, depLabel)
		}
		if !encapsulatesTransitiveLibs(dep.OutputType) {
			t.InheritedLibraries = append(t.InheritedLibraries, dep.InheritedLibraries...)
		}
	}
}

func isLinkable(ot core.OutputType) bool {
	return ot == core.OutputStaticLibrary || ot == core.OutputSharedLibrary
}

func encapsulatesTransitiveLibs(ot core.OutputType) bool {
	return ot == core.OutputSharedLibrary || ot == core.OutputExecutable
}
