// Package core holds the data model shared by every other package in this
// module: labels, items, the item graph, config value flattening, and the
// source-file abstraction. It mirrors the role of the teacher's own `core`
// package, generalised from build-target-and-test state to the simpler
// target/config/toolchain item model this module evaluates.
package core

import (
	"fmt"
	"strings"
	"sync"

	logging "gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("core")

// NodeState is the lifecycle state of an item-graph node. States progress
// monotonically; there are no regressions.
type NodeState int

const (
	StateReferenced NodeState = iota
	StateDefined
	StatePendingDeps
	StateResolved
)

func (s NodeState) String() string {
	switch s {
	case StateReferenced:
		return "referenced"
	case StateDefined:
		return "defined"
	case StatePendingDeps:
		return "pending_deps"
	case StateResolved:
		return "resolved"
	default:
		return fmt.Sprintf("NodeState(%d)", int(s))
	}
}

// A Node is one entry in the ItemGraph: an item plus its lifecycle state and
// dependency bookkeeping. All mutable fields are guarded by the owning
// ItemGraph's lock, not a per-node lock, since most operations touch more
// than one node's dependency sets atomically (see addDependency).
type Node struct {
	Item  *Item
	State NodeState

	// ShouldGenerate marks this node as reachable from an explicitly
	// requested target (or implied by greedy generation). CheckForBadItems
	// reads it, and a declared target passes it on to its deps and configs;
	// it does not affect when a node's dependency loads are scheduled.
	ShouldGenerate bool

	// OriginallyReferencedFrom is the origin of the first reference to this
	// label, used in diagnostics for a referenced-but-never-defined item.
	OriginallyReferencedFrom Origin

	// GeneratedFrom names the toolchain-qualified label this node was
	// instantiated for, when it differs from the label it was requested
	// under (e.g. toolchain re-keying); empty if not applicable.
	GeneratedFrom Label

	// DirectDependencies is every dependency this node's declaration named,
	// whether or not it has resolved yet. Invariant: DirectDependencies is
	// always a superset of UnresolvedDependencies.
	DirectDependencies []Label

	// UnresolvedDependencies and WaitingOnResolution are maintained as
	// mirror images of each other under the graph's single lock: for every
	// (A, B) with B in A.UnresolvedDependencies, A is in
	// B.WaitingOnResolution, and vice versa.
	UnresolvedDependencies map[Label]bool
	WaitingOnResolution    map[Label]bool

	// ResolvedClosure runs exactly once, when this node transitions to
	// StateResolved. It is set from Item.Resolved at Add time.
	ResolvedClosure func(*Node)
}

func newNode(item *Item, origin Origin) *Node {
	return &Node{
		Item:                     item,
		State:                    StateReferenced,
		OriginallyReferencedFrom: origin,
		UnresolvedDependencies:   map[Label]bool{},
		WaitingOnResolution:      map[Label]bool{},
		ResolvedClosure:          item.Resolved,
	}
}

// ItemGraph is the thread-safe store of every item reached so far, keyed by
// label. It is the sole owner of node lifecycle transitions; callers never
// mutate a Node's State or dependency sets directly.
type ItemGraph struct {
	mu    sync.Mutex
	nodes map[Label]*Node
}

// NewItemGraph creates an empty graph.
func NewItemGraph() *ItemGraph {
	return &ItemGraph{nodes: map[Label]*Node{}}
}

// GetOrNull returns the node for label, or nil if none exists yet.
func (g *ItemGraph) GetOrNull(label Label) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[label]
}

// Add inserts a newly-created node for item, seen from origin. It panics if
// a node already exists for the item's label: callers must check
// GetOrNull first (the precondition is "no existing node with this label",
// enforced with the graph lock held by the caller in the teacher's design;
// here Add takes the lock itself and the caller is expected to have just
// lost a race it must handle by retrying GetOrNull instead).
func (g *ItemGraph) Add(item *Item, origin Origin) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, present := g.nodes[item.Label]; present {
		panic("core: duplicate item label " + item.Label.String())
	}
	n := newNode(item, origin)
	g.nodes[item.Label] = n
	return n
}

// Len returns the number of nodes currently in the graph.
func (g *ItemGraph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Labels returns every label currently in the graph, for greedy
// generation's "mark everything reachable" semantics.
func (g *ItemGraph) Labels() []Label {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Label, 0, len(g.nodes))
	for l := range g.nodes {
		out = append(out, l)
	}
	return out
}

// DirectDependenciesOf returns a copy of label's node's DirectDependencies,
// or nil if no such node exists.
func (g *ItemGraph) DirectDependenciesOf(label Label) []Label {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[label]
	if !ok {
		return nil
	}
	out := make([]Label, len(n.DirectDependencies))
	copy(out, n.DirectDependencies)
	return out
}

// SetShouldGenerate marks label's node as reachable from an explicit
// request, per spec.md §4.8's should_generate flag. No-op if label has no
// node yet.
func (g *ItemGraph) SetShouldGenerate(label Label) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n, ok := g.nodes[label]; ok {
		n.ShouldGenerate = true
	}
}

// AddDependency records that fromLabel depends on toLabel, maintaining the
// UnresolvedDependencies/WaitingOnResolution mirror. Both nodes must already
// exist. If toLabel's node is already resolved, the dependency is recorded
// in DirectDependencies only (it never needs to appear as unresolved).
func (g *ItemGraph) AddDependency(fromLabel, toLabel Label) {
	g.mu.Lock()
	defer g.mu.Unlock()
	from, ok := g.nodes[fromLabel]
	if !ok {
		panic("core: AddDependency: unknown node " + fromLabel.String())
	}
	to, ok := g.nodes[toLabel]
	if !ok {
		panic("core: AddDependency: unknown node " + toLabel.String())
	}
	from.DirectDependencies = append(from.DirectDependencies, toLabel)
	if to.State == StateResolved {
		return
	}
	from.UnresolvedDependencies[toLabel] = true
	to.WaitingOnResolution[fromLabel] = true
}

// MarkDefined transitions label's node from referenced to defined. If the
// node has no unresolved dependencies at that point it is immediately
// cascaded to resolved (running its resolved closure and draining its
// waiters, recursively). Returns the node, or nil if no such node exists.
func (g *ItemGraph) MarkDefined(label Label) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[label]
	if !ok {
		return nil
	}
	if n.State != StateReferenced {
		return n
	}
	n.State = StateDefined
	g.maybeResolve(n)
	return n
}

// maybeResolve promotes n to resolved if it has no unresolved dependencies
// left, then recursively drains its waiters. Must be called with g.mu held.
func (g *ItemGraph) maybeResolve(n *Node) {
	if n.State == StateResolved {
		return
	}
	if n.State == StateDefined && len(n.UnresolvedDependencies) == 0 {
		n.State = StatePendingDeps
	}
	if n.State != StatePendingDeps || len(n.UnresolvedDependencies) != 0 {
		return
	}
	n.State = StateResolved
	if n.ResolvedClosure != nil {
		closure := n.ResolvedClosure
		g.mu.Unlock()
		closure(n)
		g.mu.Lock()
	}
	waiters := n.WaitingOnResolution
	n.WaitingOnResolution = map[Label]bool{}
	for waiterLabel := range waiters {
		waiter, ok := g.nodes[waiterLabel]
		if !ok {
			continue
		}
		delete(waiter.UnresolvedDependencies, n.Item.Label)
		g.maybeResolve(waiter)
	}
}

// ResolveDependency removes toLabel from fromLabel's unresolved set, for
// callers that need to force a recheck after mutating a node's payload
// post-hoc. No code in this module calls it; MarkDefined's cascade does its
// own bookkeeping.
func (g *ItemGraph) ResolveDependency(fromLabel, toLabel Label) {
	g.mu.Lock()
	defer g.mu.Unlock()
	from, ok := g.nodes[fromLabel]
	if !ok {
		return
	}
	delete(from.UnresolvedDependencies, toLabel)
	if to, ok := g.nodes[toLabel]; ok {
		delete(to.WaitingOnResolution, fromLabel)
	}
	g.maybeResolve(from)
}

// CheckForBadItems is the final validation pass: every node marked
// ShouldGenerate must be resolved. For the first offender found it either
// names an unmet referenced dependency, or, if none, runs cycle detection
// over unresolved-dependency edges and reports the path.
func (g *ItemGraph) CheckForBadItems() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for label, n := range g.nodes {
		if !n.ShouldGenerate || n.State == StateResolved {
			continue
		}
		if n.State == StateReferenced {
			return fmt.Errorf("item %s was referenced but never defined", label)
		}
		if cycle := g.findCycle(label); cycle != nil {
			return fmt.Errorf("dependency cycle found:\n%s", formatCycle(cycle))
		}
		return fmt.Errorf("item %s has unresolved dependencies that never completed", label)
	}
	return nil
}

// findCycle runs a DFS from start over unresolved-dependency edges looking
// for a path back to start. Must be called with g.mu held. Grounded on the
// teacher's cycle_detector.go, adapted to walk the graph's own
// UnresolvedDependencies edges directly instead of a separately-queued
// dependency log, and to return the path instead of just a boolean.
func (g *ItemGraph) findCycle(start Label) []Label {
	visited := map[Label]bool{}
	var path []Label
	var visit func(label Label) bool
	visit = func(label Label) bool {
		if label == start && len(path) > 0 {
			path = append(path, label)
			return true
		}
		if visited[label] {
			return false
		}
		visited[label] = true
		path = append(path, label)
		n, ok := g.nodes[label]
		if ok {
			for dep := range n.UnresolvedDependencies {
				if visit(dep) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		return false
	}
	if visit(start) {
		return path
	}
	return nil
}

func formatCycle(cycle []Label) string {
	parts := make([]string, len(cycle))
	for i, l := range cycle {
		parts[i] = l.String()
	}
	return strings.Join(parts, "\n -> ")
}
