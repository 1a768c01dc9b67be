package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addItem(t *testing.T, g *ItemGraph, label Label) *Node {
	t.Helper()
	return g.Add(NewTargetItem(label, &Target{}), nil)
}

func TestMarkDefinedWithNoDepsResolvesImmediately(t *testing.T) {
	g := NewItemGraph()
	addItem(t, g, NewLabel("//a", "x"))
	n := g.MarkDefined(NewLabel("//a", "x"))
	require.NotNil(t, n)
	assert.Equal(t, StateResolved, n.State)
}

func TestMarkDefinedWithUnresolvedDepsStaysDefined(t *testing.T) {
	g := NewItemGraph()
	a := NewLabel("//a", "x")
	b := NewLabel("//a", "y")
	addItem(t, g, a)
	addItem(t, g, b)
	g.AddDependency(a, b)

	n := g.MarkDefined(a)
	assert.Equal(t, StateDefined, n.State)
	assert.True(t, n.UnresolvedDependencies[b])
}

func TestResolvingDepCascadesToWaiter(t *testing.T) {
	g := NewItemGraph()
	a := NewLabel("//a", "x")
	b := NewLabel("//a", "y")
	addItem(t, g, a)
	addItem(t, g, b)
	g.AddDependency(a, b)
	g.MarkDefined(a)

	g.MarkDefined(b) // b has no deps, resolves immediately, should cascade to a
	an := g.GetOrNull(a)
	assert.Equal(t, StateResolved, an.State)
	assert.Empty(t, an.UnresolvedDependencies)
}

func TestWaitingOnResolutionMirror(t *testing.T) {
	g := NewItemGraph()
	a := NewLabel("//a", "x")
	b := NewLabel("//a", "y")
	addItem(t, g, a)
	addItem(t, g, b)
	g.AddDependency(a, b)

	bn := g.GetOrNull(b)
	assert.True(t, bn.WaitingOnResolution[a])
}

func TestResolvedClosureRunsOnce(t *testing.T) {
	g := NewItemGraph()
	label := NewLabel("//a", "x")
	calls := 0
	item := NewTargetItem(label, &Target{})
	item.Resolved = func(*Node) { calls++ }
	g.Add(item, nil)
	g.MarkDefined(label)
	assert.Equal(t, 1, calls)
}

func TestCheckForBadItemsDetectsUnresolvedReference(t *testing.T) {
	g := NewItemGraph()
	label := NewLabel("//a", "x")
	n := addItem(t, g, label)
	n.ShouldGenerate = true
	err := g.CheckForBadItems()
	assert.Error(t, err)
}

func TestCheckForBadItemsPassesWhenAllResolved(t *testing.T) {
	g := NewItemGraph()
	label := NewLabel("//a", "x")
	n := addItem(t, g, label)
	n.ShouldGenerate = true
	g.MarkDefined(label)
	assert.NoError(t, g.CheckForBadItems())
}

func TestCheckForBadItemsDetectsCycle(t *testing.T) {
	g := NewItemGraph()
	a := NewLabel("//a", "x")
	b := NewLabel("//a", "y")
	c := NewLabel("//a", "z")
	na := addItem(t, g, a)
	addItem(t, g, b)
	addItem(t, g, c)
	g.AddDependency(a, b)
	g.AddDependency(b, c)
	g.AddDependency(c, a)
	g.MarkDefined(a)
	g.MarkDefined(b)
	g.MarkDefined(c)

	na.ShouldGenerate = true
	err := g.CheckForBadItems()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestAddDuplicateLabelPanics(t *testing.T) {
	g := NewItemGraph()
	label := NewLabel("//a", "x")
	addItem(t, g, label)
	assert.Panics(t, func() { addItem(t, g, label) })
}
