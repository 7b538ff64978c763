package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_RootAlwaysExists(t *testing.T) {
	g := New()
	assert.True(t, g.Exist(nil))

	n, created := g.CreateOrGet(nil, nil)
	assert.False(t, created)
	assert.Same(t, g.Root(), n)
}

func TestGraph_CreateOrGet_CreatesIntermediateContainers(t *testing.T) {
	g := New()

	leaf, created := g.CreateOrGet([]string{"a", "b", "c"}, nil)
	require.True(t, created)
	assert.True(t, leaf.IsContainer())

	assert.True(t, g.Exist([]string{"a"}))
	assert.True(t, g.Exist([]string{"a", "b"}))
	assert.True(t, g.Exist([]string{"a", "b", "c"}))
	assert.False(t, g.Exist([]string{"a", "b", "d"}))
}

func TestGraph_CreateOrGet_NeverOverwrites(t *testing.T) {
	g := New()

	first, created := g.CreateOrGet([]string{"app", "Fn"}, "original")
	require.True(t, created)

	second, created := g.CreateOrGet([]string{"app", "Fn"}, "replacement")
	assert.False(t, created)
	assert.Same(t, first, second)

	v, ok := second.Value()
	require.True(t, ok)
	assert.Equal(t, "original", v)
}

func TestGraph_CreateOrGet_CallableReplacesLeaf(t *testing.T) {
	g := New()
	fn := func() string { return "hi" }

	n, created := g.CreateOrGet([]string{"app", "greet"}, fn)
	require.True(t, created)

	v, ok := n.Value()
	require.True(t, ok)
	got, ok := v.(func() string)
	require.True(t, ok)
	assert.Equal(t, "hi", got())
}

func TestGraph_CreateOrGet_MergesProps(t *testing.T) {
	g := New()

	n, created := g.CreateOrGet([]string{"app", "util"}, Props{
		{Name: "b", Value: 2},
		{Name: "a", Value: 1},
	})
	require.True(t, created)
	assert.Equal(t, []string{"b", "a"}, n.Keys(), "props keep declaration order")

	a, ok := g.Lookup([]string{"app", "util", "a"})
	require.True(t, ok)
	v, _ := a.Value()
	assert.Equal(t, 1, v)
}

func TestGraph_CreateOrGet_MapAttachmentSortedAndNested(t *testing.T) {
	g := New()

	_, created := g.CreateOrGet([]string{"cfg"}, map[string]any{
		"z": true,
		"nested": map[string]any{
			"depth": 2,
		},
	})
	require.True(t, created)

	root, _ := g.Lookup([]string{"cfg"})
	assert.Equal(t, []string{"nested", "z"}, root.Keys())
	assert.True(t, g.Exist([]string{"cfg", "nested", "depth"}), "nested maps become containers")
}

func TestGraph_ExistIsPresenceNotTruthiness(t *testing.T) {
	g := New()
	g.CreateOrGet([]string{"flags"}, Props{
		{Name: "off", Value: false},
		{Name: "zero", Value: 0},
		{Name: "none", Value: nil},
	})

	assert.True(t, g.Exist([]string{"flags", "off"}))
	assert.True(t, g.Exist([]string{"flags", "zero"}))
	assert.True(t, g.Exist([]string{"flags", "none"}))
}

func TestGraph_BindAliasesNode(t *testing.T) {
	g := New()
	n, _ := g.CreateOrGet([]string{"a", "b", "x"}, 1)

	g.Bind(g.Root(), "x", n)

	alias, ok := g.Root().Child("x")
	require.True(t, ok)
	assert.Same(t, n, alias)
}

func TestNode_EntriesAndInterface(t *testing.T) {
	g := New()
	n, _ := g.CreateOrGet([]string{"a", "b"}, Props{
		{Name: "x", Value: 1},
		{Name: "y", Value: 2},
	})

	entries := n.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "x", entries[0].Name)
	assert.Equal(t, "y", entries[1].Name)

	assert.Equal(t, map[string]any{"x": 1, "y": 2}, n.Interface())
}

func TestNode_InterfaceSurvivesSelfAlias(t *testing.T) {
	g := New()
	n, _ := g.CreateOrGet([]string{"loop"}, nil)
	g.Bind(n, "self", n)

	out, ok := n.Interface().(map[string]any)
	require.True(t, ok)
	assert.Nil(t, out["self"])
}

func TestNode_Set(t *testing.T) {
	g := New()
	child := g.Root().Set("answer", 42)

	v, ok := child.Value()
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.True(t, g.Exist([]string{"answer"}))
}

func TestGraph_ConcurrentCreateOrGetCreatesOnce(t *testing.T) {
	g := New()
	path := []string{"shared", "node"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	nodes := make([]*Node, 32)

	for i := range nodes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, created := g.CreateOrGet(path, nil)
			nodes[i] = n
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	for _, n := range nodes {
		assert.Same(t, nodes[0], n)
	}
}
