package evaluate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nsreg/internal/graph"
)

func unit(src string) Unit {
	return Unit{Identifier: "app.util", URI: "./app/util.cue", Source: []byte(src)}
}

func TestCUE_Evaluate(t *testing.T) {
	props, err := CUE{}.Evaluate(context.Background(), unit(`
name: "util"
version: 3
tags: ["a", "b"]
limits: {max: 10}
`))
	require.NoError(t, err)
	require.Len(t, props, 4)

	assert.Equal(t, "name", props[0].Name)
	assert.Equal(t, "util", props[0].Value)
	assert.EqualValues(t, 3, props[1].Value)
	assert.Equal(t, []any{"a", "b"}, props[2].Value)

	limits, ok := props[3].Value.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 10, limits["max"])
}

func TestCUE_RejectsIncompleteValues(t *testing.T) {
	_, err := CUE{}.Evaluate(context.Background(), unit(`x: int`))
	assert.Error(t, err)
}

func TestCUE_RejectsNonStruct(t *testing.T) {
	_, err := CUE{}.Evaluate(context.Background(), unit(`[1, 2]`))
	assert.Error(t, err)
}

func TestHCL_Evaluate(t *testing.T) {
	props, err := HCL{}.Evaluate(context.Background(), unit(`
second = "b"
first  = 1
ratio  = 1.5
list   = [1, 2]
`))
	require.NoError(t, err)
	require.Len(t, props, 4)

	assert.Equal(t, "second", props[0].Name, "declaration order is kept")
	assert.Equal(t, int64(1), props[1].Value)
	assert.Equal(t, 1.5, props[2].Value)
	assert.Equal(t, []any{int64(1), int64(2)}, props[3].Value)
}

func TestHCL_RejectsBlocks(t *testing.T) {
	_, err := HCL{}.Evaluate(context.Background(), unit(`block "x" { a = 1 }`))
	assert.Error(t, err)
}

func TestYAML_Evaluate(t *testing.T) {
	props, err := YAML{}.Evaluate(context.Background(), unit(`
zeta: hello world
alpha:
  - 1
  - 2
`))
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "zeta", props[0].Name)
	assert.Equal(t, "hello world", props[0].Value)
	assert.Equal(t, []any{1, 2}, props[1].Value)
}

func TestYAML_RejectsScalarDocument(t *testing.T) {
	_, err := YAML{}.Evaluate(context.Background(), unit(`just a string`))
	assert.Error(t, err)
}

type stubEvaluator struct {
	name  string
	props graph.Props
	err   error
	calls *int
}

func (s stubEvaluator) Name() string { return s.name }

func (s stubEvaluator) Evaluate(context.Context, Unit) (graph.Props, error) {
	if s.calls != nil {
		*s.calls++
	}
	return s.props, s.err
}

func TestChain_FallsBackSilently(t *testing.T) {
	secondCalls := 0
	chain := Chain{
		stubEvaluator{name: "first", err: errors.New("insertion failed")},
		stubEvaluator{name: "second", props: graph.Props{{Name: "x", Value: 1}}, calls: &secondCalls},
	}

	props, err := chain.Evaluate(context.Background(), unit("anything"))
	require.NoError(t, err)
	assert.Equal(t, graph.Props{{Name: "x", Value: 1}}, props)
	assert.Equal(t, 1, secondCalls)
}

func TestChain_StopsAtFirstSuccess(t *testing.T) {
	laterCalls := 0
	chain := Chain{
		stubEvaluator{name: "first", props: graph.Props{{Name: "a", Value: 1}}},
		stubEvaluator{name: "later", calls: &laterCalls},
	}

	_, err := chain.Evaluate(context.Background(), unit("anything"))
	require.NoError(t, err)
	assert.Zero(t, laterCalls)
}

func TestChain_AllFail(t *testing.T) {
	boom := errors.New("boom")
	chain := Chain{
		stubEvaluator{name: "first", err: errors.New("nope")},
		stubEvaluator{name: "second", err: boom},
	}

	_, err := chain.Evaluate(context.Background(), unit("anything"))
	require.Error(t, err)

	var evalErr *Error
	require.True(t, errors.As(err, &evalErr))
	assert.Len(t, evalErr.Errs, 2)
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "./app/util.cue")
}

func TestChain_BlankSource(t *testing.T) {
	props, err := Chain{}.Evaluate(context.Background(), unit("  \n"))
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestChain_EmptyChainFails(t *testing.T) {
	_, err := Chain{}.Evaluate(context.Background(), unit("x: 1"))
	assert.Error(t, err)
}

func TestDefault_ResolvesEachFormat(t *testing.T) {
	chain := Default()
	assert.Equal(t, "chain(cue,hcl,yaml)", chain.Name())

	tests := []struct {
		name string
		src  string
		key  string
	}{
		{"cue", `greeting: "hi"`, "greeting"},
		{"hcl", `greeting = "hi"`, "greeting"},
		{"yaml", "greeting: hi there\n", "greeting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props, err := chain.Evaluate(context.Background(), unit(tt.src))
			require.NoError(t, err)
			v, ok := props.Get(tt.key)
			require.True(t, ok)
			assert.Contains(t, v, "hi")
		})
	}
}
