package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err)

		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %s", strings.Join(result.Errors, "; "))
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/use_auto_include.yaml")
	require.NoError(t, err)

	first, err := Run(context.Background(), s)
	require.NoError(t, err)
	second, err := Run(context.Background(), s)
	require.NoError(t, err)

	a, err := Snapshot(s.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	s := &Scenario{
		Name:        "failing",
		Description: "every check fails",
		Steps: []Step{
			{Op: OpInclude, ID: "missing"},
			{Op: OpUse, IDs: []string{"a.b"}, Expect: &Expect{Error: ErrMissingBinding}},
		},
		Assertions: []Assertion{
			{Type: AssertBinding, ID: "b", Value: "x"},
			{Type: AssertRequests, URI: "./missing.cue", Count: 3},
		},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "include reported failure")
	assert.Contains(t, result.Errors[1], "expected missing_binding error")
	assert.Contains(t, result.Errors[2], "b is not bound")
	assert.Contains(t, result.Errors[3], "requested 1 times, want 3")
}

func TestRun_InvalidIdentifier(t *testing.T) {
	s := &Scenario{
		Name:        "invalid",
		Description: "malformed identifiers are rejected",
		Steps: []Step{
			{Op: OpInclude, ID: "a..b", Expect: &Expect{Error: ErrInvalidIdentifier}},
			{Op: OpNamespace, ID: "a.*", Expect: &Expect{Error: ErrInvalidIdentifier}},
		},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Trace)
}

func TestRun_ConfigOverrides(t *testing.T) {
	sep := "/"
	s := &Scenario{
		Name:        "custom_separator",
		Description: "the separator and suffix come from the scenario",
		Config:      &ConfigOverrides{Separator: &sep, Suffix: ptr(".yaml")},
		Units: map[string]UnitSpec{
			"./pkg/mod.yaml": {Body: "answer: forty-two\n"},
		},
		Steps: []Step{
			{Op: OpUse, IDs: []string{"pkg/mod"}},
		},
		Assertions: []Assertion{
			{Type: AssertBinding, ID: "mod/answer", Value: "forty-two"},
			{Type: AssertTraceContains, Event: "include", Identifier: "pkg/mod"},
		},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func ptr[T any](v T) *T { return &v }
