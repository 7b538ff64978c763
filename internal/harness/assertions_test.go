package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleTrace = []TraceEvent{
	{Seq: 1, Event: "create", Identifier: "app"},
	{Seq: 2, Event: "includeError", Identifier: "app.net", Status: 404, URI: "./app/net.cue"},
	{Seq: 3, Event: "include", Identifier: "app.util", URI: "./app/util.cue"},
	{Seq: 4, Event: "use", Identifier: "app.util"},
}

func TestAssertTraceContains(t *testing.T) {
	assert.NoError(t, assertTraceContains(sampleTrace, Assertion{Event: "include", Identifier: "app.util"}))
	assert.NoError(t, assertTraceContains(sampleTrace, Assertion{Event: "includeError", Status: 404}))

	err := assertTraceContains(sampleTrace, Assertion{Event: "includeError", Status: 500})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no includeError event")

	assert.Error(t, assertTraceContains(sampleTrace, Assertion{Event: "provide"}))
}

func TestAssertTraceOrder(t *testing.T) {
	assert.NoError(t, assertTraceOrder(sampleTrace, []string{"create:app", "use:app.util"}))
	assert.NoError(t, assertTraceOrder(sampleTrace, []string{"includeError:app.net", "include:app.util"}))

	err := assertTraceOrder(sampleTrace, []string{"use:app.util", "create:app"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create:app not found after use:app.util")
}

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Event: "include", Count: 1}))
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Event: "provide", Count: 0}))

	err := assertTraceCount(sampleTrace, Assertion{Event: "create", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found 1 create events, want 2")
}

func TestExpectation(t *testing.T) {
	yes, no := true, false

	assert.Empty(t, expectation(nil, nil, nil))
	assert.Empty(t, expectation(nil, &yes, nil))
	assert.Contains(t, expectation(nil, &no, nil), "include reported failure")
	assert.Contains(t, expectation(&Expect{OK: &yes}, &no, nil), "include returned false, want true")
	assert.Empty(t, expectation(&Expect{OK: &no}, &no, nil))
	assert.Contains(t, expectation(&Expect{Error: ErrMissingBinding}, nil, nil), "expected missing_binding error, got none")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
