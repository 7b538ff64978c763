package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/nsreg/internal/journal"
)

// GoldenDir holds golden traces relative to the test package.
const GoldenDir = "testdata/golden"

// Snapshot renders the trace of a result as canonical JSON. Equal traces
// always produce identical bytes.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, e := range result.Trace {
		m := map[string]any{
			"seq":   e.Seq,
			"event": e.Event,
		}
		if e.Identifier != "" {
			m["identifier"] = e.Identifier
		}
		if e.URI != "" {
			m["uri"] = e.URI
			m["async"] = e.Async
		}
		if e.Status != 0 {
			m["status"] = e.Status
		}
		if e.LoadID != "" {
			m["load_id"] = e.LoadID
		}
		trace[i] = m
	}
	return journal.MarshalCanonical(map[string]any{
		"scenario_name": name,
		"trace":         trace,
	})
}

// RunWithGolden runs a scenario and compares its trace with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		t.Fatalf("snapshot %s: %v", name, err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
