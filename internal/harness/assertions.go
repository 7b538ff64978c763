package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/nsreg/internal/journal"
)

func (r *run) check(a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(r.result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(r.result.Trace, a.Events)
	case AssertTraceCount:
		return assertTraceCount(r.result.Trace, a)
	case AssertBinding:
		return r.assertBinding(a)
	case AssertRequests:
		if got := r.mem.Requests(a.URI); got != a.Count {
			return fmt.Errorf("%s requested %d times, want %d", a.URI, got, a.Count)
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func matches(e TraceEvent, a Assertion) bool {
	if e.Event != a.Event {
		return false
	}
	if a.Identifier != "" && e.Identifier != a.Identifier {
		return false
	}
	if a.Status != 0 && e.Status != a.Status {
		return false
	}
	return true
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, e := range trace {
		if matches(e, a) {
			return nil
		}
	}
	return fmt.Errorf("no %s event for %q in trace", a.Event, a.Identifier)
}

// assertTraceOrder checks that the labels occur in order, not necessarily
// adjacent.
func assertTraceOrder(trace []TraceEvent, labels []string) error {
	next := 0
	for _, e := range trace {
		if next < len(labels) && e.Label() == labels[next] {
			next++
		}
	}
	if next < len(labels) {
		return fmt.Errorf("%s not found after %s in trace [%s]",
			labels[next], strings.Join(labels[:next], ", "), traceLabels(trace))
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, e := range trace {
		if matches(e, a) {
			n++
		}
	}
	if n != a.Count {
		return fmt.Errorf("found %d %s events, want %d", n, a.Event, a.Count)
	}
	return nil
}

func (r *run) assertBinding(a Assertion) error {
	got, ok := r.reg.Get(a.ID)
	if a.Absent {
		if ok {
			return fmt.Errorf("%s is bound, want absent", a.ID)
		}
		return nil
	}
	if !ok {
		return fmt.Errorf("%s is not bound", a.ID)
	}

	gotJSON, err := journal.MarshalCanonical(got)
	if err != nil {
		return fmt.Errorf("encode bound value: %w", err)
	}
	wantJSON, err := journal.MarshalCanonical(a.Value)
	if err != nil {
		return fmt.Errorf("encode expected value: %w", err)
	}
	if string(gotJSON) != string(wantJSON) {
		return fmt.Errorf("%s = %s, want %s", a.ID, gotJSON, wantJSON)
	}
	return nil
}

func traceLabels(trace []TraceEvent) string {
	labels := make([]string, len(trace))
	for i, e := range trace {
		labels[i] = e.Label()
	}
	return strings.Join(labels, ", ")
}
