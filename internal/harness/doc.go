// Package harness runs conformance scenarios against a registry.
//
// A scenario serves canned units from an in-memory transport, drives a fresh
// registry through a list of steps and checks the journaled lifecycle trace
// and the resulting bindings.
//
// # Scenario Format
//
//	name: use_auto_include
//	description: "use loads a missing target once"
//	config:
//	  auto_include: true
//	units:
//	  ./app/util.cue:
//	    body: |
//	      greeting: "hi"
//	steps:
//	  - op: use
//	    ids: [app.util]
//	  - op: include
//	    id: app.util
//	    expect: { ok: true }
//	assertions:
//	  - type: trace_count
//	    event: include
//	    count: 1
//	  - type: binding
//	    id: util.greeting
//	    value: hi
//
// # Operations
//
//   - namespace: create id, optionally with value as attachment
//   - include, include_async: load id
//   - use, use_async: import ids
//   - provide: declare ids
//   - from_use, from_use_async: use rel relative to id
//
// # Assertion Types
//
//   - trace_contains: an event for identifier (and status) was journaled
//   - trace_order: events, written "name:identifier", appear in that order
//   - trace_count: an event occurs exactly count times
//   - binding: the value at id equals value, or id is absent (absent: true)
//   - requests: uri was requested exactly count times
//
// # Deterministic Testing
//
// Each run gets an in-memory journal stamped by testutil.DeterministicClock
// and load IDs from testutil.SequentialIDs. Async steps are awaited before
// the next step starts, so traces are identical across runs and can be
// compared with golden snapshots.
package harness
