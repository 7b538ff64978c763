package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/nsreg/internal/journal"
	"github.com/roach88/nsreg/internal/registry"
	"github.com/roach88/nsreg/internal/testutil"
	"github.com/roach88/nsreg/internal/transport"
)

// run holds the state of one scenario execution.
type run struct {
	reg     *registry.Registry
	mem     *testutil.MemoryTransport
	journal *journal.Journal
	result  *Result
}

// Run executes a scenario against a fresh registry and returns the result.
// An error is returned only when the run could not be set up or the trace
// could not be read; failed expectations are reported in the result.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	units := make(map[string]testutil.Unit, len(s.Units))
	for uri, u := range s.Units {
		status := u.Status
		if status == 0 {
			status = 200
		}
		units[uri] = testutil.Unit{Status: status, Body: u.Body}
	}
	mem := testutil.NewMemoryTransport(units)

	sel := mem.Selector()
	if s.BrokenTransport {
		sel = transport.NewSelector(testutil.BrokenFactory{Label: "modern"}, testutil.BrokenFactory{Label: "legacy"})
	}

	reg := registry.New(
		registry.WithConfig(scenarioConfig(s.Config)),
		registry.WithTransport(sel),
		registry.WithLoadIDs(testutil.NewSequentialIDs("")),
	)
	defer reg.Close()

	j, err := journal.Open(":memory:", journal.WithClock(testutil.NewDeterministicClock()))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()
	j.Attach(ctx, reg)

	r := &run{reg: reg, mem: mem, journal: j, result: NewResult()}

	for i, step := range s.Steps {
		slog.Debug("scenario step", "scenario", s.Name, "index", i, "op", step.Op)
		r.step(ctx, i, step)
		reg.Wait()
	}

	entries, err := j.Entries(ctx, journal.Filter{})
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	for _, e := range entries {
		r.result.Trace = append(r.result.Trace, TraceEvent{
			Seq:        e.Seq,
			Event:      e.Name,
			Identifier: e.Identifier,
			URI:        e.URI,
			Async:      e.Async,
			Status:     e.Status,
			LoadID:     e.LoadID,
		})
	}

	for i, a := range s.Assertions {
		if err := r.check(a); err != nil {
			r.result.AddError(fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	return r.result, nil
}

func scenarioConfig(o *ConfigOverrides) registry.Config {
	cfg := registry.DefaultConfig()
	if o == nil {
		return cfg
	}
	if o.Separator != nil {
		cfg.Separator = *o.Separator
	}
	if o.BaseURI != nil {
		cfg.BaseURI = *o.BaseURI
	}
	if o.Suffix != nil {
		cfg.Suffix = *o.Suffix
	}
	if o.AutoInclude != nil {
		cfg.AutoInclude = *o.AutoInclude
	}
	if o.Strict != nil {
		cfg.Strict = *o.Strict
	}
	return cfg
}

func (r *run) step(ctx context.Context, i int, step Step) {
	var opts []registry.UseOption
	if step.AutoInclude != nil {
		opts = append(opts, registry.WithAutoInclude(*step.AutoInclude))
	}

	var (
		ok  *bool
		err error
	)
	switch step.Op {
	case OpNamespace:
		_, err = r.reg.Namespace(step.ID, step.Value)
	case OpInclude:
		var got bool
		got, err = r.reg.Include(ctx, step.ID)
		ok = &got
	case OpIncludeAsync:
		done := make(chan error, 1)
		err = r.reg.IncludeAsync(ctx, step.ID,
			func() { done <- nil },
			func(e error) { done <- e },
		)
		if err == nil {
			got := <-done == nil
			ok = &got
		}
	case OpUse:
		err = r.reg.Use(ctx, step.ids(), opts...)
	case OpUseAsync:
		err = r.awaitAsync(func(done func(error)) error {
			return r.reg.UseAsync(ctx, step.ids(), done, opts...)
		})
	case OpProvide:
		err = r.reg.Provide(step.ids()...)
	case OpFromUse:
		err = r.reg.From(step.ID).Use(ctx, step.Rel)
	case OpFromUseAsync:
		err = r.awaitAsync(func(done func(error)) error {
			return r.reg.From(step.ID).UseAsync(ctx, step.Rel, done)
		})
	}

	if msg := expectation(step.Expect, ok, err); msg != "" {
		r.result.AddError(fmt.Sprintf("steps[%d] (%s %s): %s", i, step.Op, stepTarget(step), msg))
	}
}

// awaitAsync starts an async operation and blocks until its completion
// callback runs. An immediate error skips the wait.
func (r *run) awaitAsync(start func(done func(error)) error) error {
	done := make(chan error, 1)
	if err := start(func(e error) { done <- e }); err != nil {
		return err
	}
	return <-done
}

func expectation(exp *Expect, ok *bool, err error) string {
	if exp == nil {
		if err != nil {
			return fmt.Sprintf("unexpected error: %v", err)
		}
		if ok != nil && !*ok {
			return "include reported failure"
		}
		return ""
	}

	if exp.Error != "" {
		if err == nil {
			return fmt.Sprintf("expected %s error, got none", exp.Error)
		}
		if !matchesKind(exp.Error, err) {
			return fmt.Sprintf("expected %s error, got %v", exp.Error, err)
		}
	} else if err != nil {
		return fmt.Sprintf("unexpected error: %v", err)
	}

	if exp.OK != nil {
		got := ok != nil && *ok
		if got != *exp.OK {
			return fmt.Sprintf("include returned %t, want %t", got, *exp.OK)
		}
	}
	return ""
}

func matchesKind(kind string, err error) bool {
	switch kind {
	case ErrAny:
		return true
	case ErrTransportUnavailable:
		return registry.IsTransportUnavailable(err)
	case ErrLoadFailed:
		return registry.IsLoadFailed(err)
	case ErrMissingBinding:
		return registry.IsMissingBinding(err)
	case ErrInvalidIdentifier:
		return registry.IsInvalidIdentifier(err)
	}
	return false
}

func stepTarget(step Step) string {
	switch {
	case step.Rel != "":
		return step.ID + " " + step.Rel
	case len(step.IDs) > 0:
		return fmt.Sprint(step.IDs)
	default:
		return step.ID
	}
}
