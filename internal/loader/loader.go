// Package loader fetches the unit behind an identifier, evaluates it and binds
// the result into the namespace graph.
//
// A load runs in three steps so callers can decide where each one executes:
//
//	Begin  maps the identifier to a URI and selects a transport. A missing
//	       transport is fatal and reported here, before any I/O.
//	Fetch  sends the request and blocks until it settles. It dispatches no
//	       event.
//	Settle evaluates and binds the unit, then fires include; or fires
//	       includeError with the status and returns a *StatusError.
//
// Fetch may run on any goroutine. Settle runs listeners synchronously, so
// the caller picks the goroutine they observe.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/nsreg/internal/evaluate"
	"github.com/roach88/nsreg/internal/events"
	"github.com/roach88/nsreg/internal/graph"
	"github.com/roach88/nsreg/internal/transport"
)

// Binder attaches evaluated fields at an identifier.
type Binder interface {
	Bind(identifier string, props graph.Props) error
}

// IDGenerator produces load IDs that correlate include and includeError
// events with journal entries.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable load IDs.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// StatusError reports a load whose request did not succeed. It is
// recoverable: the includeError event has already been dispatched.
type StatusError struct {
	Identifier string
	URI        string
	Status     int
	Err        error // network level failure, if any
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s from %s: status %d: %v", e.Identifier, e.URI, e.Status, e.Err)
	}
	return fmt.Sprintf("load %s from %s: status %d", e.Identifier, e.URI, e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// IsStatusError reports whether err is or wraps a *StatusError.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// Config wires a Loader to its collaborators.
type Config struct {
	// MapURI is consulted on every load, so policy changes apply immediately.
	MapURI     func(identifier string) string
	Transports *transport.Selector
	Evaluator  evaluate.Evaluator
	Binder     Binder
	Bus        *events.Bus

	// IDs defaults to UUIDv7Generator.
	IDs IDGenerator
}

// Loader drives transport, evaluation and binding for single identifiers.
type Loader struct {
	mapURI     func(string) string
	transports *transport.Selector
	eval       evaluate.Evaluator
	bind       Binder
	bus        *events.Bus
	ids        IDGenerator
}

// New creates a Loader. Evaluator defaults to evaluate.Default() and Bus to
// a fresh bus.
func New(cfg Config) *Loader {
	l := &Loader{
		mapURI:     cfg.MapURI,
		transports: cfg.Transports,
		eval:       cfg.Evaluator,
		bind:       cfg.Binder,
		bus:        cfg.Bus,
		ids:        cfg.IDs,
	}
	if l.eval == nil {
		l.eval = evaluate.Default()
	}
	if l.bus == nil {
		l.bus = events.NewBus()
	}
	if l.ids == nil {
		l.ids = UUIDv7Generator{}
	}
	if l.transports == nil {
		l.transports = transport.NewSelector()
	}
	return l
}

// PendingLoad is one load between Begin and Settle.
type PendingLoad struct {
	Identifier string
	URI        string
	Async      bool
	LoadID     string

	l       *Loader
	handle  transport.Handle
	resp    *transport.Response
	sendErr error
	fetched bool
}

// Begin prepares a load. The returned error is a *transport.UnavailableError
// when no transport can serve the URI.
func (l *Loader) Begin(identifier string, async bool) (*PendingLoad, error) {
	uri := l.mapURI(identifier)

	t, err := l.transports.For(uri)
	if err != nil {
		return nil, err
	}
	h, err := t.Open("GET", uri, async)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}

	p := &PendingLoad{
		Identifier: identifier,
		URI:        uri,
		Async:      async,
		LoadID:     l.ids.Generate(),
		l:          l,
		handle:     h,
	}
	h.OnStateChange(func(s transport.ReadyState) {
		if s != transport.Done {
			return
		}
		slog.Debug("request settled", "identifier", identifier, "uri", uri, "load_id", p.LoadID)
	})
	return p, nil
}

// Fetch sends the request. It is safe to call once.
func (p *PendingLoad) Fetch(ctx context.Context) {
	if p.fetched {
		return
	}
	p.fetched = true
	p.resp, p.sendErr = p.handle.Send(ctx, nil)
	if p.sendErr != nil {
		slog.Warn("request failed", "identifier", p.Identifier, "uri", p.URI, "error", p.sendErr)
	}
}

// Status returns the settled status, 0 when none was reported.
func (p *PendingLoad) Status() int {
	if p.resp == nil {
		return 0
	}
	return p.resp.Status
}

// Succeeded applies the transport success predicate to the settled request.
func (p *PendingLoad) Succeeded() bool {
	return p.sendErr == nil && p.resp != nil && transport.IsSuccessful(p.resp.Status, p.URI)
}

// Settle evaluates and binds a successful response and fires include, or
// fires includeError and returns a *StatusError. Evaluation and binding
// errors are returned unchanged and fire nothing.
func (p *PendingLoad) Settle(ctx context.Context) error {
	ev := &events.Event{
		Identifier: p.Identifier,
		URI:        p.URI,
		Async:      p.Async,
		LoadID:     p.LoadID,
	}

	if !p.Succeeded() {
		ev.Status = p.Status()
		p.l.bus.Dispatch(events.IncludeError, ev)
		return &StatusError{Identifier: p.Identifier, URI: p.URI, Status: ev.Status, Err: p.sendErr}
	}

	props, err := p.l.eval.Evaluate(ctx, evaluate.Unit{
		Identifier: p.Identifier,
		URI:        p.URI,
		Source:     p.resp.Body,
	})
	if err != nil {
		return err
	}
	if err := p.l.bind.Bind(p.Identifier, props); err != nil {
		return fmt.Errorf("bind %s: %w", p.Identifier, err)
	}

	p.l.bus.Dispatch(events.Include, ev)
	slog.Debug("unit included", "identifier", p.Identifier, "uri", p.URI, "fields", len(props))
	return nil
}
