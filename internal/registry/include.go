package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/nsreg/internal/events"
	"github.com/roach88/nsreg/internal/graph"
	"github.com/roach88/nsreg/internal/ident"
	"github.com/roach88/nsreg/internal/loader"
)

// Included reports whether id is marked included.
func (r *Registry) Included(id string) bool {
	r.incMu.Lock()
	defer r.incMu.Unlock()
	return r.included[id]
}

// markIncluded marks id and reports whether it was unmarked before.
func (r *Registry) markIncluded(id string) bool {
	r.incMu.Lock()
	defer r.incMu.Unlock()
	if r.included[id] {
		return false
	}
	r.included[id] = true
	return true
}

// Include loads the unit of id unless it is already included, blocking until
// the load settled.
//
// It returns true when id is included afterwards. A failed request is
// reported through an includeError event and yields a nil error; the result
// is false unless a listener included id in the meantime. A fatal transport
// condition, an evaluation failure or a bind failure is returned as an error.
//
// Listeners of the load run on the calling goroutine and may include the
// same identifier again: while its unit is being bound it already counts as
// included, and after a failed request a nested call sends a new one.
func (r *Registry) Include(ctx context.Context, id string) (bool, error) {
	if err := validate(id, r.Separator(), false); err != nil {
		return false, err
	}
	err := r.include(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case loader.IsStatusError(err):
		return r.Included(id), nil
	default:
		return false, err
	}
}

// IncludeAsync loads the unit of id in the background.
//
// When id is already included, onSuccess runs before IncludeAsync returns and
// no request is made. A fatal transport condition is returned at once and
// no continuation runs. Otherwise IncludeAsync returns nil and exactly one of
// onSuccess or onError later runs on the registry loop. Either may be nil.
//
// Only the request runs in the background. The unit is evaluated and bound,
// and its lifecycle events dispatched, on the registry loop. A synchronous
// include of the same identifier that gets there first settles the load on
// its own goroutine instead.
func (r *Registry) IncludeAsync(ctx context.Context, id string, onSuccess func(), onError func(error)) error {
	if err := validate(id, r.Separator(), false); err != nil {
		return err
	}
	if r.closed.Load() {
		return errClosed
	}
	if r.Included(id) {
		if onSuccess != nil {
			onSuccess()
		}
		return nil
	}
	if _, err := r.transports.For(r.MapIdentifierToURI(id)); err != nil {
		return err
	}

	complete := func(err error) {
		switch {
		case err != nil && onError != nil:
			onError(err)
		case err == nil && onSuccess != nil:
			onSuccess()
		}
	}

	r.pending.Add(1)
	go func() {
		u, err := r.fetch(ctx, id, true)
		if err != nil || u == nil {
			r.enqueue(func() { complete(err) })
			return
		}
		r.enqueue(func() {
			if u.claim() {
				complete(r.settle(ctx, u))
				return
			}
			select {
			case <-u.done:
				complete(u.err)
			default:
				// Settling on another goroutine; resume once it is done.
				r.pending.Add(1)
				go func() {
					<-u.done
					r.enqueue(func() { complete(u.err) })
				}()
			}
		})
	}()
	return nil
}

// unitLoad is a fetched load waiting to be settled. Exactly one caller claims
// and settles it; the others wait on done.
type unitLoad struct {
	p *loader.PendingLoad

	mu      sync.Mutex
	claimed bool

	done chan struct{}
	err  error
}

func (u *unitLoad) claim() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.claimed {
		return false
	}
	u.claimed = true
	return true
}

// include loads id at most once and settles the load on the calling
// goroutine, or waits for the caller that claimed it.
func (r *Registry) include(ctx context.Context, id string) error {
	if r.Included(id) {
		return nil
	}
	u, err := r.fetch(ctx, id, false)
	if err != nil || u == nil {
		return err
	}
	if !u.claim() {
		<-u.done
		return u.err
	}
	return r.settle(ctx, u)
}

// fetch returns the load of id, sending its request unless one was already
// fetched and not yet settled. It returns nil when id is included. Concurrent
// callers share a single request; no listener runs while it is in flight.
func (r *Registry) fetch(ctx context.Context, id string, async bool) (*unitLoad, error) {
	v, err, shared := r.flights.Do(id, func() (any, error) {
		r.incMu.Lock()
		if r.included[id] {
			r.incMu.Unlock()
			return nil, nil
		}
		if u, ok := r.loads[id]; ok {
			r.incMu.Unlock()
			return u, nil
		}
		r.incMu.Unlock()

		p, err := r.loader.Begin(id, async)
		if err != nil {
			return nil, err
		}
		p.Fetch(ctx)

		u := &unitLoad{p: p, done: make(chan struct{})}
		r.incMu.Lock()
		r.loads[id] = u
		r.incMu.Unlock()
		return u, nil
	})
	if shared {
		slog.Debug("include shared in-flight load", "identifier", id)
	}
	if err != nil {
		return nil, err
	}
	u, _ := v.(*unitLoad)
	return u, nil
}

// settle evaluates and binds a claimed load and dispatches its events. A
// failed request is forgotten before includeError fires, so a retry from a
// listener sends a new one.
func (r *Registry) settle(ctx context.Context, u *unitLoad) error {
	defer close(u.done)
	defer r.forget(u)

	if !u.p.Succeeded() {
		r.forget(u)
	}
	u.err = u.p.Settle(ctx)
	return u.err
}

func (r *Registry) forget(u *unitLoad) {
	r.incMu.Lock()
	defer r.incMu.Unlock()
	if r.loads[u.p.Identifier] == u {
		delete(r.loads, u.p.Identifier)
	}
}

// unitBinder binds loaded units. The identifier is marked included once its
// fields are in the graph, before create fires.
type unitBinder struct {
	r *Registry
}

func (b unitBinder) Bind(id string, props graph.Props) error {
	return b.r.bind(id, props, func() { b.r.markIncluded(id) })
}

// Provide declares each identifier as defined by the caller. An identifier
// that is neither materialized nor included is marked included without any
// load, and a provide event fires for it. Others are left alone.
func (r *Registry) Provide(ids ...string) error {
	sep := r.Separator()
	for _, id := range ids {
		if err := validate(id, sep, false); err != nil {
			return err
		}
	}
	for _, id := range ids {
		r.incMu.Lock()
		fresh := !r.included[id] && !r.graph.Exist(ident.Split(id, sep))
		if fresh {
			r.included[id] = true
		}
		r.incMu.Unlock()

		if fresh {
			r.bus.Dispatch(events.Provide, &events.Event{Identifier: id})
		}
	}
	return nil
}
