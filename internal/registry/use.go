package registry

import (
	"context"
	"log/slog"

	"github.com/roach88/nsreg/internal/events"
	"github.com/roach88/nsreg/internal/ident"
)

// UseOption adjusts a single use call.
type UseOption func(*useOptions)

type useOptions struct {
	autoInclude bool
	strict      bool
}

// WithAutoInclude overrides the configured auto-include policy.
func WithAutoInclude(on bool) UseOption {
	return func(o *useOptions) {
		o.autoInclude = on
	}
}

// WithStrict overrides the configured strict mode.
func WithStrict(on bool) UseOption {
	return func(o *useOptions) {
		o.strict = on
	}
}

func (r *Registry) useOptions(opts []UseOption) useOptions {
	cfg := r.Config()
	o := useOptions{autoInclude: cfg.AutoInclude, strict: cfg.Strict}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Use imports each identifier into the root, in order.
//
// For a wildcard identifier every child of its container is bound at the
// root. Otherwise the target is bound at the root under its last segment.
// A missing target is loaded first when auto-include is on; with it off the
// target is skipped, or reported as ErrCodeMissingBinding in strict mode.
// The first failure ends the call. A use event fires once the whole list
// was imported.
func (r *Registry) Use(ctx context.Context, ids []string, opts ...UseOption) error {
	o := r.useOptions(opts)
	for _, id := range ids {
		needsLoad, err := r.importTarget(id, o)
		if err != nil {
			return err
		}
		if !needsLoad {
			continue
		}
		if err := r.include(ctx, id); err != nil {
			return err
		}
		if err := r.importLoaded(id, o); err != nil {
			return err
		}
	}
	r.dispatchUse(ids)
	return nil
}

// UseAsync is Use with background loads. Identifiers are still imported
// strictly in order: the chain suspends on each load and resumes on the
// registry loop.
//
// An error detected before the first load starts is returned and done does
// not run. Otherwise done runs exactly once, with nil after the use event
// fired or with the error that ended the chain.
func (r *Registry) UseAsync(ctx context.Context, ids []string, done func(error), opts ...UseOption) error {
	if r.closed.Load() {
		return errClosed
	}
	c := &useChain{
		r:    r,
		ctx:  ctx,
		ids:  append([]string(nil), ids...),
		opts: r.useOptions(opts),
		done: done,
	}
	r.pending.Add(1)
	if err := c.advance(); err != nil {
		c.finished = true
		r.pending.Done()
		return err
	}
	return nil
}

// useChain walks the identifiers of one UseAsync call. Only one step is
// pending at a time; each auto-include resumes the chain from its
// continuation.
type useChain struct {
	r        *Registry
	ctx      context.Context
	ids      []string
	opts     useOptions
	done     func(error)
	i        int
	finished bool
}

// advance imports identifiers from position i until one needs a load or the
// list is exhausted. A returned error means the chain did not finish.
func (c *useChain) advance() error {
	for c.i < len(c.ids) {
		id := c.ids[c.i]
		needsLoad, err := c.r.importTarget(id, c.opts)
		if err != nil {
			return err
		}
		if needsLoad {
			return c.r.IncludeAsync(c.ctx, id, c.resume, c.finish)
		}
		c.i++
	}
	c.finish(nil)
	return nil
}

func (c *useChain) resume() {
	if err := c.r.importLoaded(c.ids[c.i], c.opts); err != nil {
		c.finish(err)
		return
	}
	c.i++
	if err := c.advance(); err != nil {
		c.finish(err)
	}
}

func (c *useChain) finish(err error) {
	if c.finished {
		return
	}
	c.finished = true
	defer c.r.pending.Done()

	if err == nil {
		c.r.dispatchUse(c.ids)
	}
	if c.done != nil {
		c.done(err)
	}
}

// importTarget binds the target of id at the root when it is present. It
// reports whether the target is missing and must be loaded first.
func (r *Registry) importTarget(id string, o useOptions) (needsLoad bool, err error) {
	sep := r.Separator()
	if err := validate(id, sep, false); err != nil {
		return false, err
	}

	container, target := ident.Target(id, sep)
	ns, err := r.Namespace(container, nil)
	if err != nil {
		return false, err
	}

	root := r.graph.Root()
	if target == ident.Wildcard {
		for _, e := range ns.Entries() {
			r.graph.Bind(root, e.Name, e.Node)
		}
		return false, nil
	}

	if child, ok := ns.Child(target); ok {
		r.graph.Bind(root, target, child)
		return false, nil
	}
	if o.autoInclude {
		return true, nil
	}
	return false, r.missing(id, o)
}

// importLoaded binds the target of id after its unit was loaded.
func (r *Registry) importLoaded(id string, o useOptions) error {
	container, target := ident.Target(id, r.Separator())
	ns, err := r.Namespace(container, nil)
	if err != nil {
		return err
	}
	child, ok := ns.Child(target)
	if !ok {
		return r.missing(id, o)
	}
	r.graph.Bind(r.graph.Root(), target, child)
	return nil
}

func (r *Registry) missing(id string, o useOptions) error {
	if o.strict {
		return newMissingBindingError(id)
	}
	slog.Debug("use target missing, skipped", "identifier", id)
	return nil
}

func (r *Registry) dispatchUse(ids []string) {
	e := &events.Event{Identifiers: append([]string(nil), ids...)}
	if len(ids) == 1 {
		e.Identifier = ids[0]
	}
	r.bus.Dispatch(events.Use, e)
}
