// Package registry is the public entry point: an explicit namespace registry
// context that creates and resolves identifiers in its graph, loads missing
// units through the loader at most once, and dispatches lifecycle events.
//
// Several registries can live side by side; nothing is process-wide.
//
// Thread-safety model:
//   - every method is safe for concurrent use
//   - continuations of async operations run on the registry loop, one at a
//     time in FIFO order
//   - listeners run synchronously on the goroutine that dispatched the
//     event; for async loads that is the registry loop
//   - Wait and Close must not be called from a continuation
package registry

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/nsreg/internal/evaluate"
	"github.com/roach88/nsreg/internal/events"
	"github.com/roach88/nsreg/internal/graph"
	"github.com/roach88/nsreg/internal/ident"
	"github.com/roach88/nsreg/internal/loader"
	"github.com/roach88/nsreg/internal/transport"
)

// Defaults applied by DefaultConfig.
const (
	DefaultBaseURI = "./"
	DefaultSuffix  = ".cue"
)

// Config holds the settings read at call time. Changing them affects every
// operation that starts afterwards.
type Config struct {
	// Separator joins identifier segments.
	Separator string

	// BaseURI prefixes every mapped URI.
	BaseURI string

	// Suffix is appended to every mapped URI.
	Suffix string

	// AutoInclude makes use load missing targets.
	AutoInclude bool

	// Strict makes use report a missing target it will not load as
	// ErrCodeMissingBinding instead of skipping it.
	Strict bool
}

// DefaultConfig returns separator ".", base URI "./", suffix ".cue" and
// auto-include on.
func DefaultConfig() Config {
	return Config{
		Separator:   ident.DefaultSeparator,
		BaseURI:     DefaultBaseURI,
		Suffix:      DefaultSuffix,
		AutoInclude: true,
	}
}

// Registry is one namespace registry.
type Registry struct {
	cfgMu  sync.RWMutex
	cfg    Config
	mapper func(identifier string) string

	graph      *graph.Graph
	bus        *events.Bus
	transports *transport.Selector
	evaluator  evaluate.Evaluator
	loadIDs    loader.IDGenerator
	loader     *loader.Loader

	incMu    sync.Mutex
	included map[string]bool
	loads    map[string]*unitLoad
	flights  singleflight.Group

	queue     *taskQueue
	pending   sync.WaitGroup
	loopDone  chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// Option configures a Registry.
type Option func(*Registry)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(r *Registry) {
		r.cfg = normalize(cfg)
	}
}

// WithTransport makes every load go through sel. Tests pass a selector
// wrapping a fake.
func WithTransport(sel *transport.Selector) Option {
	return func(r *Registry) {
		r.transports = sel
	}
}

// WithTransportFactories sets the factories tried, in order, for each URI
// scheme. The default is HTTP, then file.
func WithTransportFactories(factories ...transport.Factory) Option {
	return func(r *Registry) {
		r.transports = transport.NewSelector(factories...)
	}
}

// WithEvaluator replaces the default CUE, HCL, YAML chain.
func WithEvaluator(e evaluate.Evaluator) Option {
	return func(r *Registry) {
		r.evaluator = e
	}
}

// WithLoadIDs replaces the UUIDv7 load ID generator.
func WithLoadIDs(g loader.IDGenerator) Option {
	return func(r *Registry) {
		r.loadIDs = g
	}
}

// WithURIMapper installs a custom identifier to URI policy.
func WithURIMapper(fn func(identifier string) string) Option {
	return func(r *Registry) {
		r.mapper = fn
	}
}

// New creates a registry and starts its loop. Call Close to stop it.
func New(opts ...Option) *Registry {
	r := &Registry{
		cfg:      DefaultConfig(),
		graph:    graph.New(),
		bus:      events.NewBus(),
		included: make(map[string]bool),
		loads:    make(map[string]*unitLoad),
		queue:    newTaskQueue(),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.transports == nil {
		r.transports = transport.NewSelector(transport.HTTP(nil), transport.File(nil))
	}

	r.loader = loader.New(loader.Config{
		MapURI:     r.MapIdentifierToURI,
		Transports: r.transports,
		Evaluator:  r.evaluator,
		Binder:     unitBinder{r},
		Bus:        r.bus,
		IDs:        r.loadIDs,
	})

	go func() {
		defer close(r.loopDone)
		r.queue.run()
	}()
	return r
}

func normalize(cfg Config) Config {
	if cfg.Separator == "" {
		cfg.Separator = ident.DefaultSeparator
	}
	return cfg
}

// Config returns a snapshot of the current configuration.
func (r *Registry) Config() Config {
	r.cfgMu.RLock()
	defer r.cfgMu.RUnlock()
	return r.cfg
}

// Separator returns the current identifier separator.
func (r *Registry) Separator() string {
	return r.Config().Separator
}

func (r *Registry) SetSeparator(sep string) {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	if sep == "" {
		sep = ident.DefaultSeparator
	}
	r.cfg.Separator = sep
}

func (r *Registry) SetBaseURI(base string) {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	r.cfg.BaseURI = base
}

func (r *Registry) SetSuffix(suffix string) {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	r.cfg.Suffix = suffix
}

func (r *Registry) SetAutoInclude(on bool) {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	r.cfg.AutoInclude = on
}

func (r *Registry) SetStrict(on bool) {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	r.cfg.Strict = on
}

// SetURIMapper replaces the identifier to URI policy. nil restores the
// default mapping.
func (r *Registry) SetURIMapper(fn func(identifier string) string) {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	r.mapper = fn
}

// MapIdentifierToURI maps id to the URI of its unit. The default policy turns
// separators into "/" below the base URI and appends the suffix:
//
//	app.util.Format -> ./app/util/Format.cue
func (r *Registry) MapIdentifierToURI(id string) string {
	r.cfgMu.RLock()
	cfg, mapper := r.cfg, r.mapper
	r.cfgMu.RUnlock()

	if mapper != nil {
		return mapper(id)
	}
	return cfg.BaseURI + ident.ToPath(id, cfg.Separator) + cfg.Suffix
}

// Namespace materializes id and returns its node. Missing intermediate
// containers are created. An existing node is returned unchanged and
// attachment is ignored. Otherwise attachment decides the new node:
// graph.Props and map[string]any are merged field by field, any other value
// becomes the leaf. A create event fires on every successful call.
//
// The empty identifier returns the root.
func (r *Registry) Namespace(id string, attachment any) (*graph.Node, error) {
	sep := r.Separator()
	if err := validate(id, sep, true); err != nil {
		return nil, err
	}
	if ident.IsWildcard(id, sep) {
		return nil, newInvalidIdentifierError(id, errWildcardNamespace)
	}

	node, created := r.graph.CreateOrGet(ident.Split(id, sep), attachment)
	if created {
		slog.Debug("namespace created", "identifier", id)
	}
	r.bus.Dispatch(events.Create, &events.Event{Identifier: id})
	return node, nil
}

// Exist reports whether id is fully materialized. The root always exists.
func (r *Registry) Exist(id string) bool {
	return r.graph.Exist(ident.Split(id, r.Separator()))
}

// Lookup returns the node at id.
func (r *Registry) Lookup(id string) (*graph.Node, bool) {
	return r.graph.Lookup(ident.Split(id, r.Separator()))
}

// Get returns the plain Go value at id: the attached value of a leaf or a
// map of the children of a container.
func (r *Registry) Get(id string) (any, bool) {
	n, ok := r.Lookup(id)
	if !ok {
		return nil, false
	}
	return n.Interface(), true
}

// Root returns the global node that use binds into.
func (r *Registry) Root() *graph.Node {
	return r.graph.Root()
}

// Bind merges props into the namespace at id, creating it if needed. Fields
// already present are replaced. A create event fires. Bind is how loaded
// units reach the graph.
func (r *Registry) Bind(id string, props graph.Props) error {
	return r.bind(id, props, nil)
}

// bind runs bound, if set, between the merge and the create event.
func (r *Registry) bind(id string, props graph.Props, bound func()) error {
	sep := r.Separator()
	if err := validate(id, sep, true); err != nil {
		return err
	}
	node, _ := r.graph.CreateOrGet(ident.Split(id, sep), nil)
	for _, f := range props {
		node.Set(f.Name, f.Value)
	}
	if bound != nil {
		bound()
	}
	r.bus.Dispatch(events.Create, &events.Event{Identifier: id})
	return nil
}

// AddEventListener appends fn to the listeners of event name.
func (r *Registry) AddEventListener(name string, fn events.ListenerFunc) *events.Handle {
	return r.bus.Add(name, fn)
}

// RemoveEventListener removes the registration h from event name.
func (r *Registry) RemoveEventListener(name string, h *events.Handle) {
	r.bus.Remove(name, h)
}

// Wait blocks until every async include and use started so far has run its
// continuations.
func (r *Registry) Wait() {
	r.pending.Wait()
}

// Close waits for outstanding async work and stops the loop. Async
// operations started after Close fail with ErrCodeClosed.
func (r *Registry) Close() error {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		r.pending.Wait()
		r.queue.Close()
		<-r.loopDone
	})
	return nil
}

// enqueue schedules fn on the loop and releases one pending slot after it ran.
func (r *Registry) enqueue(fn func()) {
	ok := r.queue.Enqueue(func() {
		defer r.pending.Done()
		fn()
	})
	if !ok {
		r.pending.Done()
		slog.Warn("continuation dropped: registry closed")
	}
}
