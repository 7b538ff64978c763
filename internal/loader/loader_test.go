package loader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nsreg/internal/events"
	"github.com/roach88/nsreg/internal/graph"
	"github.com/roach88/nsreg/internal/testutil"
	"github.com/roach88/nsreg/internal/transport"
)

type recordingBinder struct {
	mu    sync.Mutex
	bound map[string]graph.Props
	err   error
}

func (b *recordingBinder) Bind(id string, props graph.Props) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	if b.bound == nil {
		b.bound = make(map[string]graph.Props)
	}
	b.bound[id] = props
	return nil
}

func mapURI(id string) string {
	return "mem://units/" + id + ".cue"
}

type fixture struct {
	loader *Loader
	mem    *testutil.MemoryTransport
	binder *recordingBinder
	bus    *events.Bus

	mu     sync.Mutex
	events []*events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		mem:    testutil.NewMemoryTransport(nil),
		binder: &recordingBinder{},
		bus:    events.NewBus(),
	}
	for _, name := range events.Names {
		f.bus.Add(name, func(e *events.Event) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.events = append(f.events, e)
		})
	}
	f.loader = New(Config{
		MapURI:     mapURI,
		Transports: f.mem.Selector(),
		Binder:     f.binder,
		Bus:        f.bus,
		IDs:        testutil.NewSequentialIDs(""),
	})
	return f
}

// load runs the three steps of a synchronous load.
func (f *fixture) load(id string) error {
	p, err := f.loader.Begin(id, false)
	if err != nil {
		return err
	}
	p.Fetch(context.Background())
	return p.Settle(context.Background())
}

func (f *fixture) recorded() []*events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*events.Event(nil), f.events...)
}

func TestLoad_Success(t *testing.T) {
	f := newFixture(t)
	f.mem.Serve("mem://units/app.cue", `greeting: "hi"`)

	err := f.load("app")
	require.NoError(t, err)

	props := f.binder.bound["app"]
	v, ok := props.Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "hi", v)

	evs := f.recorded()
	require.Len(t, evs, 1)
	assert.Equal(t, events.Include, evs[0].Name)
	assert.Equal(t, "app", evs[0].Identifier)
	assert.Equal(t, "mem://units/app.cue", evs[0].URI)
	assert.False(t, evs[0].Async)
	assert.Equal(t, "load-1", evs[0].LoadID)
}

func TestLoad_HTTPFailureFiresIncludeError(t *testing.T) {
	f := newFixture(t)
	f.mem.ServeStatus("mem://units/gone.cue", 410, "")

	err := f.load("gone")
	require.Error(t, err)
	assert.True(t, IsStatusError(err))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 410, se.Status)

	evs := f.recorded()
	require.Len(t, evs, 1)
	assert.Equal(t, events.IncludeError, evs[0].Name)
	assert.Equal(t, 410, evs[0].Status)
	assert.Empty(t, f.binder.bound)
}

func TestLoad_FatalTransportFiresNothing(t *testing.T) {
	f := newFixture(t)
	f.loader.transports = transport.NewSelector(testutil.BrokenFactory{Label: "modern"}, testutil.BrokenFactory{Label: "legacy"})

	err := f.load("app")
	require.Error(t, err)
	assert.True(t, transport.IsUnavailable(err))
	assert.Empty(t, f.recorded())
}

func TestLoad_EvaluationErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.mem.Serve("mem://units/bad.cue", "[not, a, mapping")

	err := f.load("bad")
	require.Error(t, err)
	assert.False(t, IsStatusError(err))
	assert.Empty(t, f.recorded(), "evaluation failures fire no lifecycle event")
}

func TestLoad_BindErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.mem.Serve("mem://units/app.cue", `x: 1`)
	f.binder.err = errors.New("read only")

	err := f.load("app")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read only")
	assert.Empty(t, f.recorded())
}

func TestPendingLoad_FetchAndSettleOnDifferentGoroutines(t *testing.T) {
	f := newFixture(t)
	f.mem.Serve("mem://units/app.cue", `x: 1`)

	p, err := f.loader.Begin("app", true)
	require.NoError(t, err)

	fetched := make(chan struct{})
	go func() {
		defer close(fetched)
		p.Fetch(context.Background())
	}()
	select {
	case <-fetched:
	case <-time.After(time.Second):
		t.Fatal("fetch did not finish")
	}
	assert.Empty(t, f.recorded(), "fetch dispatches nothing")

	require.NoError(t, p.Settle(context.Background()))
	evs := f.recorded()
	require.Len(t, evs, 1)
	assert.Equal(t, events.Include, evs[0].Name)
	assert.True(t, evs[0].Async)
}

func TestPendingLoad_NotFoundFiresIncludeError(t *testing.T) {
	f := newFixture(t)

	err := f.load("missing")
	require.Error(t, err)
	assert.True(t, IsStatusError(err))

	evs := f.recorded()
	require.Len(t, evs, 1)
	assert.Equal(t, events.IncludeError, evs[0].Name)
	assert.Equal(t, 404, evs[0].Status)
}

func TestPendingLoad_SettleWithoutStatusOnLocalOrigin(t *testing.T) {
	f := newFixture(t)
	f.loader.mapURI = func(id string) string { return "./" + id + ".cue" }
	f.mem.ServeStatus("./local.cue", 0, `x: 1`)

	p, err := f.loader.Begin("local", false)
	require.NoError(t, err)
	p.Fetch(context.Background())
	require.NoError(t, p.Settle(context.Background()))
	assert.True(t, p.Succeeded())
	assert.Equal(t, 0, p.Status())
}

func TestPendingLoad_NoStatusOnNetworkOriginFails(t *testing.T) {
	f := newFixture(t)
	f.mem.ServeStatus("mem://units/remote.cue", 0, `x: 1`)

	err := f.load("remote")
	require.Error(t, err)
	assert.True(t, IsStatusError(err))
}

func TestPendingLoad_FetchOnce(t *testing.T) {
	f := newFixture(t)
	f.mem.Serve("mem://units/app.cue", `x: 1`)

	p, err := f.loader.Begin("app", false)
	require.NoError(t, err)
	p.Fetch(context.Background())
	p.Fetch(context.Background())

	assert.Equal(t, 1, f.mem.Requests("mem://units/app.cue"))
}

func TestUUIDv7Generator(t *testing.T) {
	a := UUIDv7Generator{}.Generate()
	b := UUIDv7Generator{}.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
