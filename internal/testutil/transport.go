package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/roach88/nsreg/internal/transport"
)

// Unit is a canned response of a MemoryTransport.
type Unit struct {
	Status int
	Body   string
}

// MemoryTransport serves canned units by URI and counts requests. URIs with
// no unit answer 404. It is safe for concurrent use.
type MemoryTransport struct {
	mu       sync.Mutex
	units    map[string]Unit
	requests map[string]int
	gate     chan struct{}
}

// NewMemoryTransport creates a transport serving units.
func NewMemoryTransport(units map[string]Unit) *MemoryTransport {
	m := &MemoryTransport{
		units:    make(map[string]Unit, len(units)),
		requests: make(map[string]int),
	}
	for uri, u := range units {
		m.units[uri] = u
	}
	return m
}

// Serve adds or replaces the unit at uri with a 200 response.
func (m *MemoryTransport) Serve(uri, body string) {
	m.ServeStatus(uri, 200, body)
}

// ServeStatus adds or replaces the unit at uri.
func (m *MemoryTransport) ServeStatus(uri string, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[uri] = Unit{Status: status, Body: body}
}

// Hold makes every Send block until Release is called.
func (m *MemoryTransport) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = make(chan struct{})
}

// Release unblocks sends held by Hold.
func (m *MemoryTransport) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// Requests returns how many times uri was sent.
func (m *MemoryTransport) Requests(uri string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[uri]
}

// TotalRequests returns the number of sends across all URIs.
func (m *MemoryTransport) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.requests {
		total += n
	}
	return total
}

// Open implements transport.Transport.
func (m *MemoryTransport) Open(method, uri string, async bool) (transport.Handle, error) {
	return &memoryHandle{m: m, uri: uri}, nil
}

// Selector wraps m in a selector that serves every scheme.
func (m *MemoryTransport) Selector() *transport.Selector {
	return transport.Fixed(m)
}

type memoryHandle struct {
	m   *MemoryTransport
	uri string
	fns []func(transport.ReadyState)
}

func (h *memoryHandle) OnStateChange(fn func(transport.ReadyState)) {
	h.fns = append(h.fns, fn)
}

func (h *memoryHandle) Send(ctx context.Context, _ io.Reader) (*transport.Response, error) {
	h.m.mu.Lock()
	h.m.requests[h.uri]++
	gate := h.m.gate
	h.m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	h.m.mu.Lock()
	u, ok := h.m.units[h.uri]
	h.m.mu.Unlock()

	for _, fn := range h.fns {
		fn(transport.Loading)
		fn(transport.Done)
	}
	if !ok {
		return &transport.Response{Status: 404}, nil
	}
	return &transport.Response{Status: u.Status, Body: []byte(u.Body)}, nil
}

// BrokenFactory never constructs a transport.
type BrokenFactory struct {
	Label string
}

func (f BrokenFactory) Name() string {
	if f.Label == "" {
		return "broken"
	}
	return f.Label
}

func (f BrokenFactory) New(scheme string) (transport.Transport, error) {
	return nil, fmt.Errorf("%s: %w %q", f.Name(), transport.ErrUnsupportedScheme, scheme)
}
