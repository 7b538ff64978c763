// Package transport performs the GET requests that fetch unit source.
//
// A Selector picks a Transport from an ordered list of factories, newest
// first. The first factory that supports the URI scheme wins and the choice is
// kept for the lifetime of the selector. When no factory can serve a scheme
// the selector reports an *UnavailableError; this is fatal for the caller and
// is never retried.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
)

// ReadyState mirrors the lifecycle of a request handle.
type ReadyState int

const (
	Unsent ReadyState = iota
	Opened
	HeadersReceived
	Loading
	Done
)

func (s ReadyState) String() string {
	switch s {
	case Unsent:
		return "unsent"
	case Opened:
		return "opened"
	case HeadersReceived:
		return "headers_received"
	case Loading:
		return "loading"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("ReadyState(%d)", int(s))
	}
}

// Response is a settled request. Status 0 means no status was reported.
type Response struct {
	Status int
	Body   []byte
}

// Transport opens request handles.
type Transport interface {
	Open(method, uri string, async bool) (Handle, error)
}

// Handle is one request.
type Handle interface {
	// Send performs the request and blocks until it settles. Network level
	// failures are returned as errors; HTTP failures are returned as a
	// Response with the failing status.
	Send(ctx context.Context, body io.Reader) (*Response, error)

	// OnStateChange registers fn to observe state transitions. Only Done is
	// terminal.
	OnStateChange(fn func(ReadyState))
}

// Factory constructs a Transport for a URI scheme.
type Factory interface {
	Name() string
	New(scheme string) (Transport, error)
}

// ErrUnsupportedScheme is returned by factories that cannot serve a scheme.
var ErrUnsupportedScheme = errors.New("unsupported scheme")

// UnavailableError reports that no factory could construct a transport.
type UnavailableError struct {
	URI    string
	Scheme string
	Tried  []string
	Errs   []error
}

func (e *UnavailableError) Error() string {
	scheme := e.Scheme
	if scheme == "" {
		scheme = "(none)"
	}
	if len(e.Tried) == 0 {
		return fmt.Sprintf("transport unavailable for %q: no factories configured", e.URI)
	}
	return fmt.Sprintf("transport unavailable for %q: scheme %s rejected by %s",
		e.URI, scheme, strings.Join(e.Tried, ", "))
}

func (e *UnavailableError) Unwrap() []error {
	return e.Errs
}

// IsUnavailable reports whether err is or wraps an *UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

type selection struct {
	t   Transport
	err *UnavailableError
}

// Selector chooses a transport per scheme, once.
type Selector struct {
	mu        sync.Mutex
	factories []Factory
	chosen    map[string]selection
}

// NewSelector creates a selector over factories in priority order.
func NewSelector(factories ...Factory) *Selector {
	return &Selector{
		factories: append([]Factory(nil), factories...),
		chosen:    make(map[string]selection),
	}
}

// Fixed returns a selector that always yields t.
func Fixed(t Transport) *Selector {
	return NewSelector(fixedFactory{t: t})
}

// For returns the transport serving uri.
func (s *Selector) For(uri string) (Transport, error) {
	scheme := Scheme(uri)

	s.mu.Lock()
	defer s.mu.Unlock()

	if sel, ok := s.chosen[scheme]; ok {
		if sel.err != nil {
			return nil, &UnavailableError{URI: uri, Scheme: scheme, Tried: sel.err.Tried, Errs: sel.err.Errs}
		}
		return sel.t, nil
	}

	fail := &UnavailableError{URI: uri, Scheme: scheme}
	for _, f := range s.factories {
		t, err := f.New(scheme)
		if err == nil && t != nil {
			s.chosen[scheme] = selection{t: t}
			return t, nil
		}
		if err == nil {
			err = fmt.Errorf("%s: nil transport", f.Name())
		}
		fail.Tried = append(fail.Tried, f.Name())
		fail.Errs = append(fail.Errs, err)
	}
	s.chosen[scheme] = selection{err: fail}
	return nil, fail
}

// Scheme returns the lower-cased scheme of uri, or "" for plain paths.
func Scheme(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// IsLocal reports whether uri points at a non-network origin: a plain path,
// a file URI or a privileged scheme.
func IsLocal(uri string) bool {
	switch Scheme(uri) {
	case "", "file", "chrome":
		return true
	default:
		return false
	}
}

// IsSuccessful decides whether a settled request succeeded. 2xx, 304 and the
// legacy 1223 count as success. A missing status (0) counts only for local
// origins.
func IsSuccessful(status int, uri string) bool {
	switch {
	case status >= 200 && status < 300:
		return true
	case status == 304, status == 1223:
		return true
	case status == 0:
		return IsLocal(uri)
	default:
		return false
	}
}

type fixedFactory struct {
	t Transport
}

func (f fixedFactory) Name() string { return "fixed" }

func (f fixedFactory) New(string) (Transport, error) {
	return f.t, nil
}

// states fans state transitions out to registered observers.
type states struct {
	mu  sync.Mutex
	fns []func(ReadyState)
}

func (s *states) OnStateChange(fn func(ReadyState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
}

func (s *states) emit(state ReadyState) {
	s.mu.Lock()
	fns := append(([]func(ReadyState))(nil), s.fns...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(state)
	}
}
