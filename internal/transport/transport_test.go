package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSuccessful(t *testing.T) {
	tests := []struct {
		name   string
		status int
		uri    string
		want   bool
	}{
		{"200", 200, "http://x/a.cue", true},
		{"204", 204, "http://x/a.cue", true},
		{"299", 299, "http://x/a.cue", true},
		{"304", 304, "http://x/a.cue", true},
		{"legacy 1223", 1223, "http://x/a.cue", true},
		{"300", 300, "http://x/a.cue", false},
		{"404", 404, "http://x/a.cue", false},
		{"500", 500, "https://x/a.cue", false},
		{"no status network origin", 0, "http://x/a.cue", false},
		{"no status plain path", 0, "./a/b.cue", true},
		{"no status file uri", 0, "file:///tmp/a.cue", true},
		{"no status privileged scheme", 0, "chrome://ext/a.cue", true},
		{"404 on local origin", 404, "./a.cue", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSuccessful(tt.status, tt.uri))
		})
	}
}

func TestScheme(t *testing.T) {
	assert.Equal(t, "", Scheme("./a/b.cue"))
	assert.Equal(t, "http", Scheme("HTTP://example.com/a"))
	assert.Equal(t, "file", Scheme("file:///a"))
}

type failingFactory struct{ name string }

func (f failingFactory) Name() string { return f.name }
func (f failingFactory) New(scheme string) (Transport, error) {
	return nil, fmt.Errorf("%s: %w %q", f.name, ErrUnsupportedScheme, scheme)
}

type countingFactory struct {
	calls *int
	t     Transport
}

func (f countingFactory) Name() string { return "counting" }
func (f countingFactory) New(string) (Transport, error) {
	*f.calls++
	return f.t, nil
}

func TestSelector_FirstSupportingFactoryWins(t *testing.T) {
	s := NewSelector(HTTP(nil), File(fstest.MapFS{}))

	tr, err := s.For("http://example.com/a.cue")
	require.NoError(t, err)
	assert.IsType(t, &httpTransport{}, tr)

	tr, err = s.For("./a.cue")
	require.NoError(t, err)
	assert.IsType(t, &fileTransport{}, tr)
}

func TestSelector_SelectsOncePerScheme(t *testing.T) {
	calls := 0
	s := NewSelector(countingFactory{calls: &calls, t: &fileTransport{}})

	for i := 0; i < 3; i++ {
		_, err := s.For("./a.cue")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
}

func TestSelector_AllFactoriesFailIsFatal(t *testing.T) {
	s := NewSelector(failingFactory{"modern"}, failingFactory{"legacy"})

	_, err := s.For("http://example.com/a.cue")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.True(t, errors.Is(err, ErrUnsupportedScheme))

	var ue *UnavailableError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, []string{"modern", "legacy"}, ue.Tried)
	assert.Contains(t, err.Error(), "modern, legacy")

	// the failure is remembered, not retried
	_, err = s.For("http://example.com/b.cue")
	assert.True(t, IsUnavailable(err))
}

func TestSelector_NoFactories(t *testing.T) {
	_, err := NewSelector().For("./a.cue")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Contains(t, err.Error(), "no factories")
}

func TestHTTPTransport_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.cue" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "x: 1")
	}))
	defer srv.Close()

	tr, err := HTTP(srv.Client()).New("http")
	require.NoError(t, err)

	h, err := tr.Open("GET", srv.URL+"/a.cue", false)
	require.NoError(t, err)

	var states []ReadyState
	h.OnStateChange(func(s ReadyState) { states = append(states, s) })

	resp, err := h.Send(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "x: 1", string(resp.Body))
	assert.Equal(t, []ReadyState{Opened, HeadersReceived, Loading, Done}, states)

	h, err = tr.Open("GET", srv.URL+"/missing.cue", false)
	require.NoError(t, err)
	resp, err = h.Send(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status)
}

func TestHTTPFactory_RejectsOtherSchemes(t *testing.T) {
	_, err := HTTP(nil).New("file")
	assert.True(t, errors.Is(err, ErrUnsupportedScheme))
}

func TestFileTransport_Send(t *testing.T) {
	fsys := fstest.MapFS{
		"units/app/util.cue": &fstest.MapFile{Data: []byte("x: 1")},
	}
	tr, err := File(fsys).New("")
	require.NoError(t, err)

	h, err := tr.Open("GET", "./units/app/util.cue", false)
	require.NoError(t, err)
	resp, err := h.Send(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Status, "file reads report no status")
	assert.Equal(t, "x: 1", string(resp.Body))
	assert.True(t, IsSuccessful(resp.Status, "./units/app/util.cue"))

	h, err = tr.Open("GET", "file:///units/app/missing.cue", true)
	require.NoError(t, err)
	resp, err = h.Send(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status)
}

func TestFileTransport_OperatingSystemPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app"), 0o755))
	unit := filepath.Join(dir, "app", "util.cue")
	require.NoError(t, os.WriteFile(unit, []byte("x: 1"), 0o644))

	tr, err := File(nil).New("")
	require.NoError(t, err)

	for _, uri := range []string{unit, "file://" + unit} {
		h, err := tr.Open("GET", uri, false)
		require.NoError(t, err)
		resp, err := h.Send(context.Background(), nil)
		require.NoError(t, err, uri)
		assert.Equal(t, "x: 1", string(resp.Body), "absolute paths read from the filesystem root: %s", uri)
	}

	h, err := tr.Open("GET", "./file.go", false)
	require.NoError(t, err)
	resp, err := h.Send(context.Background(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Body, "relative paths read from the working directory")
}

func TestFileTransport_RejectsEscapingPaths(t *testing.T) {
	tr, err := File(fstest.MapFS{}).New("")
	require.NoError(t, err)

	_, err = tr.Open("GET", "../secret.cue", false)
	assert.Error(t, err)

	_, err = tr.Open("POST", "a.cue", false)
	assert.Error(t, err)
}

func TestReadyState_String(t *testing.T) {
	assert.Equal(t, "done", Done.String())
	assert.Equal(t, "ReadyState(9)", ReadyState(9).String())
}
