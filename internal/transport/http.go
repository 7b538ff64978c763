package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultHTTPTimeout bounds requests made by the default HTTP client.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPFactory serves http and https URIs.
type HTTPFactory struct {
	Client *http.Client
}

// HTTP returns a factory using client, or a client with DefaultHTTPTimeout
// when client is nil.
func HTTP(client *http.Client) HTTPFactory {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return HTTPFactory{Client: client}
}

func (f HTTPFactory) Name() string { return "http" }

func (f HTTPFactory) New(scheme string) (Transport, error) {
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("http: %w %q", ErrUnsupportedScheme, scheme)
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &httpTransport{client: client}, nil
}

type httpTransport struct {
	client *http.Client
}

func (t *httpTransport) Open(method, uri string, async bool) (Handle, error) {
	if method == "" {
		method = http.MethodGet
	}
	return &httpHandle{client: t.client, method: method, uri: uri, async: async}, nil
}

type httpHandle struct {
	states
	client *http.Client
	method string
	uri    string
	async  bool
}

func (h *httpHandle) Send(ctx context.Context, body io.Reader) (*Response, error) {
	h.emit(Opened)
	req, err := http.NewRequestWithContext(ctx, h.method, h.uri, body)
	if err != nil {
		h.emit(Done)
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.emit(Done)
		return nil, fmt.Errorf("send %s %s: %w", h.method, h.uri, err)
	}
	defer resp.Body.Close()
	h.emit(HeadersReceived)

	h.emit(Loading)
	data, err := io.ReadAll(resp.Body)
	h.emit(Done)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", h.uri, err)
	}
	return &Response{Status: resp.StatusCode, Body: data}, nil
}
