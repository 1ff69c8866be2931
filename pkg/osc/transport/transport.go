// Package transport performs single OSC HTTP round trips and delivers their
// outcome to a completion callback on a loop.Scheduler.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/autopeer-io/oscpeer/pkg/log"
	"github.com/autopeer-io/oscpeer/pkg/osc"
	"github.com/autopeer-io/oscpeer/pkg/osc/loop"
	"github.com/autopeer-io/oscpeer/pkg/osc/value"
)

// StatusNetworkError is the status reported when no HTTP response arrived.
const StatusNetworkError = 0

// Completion receives the outcome of one request. body is nil when the
// response was empty, not 2xx, or not JSON.
type Completion func(status int, body value.Value)

// Transport issues one request per call and invokes done exactly once.
// Failures are reported through done, never returned.
type Transport interface {
	Request(ctx context.Context, method, path string, body any, done Completion)
}

// Get issues a GET request without a body.
func Get(ctx context.Context, t Transport, path string, done Completion) {
	t.Request(ctx, http.MethodGet, path, nil, done)
}

// Post issues a POST request with body serialized as JSON.
func Post(ctx context.Context, t Transport, path string, body any, done Completion) {
	t.Request(ctx, http.MethodPost, path, body, done)
}

var _ Transport = (*HTTP)(nil)

// HTTP is a Transport over net/http. The client has no timeout.
type HTTP struct {
	host   string
	client *http.Client
	sched  loop.Scheduler
	logger log.Logger
}

// Option configures an HTTP transport.
type Option func(*HTTP)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *HTTP) {
		t.client = c
	}
}

// WithLogger sets the logger used for failed round trips.
func WithLogger(l log.Logger) Option {
	return func(t *HTTP) {
		t.logger = l
	}
}

// NewHTTP returns a transport sending requests to host (scheme and
// authority, e.g. "http://192.168.42.1"). Completions are posted to sched.
func NewHTTP(host string, sched loop.Scheduler, opts ...Option) *HTTP {
	t := &HTTP{
		host:   strings.TrimSuffix(host, "/"),
		client: &http.Client{},
		sched:  sched,
		logger: log.WithName("transport"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Host returns the configured camera host.
func (t *HTTP) Host() string {
	return t.host
}

func (t *HTTP) Request(ctx context.Context, method, path string, body any, done Completion) {
	go func() {
		status, v := t.roundTrip(ctx, method, path, body)
		t.sched.Post(func() {
			done(status, v)
		})
	}()
}

// CloseIdleConnections drops kept-alive connections to the camera.
func (t *HTTP) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

func (t *HTTP) roundTrip(ctx context.Context, method, path string, body any) (int, value.Value) {
	logger := t.logger.WithValues("method", method, "path", path)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			logger.Error(err, "Failed to encode request body")
			return StatusNetworkError, nil
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.host+path, reader)
	if err != nil {
		logger.Error(err, "Failed to build request")
		return StatusNetworkError, nil
	}
	req.Header.Set(osc.HeaderAccept, osc.MediaTypeJSON)
	req.Header.Set(osc.HeaderXSRFProtected, osc.XSRFProtectedValue)
	if body != nil {
		req.Header.Set(osc.HeaderContentType, osc.ContentTypeJSON)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		logger.Debug("Request failed", "error", err)
		return StatusNetworkError, nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Debug("Failed to read response body", "status", resp.StatusCode, "error", err)
		return resp.StatusCode, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Debug("Camera returned a failure status", "status", resp.StatusCode, "body", snippet(data))
		return resp.StatusCode, nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}

	v, err := value.Parse(data)
	if err != nil {
		logger.Debug("Response body is not JSON", "status", resp.StatusCode, "error", err)
		return resp.StatusCode, nil
	}
	if s, ok := v.(value.Scalar); ok && s.IsNull() {
		// A null document carries no result.
		return resp.StatusCode, nil
	}
	return resp.StatusCode, v
}

func snippet(data []byte) string {
	const max = 256
	if len(data) > max {
		return fmt.Sprintf("%s...(%d bytes)", data[:max], len(data))
	}
	return string(data)
}
