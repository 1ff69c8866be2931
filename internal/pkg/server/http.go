package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/autopeer-io/oscpeer/pkg/log"
	"github.com/autopeer-io/oscpeer/pkg/options"
)

// HTTPServer serves a handler on the address of an HttpOptions.
type HTTPServer struct {
	server  *http.Server
	options *options.HttpOptions
	logger  log.Logger

	// ready, when set, receives the bound address once listening.
	ready chan<- net.Addr
}

// HTTPOption configures an HTTPServer.
type HTTPOption func(*HTTPServer)

// WithReady sends the listener address on ch once the server accepts
// connections. The send does not block.
func WithReady(ch chan<- net.Addr) HTTPOption {
	return func(s *HTTPServer) {
		s.ready = ch
	}
}

// NewHTTPServer returns a server for handler. Only ReadHeaderTimeout is set;
// handlers that run a camera command wait for it as long as it takes.
func NewHTTPServer(name string, opts *options.HttpOptions, handler http.Handler, hopts ...HTTPOption) *HTTPServer {
	s := &HTTPServer{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: opts.Timeout,
		},
		options: opts,
		logger:  log.WithName(name),
	}
	for _, opt := range hopts {
		opt(s)
	}
	return s
}

func (s *HTTPServer) Start(ctx context.Context) error {
	network := s.options.Network
	if network == "" {
		network = "tcp"
	}
	ln, err := net.Listen(network, s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	// Request contexts end with ctx, so handlers waiting on a camera
	// return before Shutdown gives up on them.
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }
	s.logger.Info("Starting HTTP server", "addr", ln.Addr().String())
	if s.ready != nil {
		select {
		case s.ready <- ln.Addr():
		default:
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.options.ShutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		return s.server.Shutdown(shutdownCtx)
	}
}
