// Package http serves the console page, its result fragments, the JSON API,
// the probes and the metrics endpoint.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/oscpeer/internal/console/core"
	"github.com/autopeer-io/oscpeer/internal/pkg/server"
	"github.com/autopeer-io/oscpeer/pkg/log"
	"github.com/autopeer-io/oscpeer/pkg/options"
	"github.com/autopeer-io/oscpeer/pkg/osc"
	"github.com/autopeer-io/oscpeer/pkg/osc/command"
	"github.com/autopeer-io/oscpeer/pkg/osc/render"
)

// maxBodyBytes bounds command parameter bodies.
const maxBodyBytes = 1 << 20

// ReadyFunc reports why the console cannot serve yet, or nil.
type ReadyFunc func() error

// Deps are the collaborators of the console handlers.
type Deps struct {
	Service  *core.Service
	Renderer *render.HTML
	Metrics  http.Handler
	Ready    ReadyFunc

	// Host is shown on the page.
	Host func() string
}

// Server is the console's HTTP front end.
type Server struct {
	deps   Deps
	http   *server.HTTPServer
	logger log.Logger
}

// NewServer returns a console server listening on opts.Addr.
func NewServer(opts *options.HttpOptions, deps Deps, hopts ...server.HTTPOption) *Server {
	s := &Server{
		deps:   deps,
		logger: log.WithName("console-http"),
	}
	s.http = server.NewHTTPServer("console-http", opts, s.Handler(), hopts...)
	return s
}

func (s *Server) Start(ctx context.Context) error {
	return s.http.Start(ctx)
}

// Handler returns the console's routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.withRequestLogger)

	r.HandleFunc("/", s.handlePage).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics).Methods(http.MethodGet)
	}

	view := r.PathPrefix("/view").Subrouter()
	view.Handle("/commands/{name}", requireXSRF(s.handleCommand(s.writeFragment))).Methods(http.MethodPost)
	view.HandleFunc("/{endpoint}", s.handleEndpoint(s.writeFragment)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/commands/{name}", requireXSRF(s.handleCommand(s.writeJSON))).Methods(http.MethodPost)
	api.HandleFunc("/{endpoint}", s.handleEndpoint(s.writeJSON)).Methods(http.MethodGet)

	return r
}

// replyWriter writes the terminal reply of a request.
type replyWriter func(w http.ResponseWriter, rep command.Reply)

func (s *Server) handleEndpoint(write replyWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := mux.Vars(r)["endpoint"]
		rep, err := s.deps.Service.Fetch(r.Context(), endpoint)
		switch {
		case errors.Is(err, core.ErrUnknownEndpoint):
			http.NotFound(w, r)
			return
		case err != nil:
			log.FromContext(r.Context()).Debug("Camera did not answer before the request ended", "endpoint", endpoint, "err", err)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		write(w, rep)
	}
}

func (s *Server) handleCommand(write replyWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		params, err := readParameters(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		rep, err := s.deps.Service.Execute(r.Context(), name, params)
		if err != nil {
			log.FromContext(r.Context()).Debug("Command did not finish before the request ended", "command", name, "err", err)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		write(w, rep)
	}
}

// withRequestLogger stores a logger naming the request in its context.
func (s *Server) withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger.WithValues("method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(log.IntoContext(r.Context(), logger)))
	})
}

// requireXSRF rejects command requests a browser could send cross-site
// without a preflight.
func requireXSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(osc.HeaderXSRFProtected) != osc.XSRFProtectedValue {
			http.Error(w, "missing "+osc.HeaderXSRFProtected+" header", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// readParameters decodes the optional JSON object sent as command parameters.
// An empty body means no parameters at all.
func readParameters(r *http.Request) (map[string]any, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("parameters must be a JSON object: %w", err)
	}
	if params == nil {
		// A literal null; send {} rather than dropping the member.
		params = map[string]any{}
	}
	return params, nil
}

func (s *Server) writeFragment(w http.ResponseWriter, rep command.Reply) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, s.deps.Renderer.View(false, rep.StatusCode, rep.Body))
}

func (s *Server) writeJSON(w http.ResponseWriter, rep command.Reply) {
	data, err := json.Marshal(core.NewResult(rep))
	if err != nil {
		s.logger.Error(err, "Failed to encode reply")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set(osc.HeaderContentType, osc.MediaTypeJSON)
	_, _ = w.Write(data)
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	_, _ = io.WriteString(w, "ok")
}
