package simulator

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/oscpeer/pkg/osc"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler returns the camera's HTTP API.
func (c *Camera) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(c.logRequests)

	api := r.PathPrefix("/osc").Subrouter()
	if c.opts.RequireXSRF {
		api.Use(requireXSRF)
	}
	api.HandleFunc("/info", c.handleInfo).Methods(http.MethodGet)
	api.HandleFunc("/state", c.handleState).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/checkForUpdates", c.handleCheckForUpdates).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/commands/execute", c.handleExecute).Methods(http.MethodPost)
	api.HandleFunc("/commands/status", c.handleStatus).Methods(http.MethodPost)

	r.HandleFunc("/files/{name}", c.handleFile).Methods(http.MethodGet)
	return r
}

func requireXSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(osc.HeaderXSRFProtected) == "" {
			http.Error(w, "missing "+osc.HeaderXSRFProtected+" header", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Camera) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.logger.Debug("Camera request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

func (c *Camera) handleInfo(w http.ResponseWriter, _ *http.Request) {
	c.writeJSON(w, http.StatusOK, c.info())
}

func (c *Camera) handleState(w http.ResponseWriter, _ *http.Request) {
	c.writeJSON(w, http.StatusOK, c.state())
}

func (c *Camera) handleCheckForUpdates(w http.ResponseWriter, _ *http.Request) {
	c.writeJSON(w, http.StatusOK, c.checkForUpdates())
}

func (c *Camera) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := decodeBody(r, &req); err != nil || req.Name == "" {
		status, resp := failure(req.Name, osc.ErrorMissingParameter, "a JSON body with a command name is required")
		c.writeJSON(w, status, resp)
		return
	}

	status, resp := c.execute(req, baseURL(r))
	c.logger.Info("Executed command", "name", req.Name, "state", resp.State, "id", resp.ID)
	c.writeJSON(w, status, resp)
}

func (c *Camera) handleStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, &req); err != nil || len(req.ID) == 0 {
		status, resp := failure("", osc.ErrorMissingParameter, "id is required")
		c.writeJSON(w, status, resp)
		return
	}

	status, resp := c.status(req.ID)
	c.writeJSON(w, status, resp)
}

func (c *Camera) handleFile(w http.ResponseWriter, r *http.Request) {
	if !c.picture(mux.Vars(r)["name"]) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(pictureData)
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(data, v)
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (c *Camera) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error(err, "Failed to encode response")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set(osc.HeaderContentType, osc.ContentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
