// Package handler provides the HTTP handlers for the data server.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/stevemurr/simple-data-server/collection"
	"github.com/stevemurr/simple-data-server/logger"
	"github.com/stevemurr/simple-data-server/metrics"
	"github.com/stevemurr/simple-data-server/service"
)

// timestampLayout matches the "YYYY-MM-DD HH:MM:SS" local time clients expect.
const timestampLayout = "2006-01-02 15:04:05"

const (
	msgSaved        = "data saved successfully"
	msgSaveFailed   = "failed to save data"
	msgLoadFailed   = "failed to load data"
	msgBodyTooLarge = "request body too large"
)

// Options configures the routes outside the data API.
type Options struct {
	// StaticDir is served for GET paths that are not API routes.
	// Empty disables static serving.
	StaticDir string

	// ExposeMetrics registers GET /metrics.
	ExposeMetrics bool
}

// Handler holds the server dependencies and registers routes.
type Handler struct {
	service   *service.Service
	validator *collection.Validator
	logger    *logger.Logger
	metrics   *metrics.Metrics
	opts      Options
	mux       *http.ServeMux
}

// New creates a Handler and wires up all routes.
func New(svc *service.Service, l *logger.Logger, m *metrics.Metrics, opts Options) *Handler {
	h := &Handler{
		service:   svc,
		validator: collection.NewValidator(),
		logger:    l.WithComponent("handler"),
		metrics:   m,
		opts:      opts,
		mux:       http.NewServeMux(),
	}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.mux.HandleFunc("POST /api/save-data", h.saveData)
	h.mux.HandleFunc("GET /api/load-data", h.loadData)
	h.mux.HandleFunc("GET /api/load-data/{$}", h.loadData)
	h.mux.HandleFunc("GET /api/load-data/{type}", h.loadData)

	h.mux.HandleFunc("GET /health", h.health)
	if h.opts.ExposeMetrics {
		h.mux.Handle("GET /metrics", h.metrics.Handler())
	}

	if h.opts.StaticDir != "" {
		h.mux.Handle("GET /", http.FileServer(http.Dir(h.opts.StaticDir)))
	} else {
		h.mux.HandleFunc("GET /", h.root)
	}
}

// ---------- helpers ----------

// envelope is the body of every API response.
type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Files     []string        `json:"files,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

// writeFailure sends a failure envelope. cause is only set for server errors.
func writeFailure(w http.ResponseWriter, status int, msg string, cause error) {
	env := envelope{Success: false, Message: msg}
	if cause != nil {
		env.Message = msg + ": " + cause.Error()
		env.Error = cause.Error()
	}
	writeJSON(w, status, env)
}

func timestamp() string {
	return time.Now().Format(timestampLayout)
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	// Only match exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "Simple Data Server",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ---------- data API ----------

func (h *Handler) saveData(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge, nil)
			return
		}
		writeFailure(w, http.StatusBadRequest, collection.MsgInvalidJSON, nil)
		return
	}

	req, err := h.validator.ParseSave(body)
	if err != nil {
		h.logger.FromContext(r.Context()).Debugw("Rejected save request", "kind", collection.KindOf(err))
		writeFailure(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	written, err := h.service.Save(req)
	if err != nil {
		h.logger.FromContext(r.Context()).Errorw("Save failed",
			"type", req.Type,
			"written", names(written),
			"error", err,
		)
		writeFailure(w, http.StatusInternalServerError, msgSaveFailed, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success:   true,
		Message:   msgSaved,
		Files:     names(written),
		Timestamp: timestamp(),
	})
}

func (h *Handler) loadData(w http.ResponseWriter, r *http.Request) {
	name, err := h.validator.ParseLoad(r.PathValue("type"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	doc, err := h.service.Load(name)
	if err != nil {
		h.logger.FromContext(r.Context()).Errorw("Load failed", "type", name, "error", err)
		writeFailure(w, http.StatusInternalServerError, msgLoadFailed, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success:   true,
		Data:      doc,
		Timestamp: timestamp(),
	})
}

func names(ns []collection.Name) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = string(n)
	}
	return out
}
