// Package httpapi exposes internal/query over a single HTTP endpoint. It
// is a thin collaborator: routing and request decoding only, no ranking
// logic of its own.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/adrianmoreno/corpussearch/internal/query"
)

// Engine is the subset of *query.Engine the handler depends on, narrowed
// so handler tests can substitute a fake.
type Engine interface {
	Search(ctx context.Context, q string, start int) (*query.Response, error)
}

// NewRouter builds the chi.Mux exposing GET /api/search. No CORS: spec.md
// §6 defines a single collaborator endpoint with no cross-origin
// requirement, so none of the teacher's corsMiddleware is carried over.
func NewRouter(engine Engine, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h := &handler{engine: engine, logger: logger}
	r.Get("/api/search", h.search)
	return r
}

type handler struct {
	engine Engine
	logger *slog.Logger
}

// search handles GET /api/search?query=...&start=...: query is required
// and non-empty; start is a required non-negative integer.
func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("query")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	startParam := r.URL.Query().Get("start")
	if startParam == "" {
		writeError(w, http.StatusBadRequest, "start parameter is required")
		return
	}
	start, err := strconv.Atoi(startParam)
	if err != nil || start < 0 {
		writeError(w, http.StatusBadRequest, "start must be a non-negative integer")
		return
	}

	resp, err := h.engine.Search(r.Context(), q, start)
	if err != nil {
		h.logger.Error("search failed", "query", q, "start", start, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("encode search response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
