// Package api serves stored request datasets to the toolbar client.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"debugbar/internal/domain"
	"debugbar/internal/middleware"
)

// OpenPath is where the open handler is mounted.
const OpenPath = "/_debugbar/open"

// OpenHandler hands out stored datasets. Each dataset can be fetched once.
type OpenHandler struct {
	store   domain.SnapshotStore
	logger  *slog.Logger
	timeout time.Duration
}

// NewOpenHandler returns a handler reading from store.
func NewOpenHandler(store domain.SnapshotStore, logger *slog.Logger) *OpenHandler {
	return &OpenHandler{
		store:   store,
		logger:  logger.With("component", "open-handler"),
		timeout: 10 * time.Second,
	}
}

// RouterOptions configures the open handler's router.
type RouterOptions struct {
	AllowedOrigins []string
	RateLimit      middleware.RateLimitConfig
}

// Router returns a standalone chi router serving the open handler under
// OpenPath. Rate-limiter state is released when ctx is done.
func (h *OpenHandler) Router(ctx context.Context, opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	h.Register(ctx, r, opts)
	return r
}

// Register adds the open routes to r in their own group, with CORS and
// rate limiting applied to that group only.
func (h *OpenHandler) Register(ctx context.Context, r chi.Router, opts RouterOptions) {
	r.Group(func(g chi.Router) {
		g.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.DebugbarIDHeader},
			MaxAge:         300,
		}))
		if opts.RateLimit.RequestsPerSecond > 0 {
			g.Use(middleware.RateLimiter(ctx, opts.RateLimit))
		}
		h.mount(g)
	})
}

// mount registers the open routes on r. The OPTIONS routes exist so that
// preflight requests reach the CORS middleware of the group.
func (h *OpenHandler) mount(r chi.Router) {
	r.Get(OpenPath, h.handleOp)
	r.Get(OpenPath+"/{id}", h.handleGetByPath)
	r.Options(OpenPath, noContent)
	r.Options(OpenPath+"/{id}", noContent)
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleOp serves ?op=get&id=… requests.
func (h *OpenHandler) handleOp(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch op := q.Get("op"); op {
	case "get":
		h.serveDataset(w, r, q.Get("id"))
	case "":
		writeError(w, h.logger, domain.ErrValidation("missing op parameter"))
	default:
		writeError(w, h.logger, domain.ErrValidation("unsupported op %q", op))
	}
}

func (h *OpenHandler) handleGetByPath(w http.ResponseWriter, r *http.Request) {
	h.serveDataset(w, r, chi.URLParam(r, "id"))
}

func (h *OpenHandler) serveDataset(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeError(w, h.logger, domain.ErrValidation("missing id parameter"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	data, err := h.store.Get(ctx, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
