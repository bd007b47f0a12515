package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/authcore/internal/http"
)

// Pinger es lo mínimo que readyz necesita de cada dependencia.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler arma healthz (liveness) y readyz (dependencias).
func NewHealthHandler(deps map[string]Pinger) *healthHandler {
	return &healthHandler{deps: deps}
}

func (h *healthHandler) Register(r chi.Router) {
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
}

func (h *healthHandler) healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *healthHandler) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	ready := true
	for name, dep := range h.deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, map[string]any{"ready": ready, "checks": checks})
}
