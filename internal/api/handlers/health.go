package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthHandler reports liveness plus the result of an optional dependency
// check, usually a database ping.
type HealthHandler struct {
	Check func(ctx context.Context) error
}

func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Check != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Check(ctx); err != nil {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
