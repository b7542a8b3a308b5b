package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is satisfied by the database handle.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /health for load balancers and uptime checks.
type HealthHandler struct {
	responder
	db Pinger
}

// NewHealthHandler checks db on every request; nothing is cached.
func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{responder: responder{logger: logger}, db: db}
}

type healthResponse struct {
	OK bool `json:"ok"`
}

// HandleHealth answers {"ok":true}, or 503 {"ok":false} when the database
// does not answer a ping within two seconds.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health: database ping failed", slog.String("error", err.Error()))
		h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{OK: false})
		return
	}
	h.writeJSON(w, http.StatusOK, healthResponse{OK: true})
}
