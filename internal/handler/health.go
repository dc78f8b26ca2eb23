package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sakif/catchme/internal/logger"
)

const pingTimeout = 2 * time.Second

// DBPinger is anything whose reachability can be checked, typically the
// repository store.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the readiness probe.
type HealthHandler struct {
	db DBPinger
}

func NewHealthHandler(db DBPinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// HandleHealth answers 200 {"ok":true} when the database responds and 503
// otherwise.
//
// HTTP: GET /healthz
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		logger.FromContext(r.Context()).Warn().Err(err).Msg("health check: database unreachable")
		writeJSON(w, r, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: "database unreachable",
		})
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]bool{"ok": true})
}
