// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/jornada/fichaje/internal/domain/types"
)

// StatusDependencies defines the interface for clock state queries.
type StatusDependencies interface {
	Status(ctx context.Context, userID string) (types.UserStatus, error)
	Active(ctx context.Context) ([]types.UserStatus, error)
}

// StatusHandler handles clock state requests.
type StatusHandler struct {
	deps StatusDependencies
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(deps StatusDependencies) *StatusHandler {
	return &StatusHandler{deps: deps}
}

// HandleGetStatus handles GET /api/status?user= requests.
func (h *StatusHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.Status(r.Context(), r.URL.Query().Get("user"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleGetActive handles GET /api/active requests.
func (h *StatusHandler) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	active, err := h.deps.Active(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, active)
}
