// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/jornada/fichaje/internal/domain/types"
)

// TimelineDependencies defines the interface for timeline projections.
type TimelineDependencies interface {
	Timeline(ctx context.Context, userID, date string) ([]types.TimelineEvent, error)
}

// TimelineHandler handles timeline requests.
type TimelineHandler struct {
	deps TimelineDependencies
}

// NewTimelineHandler creates a new timeline handler.
func NewTimelineHandler(deps TimelineDependencies) *TimelineHandler {
	return &TimelineHandler{deps: deps}
}

// HandleGetTimeline handles GET /api/timeline?user=&date= requests.
// An empty date means today.
func (h *TimelineHandler) HandleGetTimeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.deps.Timeline(r.Context(), q.Get("user"), q.Get("date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
