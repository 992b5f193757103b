// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jornada/fichaje/internal/domain/types"
)

// SummaryDependencies defines the interface for range aggregation.
type SummaryDependencies interface {
	Summary(ctx context.Context, userID string, from, to time.Time) (types.Summary, error)
}

// SummaryHandler handles worked-time summary requests.
type SummaryHandler struct {
	deps SummaryDependencies
	loc  *time.Location
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps SummaryDependencies, loc *time.Location) *SummaryHandler {
	return &SummaryHandler{deps: deps, loc: loc}
}

// HandleGetSummary handles GET /api/summary?user=&from=&to= requests.
func (h *SummaryHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	sum, err := h.deps.Summary(r.Context(), r.URL.Query().Get("user"), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
