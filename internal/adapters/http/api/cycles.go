// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/jornada/fichaje/internal/domain/types"
)

// CycleDependencies defines the interface for cycle queries and export.
type CycleDependencies interface {
	Cycles(ctx context.Context, userID string, from, to time.Time) ([]types.DayCycles, error)
	ExportCSV(ctx context.Context, userID string, from, to time.Time, w io.Writer) error
}

// CyclesHandler handles reconstructed cycle requests.
type CyclesHandler struct {
	deps CycleDependencies
	loc  *time.Location
}

// NewCyclesHandler creates a new cycles handler.
func NewCyclesHandler(deps CycleDependencies, loc *time.Location) *CyclesHandler {
	return &CyclesHandler{deps: deps, loc: loc}
}

// HandleGetCycles handles GET /api/cycles?user=&from=&to= requests.
func (h *CyclesHandler) HandleGetCycles(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	days, err := h.deps.Cycles(r.Context(), r.URL.Query().Get("user"), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// HandleExport handles GET /api/cycles/export?user=&from=&to= requests,
// streaming the report as CSV.
func (h *CyclesHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	// Render into memory first so range errors can still become a status.
	var buf bytes.Buffer
	if err := h.deps.ExportCSV(r.Context(), r.URL.Query().Get("user"), from, to, &buf); err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="fichajes.csv"`)
	_, _ = io.Copy(w, &buf)
}
