// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jornada/fichaje/internal/domain/types"
	"github.com/jornada/fichaje/internal/ingest"
)

// CorrectionDependencies defines the interface for admin time fixes and
// historical imports.
type CorrectionDependencies interface {
	CorrectPunch(ctx context.Context, id string, corrected time.Time) (types.Punch, error)
	ImportPunches(ctx context.Context, rows []ingest.Row, corrections map[string]time.Time) (types.ImportResult, error)
}

// CorrectionsHandler handles timestamp corrections and bulk imports.
type CorrectionsHandler struct {
	deps CorrectionDependencies
	loc  *time.Location
}

// NewCorrectionsHandler creates a new corrections handler.
func NewCorrectionsHandler(deps CorrectionDependencies, loc *time.Location) *CorrectionsHandler {
	return &CorrectionsHandler{deps: deps, loc: loc}
}

// correctionRequest mirrors the PATCH body for time corrections.
type correctionRequest struct {
	FechaCreacion string `json:"fecha_creacion"`
}

// HandleCorrection handles PATCH /api/punches/{id}/correction requests.
func (h *CorrectionsHandler) HandleCorrection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	var req correctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.FechaCreacion) == "" {
		writeError(w, http.StatusBadRequest, "bad_request",
			errors.Join(ErrBadRequest, errors.New("missing fecha_creacion")))
		return
	}
	corrected, err := ingest.ParseTime(req.FechaCreacion, h.loc)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	punch, err := h.deps.CorrectPunch(r.Context(), id, corrected)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, punch)
}

// importRequest carries historical rows plus an optional correction
// overlay keyed by punch id.
type importRequest struct {
	Rows        []ingest.Row      `json:"fichajes"`
	Corrections map[string]string `json:"correcciones,omitempty"`
}

// HandleImport handles POST /api/punches/import requests.
func (h *CorrectionsHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrBadRequest, err))
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request",
			errors.Join(ErrBadRequest, errors.New("missing fichajes")))
		return
	}
	corrections := make(map[string]time.Time, len(req.Corrections))
	for id, value := range req.Corrections {
		t, err := ingest.ParseTime(value, h.loc)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		corrections[id] = t
	}
	result, err := h.deps.ImportPunches(r.Context(), req.Rows, corrections)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
