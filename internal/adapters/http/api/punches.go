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

// PunchDependencies defines the interface for punch ingestion and listing.
type PunchDependencies interface {
	RegisterPunch(ctx context.Context, row ingest.Row) (types.Punch, bool, error)
	ListPunches(ctx context.Context, userID string, from, to time.Time) ([]types.Punch, error)
	UpdateObservation(ctx context.Context, id, observation string) (types.Punch, error)
}

// PunchesHandler handles punch registration and queries.
type PunchesHandler struct {
	deps PunchDependencies
	loc  *time.Location
}

// NewPunchesHandler creates a new punches handler.
func NewPunchesHandler(deps PunchDependencies, loc *time.Location) *PunchesHandler {
	return &PunchesHandler{deps: deps, loc: loc}
}

// HandleRegister handles POST /api/punches requests.
func (h *PunchesHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var row ingest.Row
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrBadRequest, err))
		return
	}
	if err := validateRow(row); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	punch, duplicate, err := h.deps.RegisterPunch(r.Context(), row)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true, Punch: punch})
		return
	}
	writeJSON(w, http.StatusCreated, ackResponse{Status: "registered", Punch: punch})
}

// HandleList handles GET /api/punches?user=&from=&to= requests.
func (h *PunchesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	punches, err := h.deps.ListPunches(r.Context(), r.URL.Query().Get("user"), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, punches)
}

// observationRequest mirrors the PATCH body for observation edits.
type observationRequest struct {
	Observation string `json:"observaciones"`
}

// HandleObservation handles PATCH /api/punches/{id}/observation requests.
func (h *PunchesHandler) HandleObservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	var req observationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrBadRequest, err))
		return
	}
	punch, err := h.deps.UpdateObservation(r.Context(), id, req.Observation)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, punch)
}

func validateRow(row ingest.Row) error {
	switch {
	case strings.TrimSpace(row.Tipo) == "":
		return errors.Join(ErrBadRequest, errors.New("missing tipo"))
	case strings.TrimSpace(row.FechaCreacion) == "":
		return errors.Join(ErrBadRequest, errors.New("missing fecha_creacion"))
	case strings.TrimSpace(row.FkUser) == "":
		return errors.Join(ErrBadRequest, errors.New("missing fk_user"))
	}
	return nil
}
