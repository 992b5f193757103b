// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	repository "github.com/jornada/fichaje/internal/adapters/repository"
	service "github.com/jornada/fichaje/internal/app"
	"github.com/jornada/fichaje/internal/domain/state"
	"github.com/jornada/fichaje/internal/domain/types"
	"github.com/jornada/fichaje/internal/ingest"
)

const dateLayout = "2006-01-02"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// RegisterPunch normalizes and persists one wire row. The second
	// return is true when the row id was already seen.
	RegisterPunch(ctx context.Context, row ingest.Row) (types.Punch, bool, error)

	// Read operations expose reconstructed data.
	ListPunches(ctx context.Context, userID string, from, to time.Time) ([]types.Punch, error)
	UpdateObservation(ctx context.Context, id, observation string) (types.Punch, error)
	CorrectPunch(ctx context.Context, id string, corrected time.Time) (types.Punch, error)
	ImportPunches(ctx context.Context, rows []ingest.Row, corrections map[string]time.Time) (types.ImportResult, error)
	Cycles(ctx context.Context, userID string, from, to time.Time) ([]types.DayCycles, error)
	Timeline(ctx context.Context, userID, date string) ([]types.TimelineEvent, error)
	Summary(ctx context.Context, userID string, from, to time.Time) (types.Summary, error)
	Status(ctx context.Context, userID string) (types.UserStatus, error)
	Active(ctx context.Context) ([]types.UserStatus, error)
	ExportCSV(ctx context.Context, userID string, from, to time.Time, w io.Writer) error
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLocation sets the location used to parse from/to query dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	loc                *time.Location
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	punchesHandler     *PunchesHandler
	correctionsHandler *CorrectionsHandler
	cyclesHandler      *CyclesHandler
	timelineHandler    *TimelineHandler
	summaryHandler     *SummaryHandler
	statusHandler      *StatusHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		loc:           time.Local,
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.punchesHandler = NewPunchesHandler(deps, s.loc)
	s.correctionsHandler = NewCorrectionsHandler(deps, s.loc)
	s.cyclesHandler = NewCyclesHandler(deps, s.loc)
	s.timelineHandler = NewTimelineHandler(deps)
	s.summaryHandler = NewSummaryHandler(deps, s.loc)
	s.statusHandler = NewStatusHandler(deps)
	return s
}

// Register attaches all HTTP routes to the router.
func (s *Server) Register(ctx context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/api", func(r chi.Router) {
		r.Post("/punches", MetricsMiddleware(s.punchesHandler.HandleRegister, "punches"))
		r.Get("/punches", MetricsMiddleware(s.punchesHandler.HandleList, "punches"))
		r.Patch("/punches/{id}/observation", MetricsMiddleware(s.punchesHandler.HandleObservation, "observation"))
		r.Patch("/punches/{id}/correction", MetricsMiddleware(s.correctionsHandler.HandleCorrection, "correction"))
		r.Post("/punches/import", MetricsMiddleware(s.correctionsHandler.HandleImport, "import"))
		r.Get("/cycles", MetricsMiddleware(s.cyclesHandler.HandleGetCycles, "cycles"))
		r.Get("/cycles/export", MetricsMiddleware(s.cyclesHandler.HandleExport, "export"))
		r.Get("/timeline", MetricsMiddleware(s.timelineHandler.HandleGetTimeline, "timeline"))
		r.Get("/summary", MetricsMiddleware(s.summaryHandler.HandleGetSummary, "summary"))
		r.Get("/status", MetricsMiddleware(s.statusHandler.HandleGetStatus, "status"))
		r.Get("/active", MetricsMiddleware(s.statusHandler.HandleGetActive, "active"))
	})
}

type ackResponse struct {
	Status    string      `json:"status"`
	Duplicate bool        `json:"duplicate,omitempty"`
	Punch     types.Punch `json:"punch"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates upstream sentinels into HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, state.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrRangeTooWide):
		writeError(w, http.StatusBadRequest, "range_too_wide", err)
	case errors.Is(err, service.ErrBadDate),
		errors.Is(err, service.ErrMissingUser),
		errors.Is(err, ingest.ErrBadKind),
		errors.Is(err, ingest.ErrBadTimestamp),
		errors.Is(err, ingest.ErrMissingField),
		errors.Is(err, state.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// parseRange turns optional from/to date params into an inclusive window.
func parseRange(r *http.Request, loc *time.Location) (time.Time, time.Time, error) {
	var from, to time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			return from, to, errors.Join(ErrBadRequest, err)
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			return from, to, errors.Join(ErrBadRequest, err)
		}
		to = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return from, to, nil
}
