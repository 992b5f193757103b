// Package ingest parses wire-format punch rows into domain values and
// applies time corrections. This is the only layer where a bad input is
// a hard error; everything past it flows as data.
package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	model "github.com/jornada/fichaje/internal/domain/model"
)

// DefaultTimezone matches the deployment the wire format comes from.
const DefaultTimezone = "Europe/Madrid"

// Accepted layouts for fecha_creacion / fecha_original. Layouts without
// an offset are interpreted in the normalizer's location.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Row is one punch as the upstream API serves it. Numeric flags come as
// 0/1, coordinates as decimal strings, times as ISO-8601 variants.
type Row struct {
	ID                string `json:"id"`
	FechaCreacion     string `json:"fecha_creacion"`
	Tipo              string `json:"tipo"`
	FkUser            string `json:"fk_user"`
	UsuarioNombre     string `json:"usuario_nombre,omitempty"`
	Lat               string `json:"lat,omitempty"`
	Lng               string `json:"lng,omitempty"`
	Observaciones     string `json:"observaciones,omitempty"`
	Justification     string `json:"justification,omitempty"`
	FechaOriginal     string `json:"fecha_original,omitempty"`
	LocationWarning   int    `json:"location_warning,omitempty"`
	EarlyEntryWarning int    `json:"early_entry_warning,omitempty"`
	DuracionEfectiva  *int   `json:"duracion_efectiva,omitempty"`
	DuracionPausas    *int   `json:"duracion_pausas,omitempty"`
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithLocation sets the location used for offset-less timestamps.
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		if loc != nil {
			n.loc = loc
		}
	}
}

// Normalizer parses wire rows into strict punch events.
type Normalizer struct {
	loc *time.Location
}

// New creates a Normalizer with configuration options. The default
// location is Europe/Madrid, falling back to the host zone when the
// tzdata lookup fails.
func New(opts ...Option) *Normalizer {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		loc = time.Local
	}
	n := &Normalizer{loc: loc}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize parses a batch of rows, failing on the first bad one.
func (n *Normalizer) Normalize(rows []Row) ([]model.PunchEvent, error) {
	out := make([]model.PunchEvent, 0, len(rows))
	for i, r := range rows {
		p, err := n.NormalizeRow(r)
		if err != nil {
			return nil, fmt.Errorf("row %d (id %q): %w", i, r.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// NormalizeRow parses a single row.
func (n *Normalizer) NormalizeRow(r Row) (model.PunchEvent, error) {
	if r.FkUser == "" {
		return model.PunchEvent{}, fmt.Errorf("fk_user: %w", ErrMissingField)
	}

	kind, err := ParseKind(r.Tipo)
	if err != nil {
		return model.PunchEvent{}, err
	}

	ts, err := n.parseTime(r.FechaCreacion)
	if err != nil {
		return model.PunchEvent{}, fmt.Errorf("fecha_creacion: %w", err)
	}

	p := model.PunchEvent{
		ID:                r.ID,
		Timestamp:         ts,
		Kind:              kind,
		UserID:            r.FkUser,
		UserDisplayName:   r.UsuarioNombre,
		Location:          parseCoords(r.Lat, r.Lng),
		LocationWarning:   r.LocationWarning != 0,
		EarlyEntryWarning: r.EarlyEntryWarning != 0,
		Observation:       r.Observaciones,
		Justification:     r.Justification,
		EffectiveMinutes:  r.DuracionEfectiva,
		PausedMinutes:     r.DuracionPausas,
	}

	if r.FechaOriginal != "" {
		orig, err := n.parseTime(r.FechaOriginal)
		if err != nil {
			return model.PunchEvent{}, fmt.Errorf("fecha_original: %w", err)
		}
		p.OriginalTimestamp = &orig
	}

	return p, nil
}

// ParseKind maps a wire tipo to a punch kind. The long pause forms used
// by older clients are accepted alongside the short ones.
func ParseKind(tipo string) (model.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(tipo)) {
	case "entrar":
		return model.KindClockIn, nil
	case "pausa", "iniciar_pausa":
		return model.KindPauseStart, nil
	case "finp", "terminar_pausa":
		return model.KindPauseEnd, nil
	case "salir":
		return model.KindClockOut, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadKind, tipo)
}

func (n *Normalizer) parseTime(value string) (time.Time, error) {
	return ParseTime(value, n.loc)
}

// ParseTime parses an accepted wire timestamp. Layouts without an
// offset are interpreted in loc.
func ParseTime(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, value)
}

// parseCoords returns nil for absent or placeholder coordinates. The
// upstream stores "0.00000000" when the browser denied geolocation.
func parseCoords(lat, lng string) *model.Location {
	la, err1 := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	ln, err2 := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	if la == 0 && ln == 0 {
		return nil
	}
	return &model.Location{Lat: la, Lng: ln}
}
