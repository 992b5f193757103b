// Package types contains the read shapes returned by the HTTP API.
package types

import (
	"time"

	"github.com/jornada/fichaje/internal/domain/model"
)

// Punch is the wire shape of a stored punch. Field names follow the
// upstream row format so existing clients keep working.
type Punch struct {
	ID                string     `json:"id"`
	Timestamp         time.Time  `json:"fecha_creacion"`
	Kind              string     `json:"tipo"`
	UserID            string     `json:"fk_user"`
	UserDisplayName   string     `json:"usuario_nombre,omitempty"`
	Lat               *float64   `json:"lat,omitempty"`
	Lng               *float64   `json:"lng,omitempty"`
	LocationWarning   bool       `json:"location_warning,omitempty"`
	EarlyEntryWarning bool       `json:"early_entry_warning,omitempty"`
	Observation       string     `json:"observaciones,omitempty"`
	Justification     string     `json:"justification,omitempty"`
	OriginalTimestamp *time.Time `json:"fecha_original,omitempty"`
}

// NewPunch converts a domain punch into its wire shape.
func NewPunch(p model.PunchEvent) Punch {
	out := Punch{
		ID:                p.ID,
		Timestamp:         p.Timestamp,
		Kind:              string(p.Kind),
		UserID:            p.UserID,
		UserDisplayName:   p.UserDisplayName,
		LocationWarning:   p.LocationWarning,
		EarlyEntryWarning: p.EarlyEntryWarning,
		Observation:       p.Observation,
		Justification:     p.Justification,
		OriginalTimestamp: p.OriginalTimestamp,
	}
	if p.Location != nil {
		lat, lng := p.Location.Lat, p.Location.Lng
		out.Lat, out.Lng = &lat, &lng
	}
	return out
}

// Pause is one pause interval inside a cycle.
type Pause struct {
	Start Punch  `json:"inicio"`
	End   *Punch `json:"fin,omitempty"`
}

// Cycle is one work cycle with its computed totals.
type Cycle struct {
	ID               string  `json:"id"`
	Date             string  `json:"fecha"`
	Entrada          Punch   `json:"entrada"`
	Pausas           []Pause `json:"pausas"`
	Salida           *Punch  `json:"salida,omitempty"`
	Open             bool    `json:"abierto"`
	EffectiveMinutes int     `json:"minutos_efectivos"`
	PausedMinutes    int     `json:"minutos_pausados"`
}

// NewCycle converts a domain cycle plus its computed durations.
func NewCycle(c model.WorkCycle, effectiveMinutes, pausedMinutes int) Cycle {
	out := Cycle{
		ID:               c.ID,
		Date:             c.Date,
		Entrada:          NewPunch(c.Inicio),
		Pausas:           make([]Pause, 0, len(c.Pausas)),
		Open:             !c.Closed(),
		EffectiveMinutes: effectiveMinutes,
		PausedMinutes:    pausedMinutes,
	}
	for _, p := range c.Pausas {
		pv := Pause{Start: NewPunch(p.Start)}
		if p.End != nil {
			end := NewPunch(*p.End)
			pv.End = &end
		}
		out.Pausas = append(out.Pausas, pv)
	}
	if c.Fin != nil {
		fin := NewPunch(*c.Fin)
		out.Salida = &fin
	}
	return out
}

// DayCycles groups the cycles of one calendar date with day totals.
type DayCycles struct {
	Date             string  `json:"fecha"`
	Cycles           []Cycle `json:"ciclos"`
	EffectiveMinutes int     `json:"minutos_efectivos"`
	PausedMinutes    int     `json:"minutos_pausados"`
}

// TimelineEvent is the wire shape of one render-ready timeline entry.
type TimelineEvent struct {
	ID                string     `json:"id"`
	DBID              string     `json:"db_id,omitempty"`
	Time              time.Time  `json:"time"`
	OriginalTime      *time.Time `json:"original_time,omitempty"`
	Kind              string     `json:"tipo"`
	Label             string     `json:"label"`
	Color             string     `json:"color"`
	CycleID           string     `json:"cycle_id"`
	Date              string     `json:"fecha"`
	IsNextDay         bool       `json:"is_next_day,omitempty"`
	LocationWarning   bool       `json:"location_warning,omitempty"`
	EarlyEntryWarning bool       `json:"early_entry_warning,omitempty"`
	Observation       string     `json:"observaciones,omitempty"`
	Justification     string     `json:"justification,omitempty"`
	Lat               *float64   `json:"lat,omitempty"`
	Lng               *float64   `json:"lng,omitempty"`
}

// NewTimelineEvent converts a projected timeline event into its wire shape.
func NewTimelineEvent(e model.TimelineEvent) TimelineEvent {
	out := TimelineEvent{
		ID:                e.ID,
		DBID:              e.DBID,
		Time:              e.Time,
		OriginalTime:      e.OriginalTime,
		Kind:              string(e.Kind),
		Label:             e.Label,
		Color:             e.Color,
		CycleID:           e.CycleID,
		Date:              e.DateStr,
		IsNextDay:         e.IsNextDay,
		LocationWarning:   e.LocationWarning,
		EarlyEntryWarning: e.EarlyEntryWarning,
		Observation:       e.Observation,
		Justification:     e.Justification,
	}
	if e.Location != nil {
		lat, lng := e.Location.Lat, e.Location.Lng
		out.Lat, out.Lng = &lat, &lng
	}
	return out
}

// DayTotal is the aggregate of one calendar date inside a summary.
type DayTotal struct {
	Date             string `json:"fecha"`
	Cycles           int    `json:"ciclos"`
	EffectiveMinutes int    `json:"minutos_efectivos"`
	PausedMinutes    int    `json:"minutos_pausados"`
}

// Summary aggregates worked time over a range.
type Summary struct {
	UserID           string     `json:"fk_user,omitempty"`
	From             string     `json:"desde,omitempty"`
	To               string     `json:"hasta,omitempty"`
	Days             int        `json:"dias"`
	Cycles           int        `json:"ciclos"`
	OpenCycles       int        `json:"ciclos_abiertos"`
	EffectiveMinutes int        `json:"minutos_efectivos"`
	PausedMinutes    int        `json:"minutos_pausados"`
	EffectiveHours   string     `json:"horas_efectivas"`
	PerDay           []DayTotal `json:"por_dia,omitempty"`
}

// ImportResult reports what a bulk historical import did.
type ImportResult struct {
	Imported  int `json:"importados"`
	Corrected int `json:"corregidos"`
	Skipped   int `json:"omitidos"`
}

// UserStatus is the derived clock state of one user.
type UserStatus struct {
	UserID          string     `json:"fk_user"`
	UserDisplayName string     `json:"usuario_nombre,omitempty"`
	Status          string     `json:"estado"`
	Since           *time.Time `json:"desde,omitempty"`
	LastPunchID     string     `json:"ultimo_fichaje,omitempty"`
	LastPunchKind   string     `json:"ultimo_tipo,omitempty"`
}
