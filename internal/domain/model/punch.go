// Package model contains domain models passed between layers.
package model

import "time"

// Kind identifies the type of a punch event.
type Kind string

// Punch kinds in the order they occur within a work cycle.
const (
	KindClockIn    Kind = "entrar"
	KindPauseStart Kind = "pausa"
	KindPauseEnd   Kind = "finp"
	KindClockOut   Kind = "salir"
)

// Valid reports whether k is one of the four known punch kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindClockIn, KindPauseStart, KindPauseEnd, KindClockOut:
		return true
	}
	return false
}

// Location is an optional geographic position attached to a punch.
type Location struct {
	Lat float64
	Lng float64
}

// PunchEvent is a single registered clock action.
// Warning flags and justifications are computed upstream and carried
// through verbatim; this layer never derives them.
type PunchEvent struct {
	ID                string
	Timestamp         time.Time
	Kind              Kind
	UserID            string
	UserDisplayName   string
	Location          *Location
	LocationWarning   bool
	EarlyEntryWarning bool
	Observation       string
	Justification     string
	// OriginalTimestamp holds the pre-correction instant. Nil unless the
	// punch time was corrected after the fact.
	OriginalTimestamp *time.Time
	// Server-computed cycle totals in minutes, attached to clock-out
	// punches. Copied onto the cycle at grouping time and trusted there.
	EffectiveMinutes *int
	PausedMinutes    *int
}

// Corrected reports whether the punch carries a correction that differs
// from the effective timestamp at minute granularity. Sub-minute
// corrections are invisible to users and treated as no correction.
func (p PunchEvent) Corrected() bool {
	if p.OriginalTimestamp == nil {
		return false
	}
	return !p.Timestamp.Truncate(time.Minute).Equal(p.OriginalTimestamp.Truncate(time.Minute))
}
