package model

import "time"

// Rendering labels and colors per punch kind, matching the web client.
const (
	LabelClockIn    = "Entrada"
	LabelPauseStart = "Pausa"
	LabelPauseEnd   = "Reanudación"
	LabelClockOut   = "Salida"

	ColorClockIn    = "#AFF0BA"
	ColorPauseStart = "#FFEEA3"
	ColorPauseEnd   = "#ACE4F2"
	ColorClockOut   = "#FF7A7A"
)

// KindLabel returns the user-facing label for a punch kind.
func KindLabel(k Kind) string {
	switch k {
	case KindClockIn:
		return LabelClockIn
	case KindPauseStart:
		return LabelPauseStart
	case KindPauseEnd:
		return LabelPauseEnd
	case KindClockOut:
		return LabelClockOut
	}
	return ""
}

// KindColor returns the fixed render color for a punch kind.
func KindColor(k Kind) string {
	switch k {
	case KindClockIn:
		return ColorClockIn
	case KindPauseStart:
		return ColorPauseStart
	case KindPauseEnd:
		return ColorPauseEnd
	case KindClockOut:
		return ColorClockOut
	}
	return ""
}

// TimelineEvent is one render-ready chronological entry. ID is a
// synthetic key unique within a projection; DBID is the persisted punch
// id, kept separate so corrections and observation edits can target the
// stored row.
type TimelineEvent struct {
	ID   string
	DBID string
	Time time.Time
	// OriginalTime is set only when a correction changed the punch time
	// at minute granularity, so views can show both instants.
	OriginalTime      *time.Time
	Kind              Kind
	Label             string
	Color             string
	CycleID           string
	DateStr           string // local calendar date of Time
	IsNextDay         bool   // true when DateStr differs from the cycle date
	LocationWarning   bool
	EarlyEntryWarning bool
	Observation       string
	Justification     string
	Location          *Location
}
