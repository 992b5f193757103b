package model

import "time"

// Pause is one rest interval inside a work cycle. End is nil while the
// pause is still running.
type Pause struct {
	Start PunchEvent
	End   *PunchEvent
}

// Open reports whether the pause has not been ended yet.
func (p Pause) Open() bool {
	return p.End == nil
}

// WorkCycle is a reconstructed working session: one entrada, zero or
// more pauses and an optional salida. Date is the local calendar date
// of the entrada, fixed at grouping time; a cycle crossing midnight
// stays attributed to the day it started.
type WorkCycle struct {
	ID     string
	Date   string // YYYY-MM-DD, local to the grouping location
	Inicio PunchEvent
	Pausas []Pause
	Fin    *PunchEvent
	// Server-computed totals, in minutes. When present they are trusted
	// verbatim so views agree with payroll. Nil means compute locally.
	EffectiveMinutes *int
	PausedMinutes    *int
}

// Closed reports whether the cycle has a salida.
func (c WorkCycle) Closed() bool {
	return c.Fin != nil
}

// OpenPause returns the cycle's unclosed pause, if any. Only the last
// pause of an open cycle can be unclosed.
func (c WorkCycle) OpenPause() *Pause {
	if n := len(c.Pausas); n > 0 && c.Pausas[n-1].Open() {
		return &c.Pausas[n-1]
	}
	return nil
}

// UserID returns the cycle owner, taken from the entrada.
func (c WorkCycle) UserID() string {
	return c.Inicio.UserID
}

// CycleDate formats the local calendar date of t in loc as used for
// cycle attribution and day bucketing.
func CycleDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
