// Package duration computes effective and paused minutes for work cycles.
package duration

import (
	"time"

	model "github.com/jornada/fichaje/internal/domain/model"
)

// Durations holds the computed totals of one or more cycles, in whole
// minutes. Partial minutes are floored away.
type Durations struct {
	EffectiveMinutes int
	PausedMinutes    int
}

// Add accumulates other into d.
func (d *Durations) Add(other Durations) {
	d.EffectiveMinutes += other.EffectiveMinutes
	d.PausedMinutes += other.PausedMinutes
}

// Compute returns the cycle's totals. Server-computed values stored on
// the cycle are trusted verbatim so the view agrees with payroll; the
// fallback measures locally. Open cycles and open pauses are measured
// against now, which the caller captures once per render so every cycle
// of a view sees the same instant. Negative spans clamp to zero.
func Compute(c model.WorkCycle, now time.Time) Durations {
	var d Durations
	if c.EffectiveMinutes != nil && c.PausedMinutes != nil {
		d.EffectiveMinutes = clamp(*c.EffectiveMinutes)
		d.PausedMinutes = clamp(*c.PausedMinutes)
		return d
	}

	end := now
	if c.Fin != nil {
		end = c.Fin.Timestamp
	}

	var paused time.Duration
	for _, p := range c.Pausas {
		pauseEnd := now
		if p.End != nil {
			pauseEnd = p.End.Timestamp
		}
		if span := pauseEnd.Sub(p.Start.Timestamp); span > 0 {
			paused += span
		}
	}

	effective := end.Sub(c.Inicio.Timestamp) - paused

	d.EffectiveMinutes = clamp(int(effective / time.Minute))
	d.PausedMinutes = clamp(int(paused / time.Minute))
	return d
}

// Sum reduces a slice of cycles against a single instant. Cycles do not
// interact: the result is the per-cycle totals added up.
func Sum(cycles []model.WorkCycle, now time.Time) Durations {
	var total Durations
	for _, c := range cycles {
		total.Add(Compute(c, now))
	}
	return total
}

func clamp(minutes int) int {
	if minutes < 0 {
		return 0
	}
	return minutes
}
