// Package state derives a user's current punch status and validates
// which punch kinds their status admits.
package state

import (
	"sort"

	model "github.com/jornada/fichaje/internal/domain/model"
)

// Status is a user's position in the punch cycle.
type Status string

// The four statuses a user can be in during a day.
const (
	StatusNotStarted Status = "sin_iniciar"
	StatusWorking    Status = "trabajando"
	StatusPaused     Status = "en_pausa"
	StatusFinished   Status = "finalizado"
)

// FromPunches derives the status from a user's punches, typically the
// current day's. Only the chronologically last punch matters; the
// stream is stably re-sorted so callers do not need to pre-sort.
func FromPunches(punches []model.PunchEvent) Status {
	if len(punches) == 0 {
		return StatusNotStarted
	}
	ordered := make([]model.PunchEvent, len(punches))
	copy(ordered, punches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})
	switch ordered[len(ordered)-1].Kind {
	case model.KindClockIn, model.KindPauseEnd:
		return StatusWorking
	case model.KindPauseStart:
		return StatusPaused
	case model.KindClockOut:
		return StatusFinished
	}
	return StatusNotStarted
}

// Next validates a punch kind against the current status and returns
// the status after registering it. Historical anomalies are recovered
// downstream by the grouper; this check only guards live registration,
// so a rejected kind maps to a conflict at the API boundary.
func Next(current Status, kind model.Kind) (Status, error) {
	switch kind {
	case model.KindClockIn:
		if current == StatusWorking || current == StatusPaused {
			return current, ErrInvalidTransition
		}
		return StatusWorking, nil
	case model.KindPauseStart:
		if current != StatusWorking {
			return current, ErrInvalidTransition
		}
		return StatusPaused, nil
	case model.KindPauseEnd:
		if current != StatusPaused {
			return current, ErrInvalidTransition
		}
		return StatusWorking, nil
	case model.KindClockOut:
		if current != StatusWorking && current != StatusPaused {
			return current, ErrInvalidTransition
		}
		return StatusFinished, nil
	}
	return current, ErrUnknownKind
}
