// Package repository defines the punch store interface and errors.
package repository

import (
	"context"
	"time"

	model "github.com/jornada/fichaje/internal/domain/model"
)

// Filter narrows a punch listing. Zero values mean unbounded; From and
// To are inclusive instants compared against the effective timestamp.
type Filter struct {
	UserID string
	From   time.Time
	To     time.Time
}

// Matches reports whether a punch passes the filter.
func (f Filter) Matches(p model.PunchEvent) bool {
	if f.UserID != "" && p.UserID != f.UserID {
		return false
	}
	if !f.From.IsZero() && p.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && p.Timestamp.After(f.To) {
		return false
	}
	return true
}

// Store provides read/write access to persisted punches.
type Store interface {
	// Save persists a punch, assigning an id when it has none, and
	// returns the stored value.
	// Returns ErrDuplicate when the id already exists; every
	// implementation must honor this so callers can treat a re-sent
	// punch as an idempotent success.
	Save(ctx context.Context, p model.PunchEvent) (model.PunchEvent, error)

	// Punch returns a single punch by id.
	// Returns ErrNotFound if the id is unknown.
	Punch(ctx context.Context, id string) (model.PunchEvent, error)

	// List returns punches matching the filter, ordered ascending by
	// timestamp.
	List(ctx context.Context, f Filter) ([]model.PunchEvent, error)

	// UpdateObservation replaces the free-text observation of a punch.
	UpdateObservation(ctx context.Context, id, observation string) error

	// CorrectTimestamp moves a punch to a corrected instant, retaining
	// the first original time.
	CorrectTimestamp(ctx context.Context, id string, corrected time.Time) error

	// Count returns the number of punches tracked.
	Count(ctx context.Context) int
}
