package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	model "github.com/jornada/fichaje/internal/domain/model"
)

// MemoryStore implements Store with an in-process map. Used when no
// database DSN is configured and throughout the tests.
type MemoryStore struct {
	mu      sync.RWMutex
	punches map[string]model.PunchEvent
	newID   func() string
}

// NewMemoryStore creates an empty in-memory store with configuration
// options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		punches: make(map[string]model.PunchEvent),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists a punch, assigning an id when it has none.
func (s *MemoryStore) Save(_ context.Context, p model.PunchEvent) (model.PunchEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = s.newID()
	} else if _, exists := s.punches[p.ID]; exists {
		return model.PunchEvent{}, ErrDuplicate
	}
	s.punches[p.ID] = p
	return p, nil
}

// Punch returns a single punch by id.
func (s *MemoryStore) Punch(_ context.Context, id string) (model.PunchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.punches[id]
	if !ok {
		return model.PunchEvent{}, ErrNotFound
	}
	return p, nil
}

// List returns punches matching the filter, ordered by timestamp.
func (s *MemoryStore) List(_ context.Context, f Filter) ([]model.PunchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PunchEvent, 0, len(s.punches))
	for _, p := range s.punches {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// UpdateObservation replaces the observation of a punch.
func (s *MemoryStore) UpdateObservation(_ context.Context, id, observation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.punches[id]
	if !ok {
		return ErrNotFound
	}
	p.Observation = observation
	s.punches[id] = p
	return nil
}

// CorrectTimestamp moves a punch to a corrected instant. The first
// original time is retained; later corrections keep overwriting the
// effective time only.
func (s *MemoryStore) CorrectTimestamp(_ context.Context, id string, corrected time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.punches[id]
	if !ok {
		return ErrNotFound
	}
	if !corrected.Equal(p.Timestamp) {
		if p.OriginalTimestamp == nil {
			orig := p.Timestamp
			p.OriginalTimestamp = &orig
		}
		p.Timestamp = corrected
		s.punches[id] = p
	}
	return nil
}

// Count returns the number of punches tracked.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.punches)
}
