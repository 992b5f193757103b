// Package grouping reconstructs work cycles from a flat punch stream.
package grouping

import (
	"sort"
	"time"

	"github.com/google/uuid"

	model "github.com/jornada/fichaje/internal/domain/model"
)

// Option applies a configuration option to the Grouper.
type Option func(*Grouper)

// WithLocation sets the location used to fix each cycle's calendar date.
func WithLocation(loc *time.Location) Option {
	return func(g *Grouper) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// WithIDFunc sets the generator for cycle ids of punches that carry no
// persisted id. Used by tests for deterministic output.
func WithIDFunc(fn func() string) Option {
	return func(g *Grouper) {
		if fn != nil {
			g.newID = fn
		}
	}
}

// Stats counts the anomalies recovered during grouping. They are
// diagnostics, not errors: grouping always succeeds.
type Stats struct {
	ImplicitCloses   int // clock-in arrived while a cycle was still open
	OrphanPauseStart int // pause-start with no open cycle
	OrphanPauseEnd   int // pause-end with no open pause
	OrphanClockOut   int // clock-out with no open cycle
}

// Orphans returns the total number of dropped punches.
func (s Stats) Orphans() int {
	return s.OrphanPauseStart + s.OrphanPauseEnd + s.OrphanClockOut
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.ImplicitCloses += other.ImplicitCloses
	s.OrphanPauseStart += other.OrphanPauseStart
	s.OrphanPauseEnd += other.OrphanPauseEnd
	s.OrphanClockOut += other.OrphanClockOut
}

// Grouper turns punch streams into work cycles.
type Grouper struct {
	loc   *time.Location
	newID func() string
}

// New creates a Grouper with configuration options.
func New(opts ...Option) *Grouper {
	g := &Grouper{
		loc:   time.Local,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Group reconstructs cycles from the punches of a single user. The
// input is stably re-sorted by timestamp, so callers do not need to
// pre-sort. Rules:
//
//   - a clock-in opens a cycle; a clock-in over an open cycle closes
//     the previous one implicitly, without salida
//   - pause-start opens a pause, pause-end closes the latest open one
//   - clock-out closes the cycle
//   - punches with nothing to attach to are dropped and counted
//
// Every returned cycle has a valid entrada, its date is the entrada's
// local calendar date, and cycle order follows entrada order.
func (g *Grouper) Group(punches []model.PunchEvent) ([]model.WorkCycle, Stats) {
	ordered := make([]model.PunchEvent, len(punches))
	copy(ordered, punches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var (
		cycles  []model.WorkCycle
		current *model.WorkCycle
		stats   Stats
	)

	closeCurrent := func() {
		if current != nil {
			cycles = append(cycles, *current)
			current = nil
		}
	}

	for _, p := range ordered {
		switch p.Kind {
		case model.KindClockIn:
			if current != nil {
				stats.ImplicitCloses++
				closeCurrent()
			}
			current = &model.WorkCycle{
				ID:     g.cycleID(p),
				Date:   model.CycleDate(p.Timestamp, g.loc),
				Inicio: p,
			}

		case model.KindPauseStart:
			if current == nil {
				stats.OrphanPauseStart++
				continue
			}
			current.Pausas = append(current.Pausas, model.Pause{Start: p})

		case model.KindPauseEnd:
			if current == nil || current.OpenPause() == nil {
				stats.OrphanPauseEnd++
				continue
			}
			end := p
			current.Pausas[len(current.Pausas)-1].End = &end

		case model.KindClockOut:
			if current == nil {
				stats.OrphanClockOut++
				continue
			}
			fin := p
			current.Fin = &fin
			current.EffectiveMinutes = p.EffectiveMinutes
			current.PausedMinutes = p.PausedMinutes
			closeCurrent()
		}
	}
	closeCurrent()

	return cycles, stats
}

// GroupAll partitions a mixed-user stream and groups each user's
// punches independently, merging the stats.
func (g *Grouper) GroupAll(punches []model.PunchEvent) ([]model.WorkCycle, Stats) {
	var (
		all   []model.WorkCycle
		stats Stats
	)
	for _, userPunches := range PartitionByUser(punches) {
		cycles, s := g.Group(userPunches)
		all = append(all, cycles...)
		stats.Add(s)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Inicio.Timestamp.Before(all[j].Inicio.Timestamp)
	})
	return all, stats
}

func (g *Grouper) cycleID(entrada model.PunchEvent) string {
	if entrada.ID != "" {
		return entrada.ID
	}
	return g.newID()
}

// PartitionByUser splits punches by user id, preserving relative order
// within each partition.
func PartitionByUser(punches []model.PunchEvent) map[string][]model.PunchEvent {
	out := make(map[string][]model.PunchEvent)
	for _, p := range punches {
		out[p.UserID] = append(out[p.UserID], p)
	}
	return out
}

// ByDate buckets cycles by their fixed calendar date. Bucket order
// within a date follows the input order.
func ByDate(cycles []model.WorkCycle) map[string][]model.WorkCycle {
	out := make(map[string][]model.WorkCycle)
	for _, c := range cycles {
		out[c.Date] = append(out[c.Date], c)
	}
	return out
}
