// Package timeline flattens work cycles into render-ready event lists.
package timeline

import (
	"fmt"
	"sort"
	"time"

	model "github.com/jornada/fichaje/internal/domain/model"
)

// Option applies a configuration option to the Projector.
type Option func(*Projector)

// WithLocation sets the location used for per-event calendar dates.
func WithLocation(loc *time.Location) Option {
	return func(p *Projector) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// Projector turns cycles into chronological timeline events.
type Projector struct {
	loc *time.Location
}

// New creates a Projector with configuration options.
func New(opts ...Option) *Projector {
	p := &Projector{loc: time.Local}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Project flattens entrada, pause boundaries and salida of every cycle
// and sorts the merged slice by time. Pure and idempotent: projecting
// the same cycles twice yields the same slice, and no input survives
// by reference. Cycles with missing pieces simply contribute fewer
// events; an empty input projects to an empty timeline.
func (pr *Projector) Project(cycles []model.WorkCycle) []model.TimelineEvent {
	var events []model.TimelineEvent
	for _, c := range cycles {
		events = append(events, pr.event(c, c.Inicio))
		for _, p := range c.Pausas {
			events = append(events, pr.event(c, p.Start))
			if p.End != nil {
				events = append(events, pr.event(c, *p.End))
			}
		}
		if c.Fin != nil {
			events = append(events, pr.event(c, *c.Fin))
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})
	return events
}

func (pr *Projector) event(c model.WorkCycle, p model.PunchEvent) model.TimelineEvent {
	dateStr := model.CycleDate(p.Timestamp, pr.loc)
	ev := model.TimelineEvent{
		ID:                fmt.Sprintf("%s-%s-%d", p.Kind, c.ID, p.Timestamp.UnixMilli()),
		DBID:              p.ID,
		Time:              p.Timestamp,
		Kind:              p.Kind,
		Label:             model.KindLabel(p.Kind),
		Color:             model.KindColor(p.Kind),
		CycleID:           c.ID,
		DateStr:           dateStr,
		IsNextDay:         dateStr != c.Date,
		LocationWarning:   p.LocationWarning,
		EarlyEntryWarning: p.EarlyEntryWarning,
		Observation:       p.Observation,
		Justification:     p.Justification,
	}
	if p.Location != nil {
		loc := *p.Location
		ev.Location = &loc
	}
	if p.Corrected() {
		orig := *p.OriginalTimestamp
		ev.OriginalTime = &orig
	}
	return ev
}
