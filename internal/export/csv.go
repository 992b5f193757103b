// Package export renders work cycles as CSV reports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jornada/fichaje/internal/domain/duration"
	model "github.com/jornada/fichaje/internal/domain/model"
)

// Header matches the columns the web client's download produced.
var header = []string{
	"fecha",
	"usuario",
	"entrada",
	"salida",
	"pausas",
	"minutos_pausados",
	"minutos_efectivos",
	"horas_efectivas",
}

// Option applies a configuration option to the Exporter.
type Option func(*Exporter)

// WithLocation sets the location used to format punch times.
func WithLocation(loc *time.Location) Option {
	return func(e *Exporter) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// Exporter writes cycle reports.
type Exporter struct {
	loc *time.Location
}

// New creates an Exporter with configuration options.
func New(opts ...Option) *Exporter {
	e := &Exporter{loc: time.Local}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Write renders one row per cycle, ordered by date and entrada. Open
// cycles are measured against now and their salida column left empty.
func (e *Exporter) Write(w io.Writer, cycles []model.WorkCycle, now time.Time) error {
	ordered := make([]model.WorkCycle, len(cycles))
	copy(ordered, cycles)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Date != ordered[j].Date {
			return ordered[i].Date < ordered[j].Date
		}
		return ordered[i].Inicio.Timestamp.Before(ordered[j].Inicio.Timestamp)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, c := range ordered {
		d := duration.Compute(c, now)
		salida := ""
		if c.Fin != nil {
			salida = c.Fin.Timestamp.In(e.loc).Format("15:04")
		}
		user := c.Inicio.UserDisplayName
		if user == "" {
			user = c.Inicio.UserID
		}
		record := []string{
			c.Date,
			user,
			c.Inicio.Timestamp.In(e.loc).Format("15:04"),
			salida,
			fmt.Sprintf("%d", len(c.Pausas)),
			fmt.Sprintf("%d", d.PausedMinutes),
			fmt.Sprintf("%d", d.EffectiveMinutes),
			FormatHours(d.EffectiveMinutes),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// FormatHours renders minute totals the way the report column does.
func FormatHours(minutes int) string {
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}
