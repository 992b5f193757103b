package punchgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jornada/fichaje/internal/ingest"
	"github.com/jornada/fichaje/pkg/logger"
)

// Timestamp layout of the wire format; offset-less values are
// interpreted in the service timezone.
const wireTimeLayout = "2006-01-02T15:04:05"

// Constants for random number generation.
const (
	jitterMinutes = 15
	shapeDivisor  = 8
)

// Day shape cases. Most users get a standard office day; the rest
// exercise pauses, split shifts and still-open days.
const (
	shapeStandardDay  = 0 // 09:00-17:00 with a half-hour pause
	shapeEarlyBird    = 1 // entrada before threshold, flagged upstream
	shapeShortDay     = 2 // no pause, out by mid-afternoon
	shapeSplitShift   = 3 // two separate cycles in one day
	shapePausedOpen   = 4 // still on pause, no finp/salir yet
	shapeLateShift    = 5 // afternoon start, out before midnight
	shapeLongLunch    = 6 // ninety-minute pause
	shapeStillWorking = 7 // entrada only
)

// Sample display names for synthetic users.
var sampleNames = []string{
	"Ana Pérez",
	"Luis García",
	"Marta López",
	"Jorge Ruiz",
	"Lucía Moreno",
	"Pablo Sanz",
	"Elena Ortega",
	"Raúl Navarro",
}

// randomInt returns a random int in [0, n) using crypto/rand.
func randomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// jitter returns a random offset in minutes, up to ±jitterMinutes.
func jitter() int {
	return randomInt(2*jitterMinutes+1) - jitterMinutes
}

// generateDays creates punch days for the configured number of users.
func generateDays(ctx context.Context, config *Config, stats *Stats) ([]Day, error) {
	logger.Get().Info(ctx, "generating punch days for synthetic users", logger.Int("numUsers", config.NumUsers))

	days := make([]Day, config.NumUsers)

	// Pre-allocate user IDs to ensure uniqueness
	userIDs := make([]string, config.NumUsers)
	for i := 0; i < config.NumUsers; i++ {
		userIDs[i] = uuid.New().String()
	}

	// Anchor every generated day on today in the runner's zone; the
	// service interprets the offset-less timestamps in its own zone.
	base := time.Now()

	// Generate days concurrently
	type dayResult struct {
		index int
		day   Day
		err   error
	}

	resultChan := make(chan dayResult, config.NumUsers)

	// Use worker pool for day generation
	workerCount := minInt(config.Workers, config.NumUsers)
	daysPerWorker := config.NumUsers / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * daysPerWorker
		end := start + daysPerWorker
		if worker == workerCount-1 {
			end = config.NumUsers // Last worker gets remaining users
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- dayResult{index: i, err: ctx.Err()}
					return
				default:
					resultChan <- dayResult{index: i, day: generateSingleDay(i, userIDs[i], base)}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumUsers; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during day generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate day %d: %w", result.index, result.err)
			}
			days[result.index] = result.day
		}
	}

	stats.DaysGenerated = len(days)
	for _, d := range days {
		stats.PunchesGenerated += len(d.Rows)
	}
	logger.Get().Info(ctx, "generated punch days successfully",
		logger.Int("days", len(days)),
		logger.Int("punches", stats.PunchesGenerated))

	return days, nil
}

// generateSingleDay builds one user's punch sequence with a varied
// shape, mirroring the patterns seen in real attendance data.
func generateSingleDay(index int, userID string, base time.Time) Day {
	shape := randomInt(shapeDivisor)
	name := sampleNames[index%len(sampleNames)]

	d := Day{
		UserID:   userID,
		UserName: name,
		Shape:    shape,
	}

	// One offset per day keeps the gaps between punches intact, so the
	// jitter can never reorder a sequence.
	off := jitter()
	at := func(h, m int) string {
		t := time.Date(base.Year(), base.Month(), base.Day(), h, m+off, randomInt(60), 0, base.Location())
		return t.Format(wireTimeLayout)
	}
	punch := func(tipo, ts string, early bool) ingest.Row {
		r := ingest.Row{
			ID:            "punch_" + strconv.Itoa(index) + "_" + uuid.New().String(),
			FechaCreacion: ts,
			Tipo:          tipo,
			FkUser:        userID,
			UsuarioNombre: name,
		}
		if early {
			r.EarlyEntryWarning = 1
		}
		return r
	}

	switch shape {
	case shapeEarlyBird:
		d.Expected = "finalizado"
		d.Rows = []ingest.Row{
			punch("entrar", at(7, 40), true),
			punch("pausa", at(12, 0), false),
			punch("finp", at(12, 30), false),
			punch("salir", at(16, 0), false),
		}
	case shapeShortDay:
		d.Expected = "finalizado"
		d.Rows = []ingest.Row{
			punch("entrar", at(9, 30), false),
			punch("salir", at(14, 30), false),
		}
	case shapeSplitShift:
		d.Expected = "finalizado"
		d.Rows = []ingest.Row{
			punch("entrar", at(9, 0), false),
			punch("salir", at(13, 0), false),
			punch("entrar", at(16, 0), false),
			punch("salir", at(20, 0), false),
		}
	case shapePausedOpen:
		d.Expected = "en_pausa"
		d.Rows = []ingest.Row{
			punch("entrar", at(9, 0), false),
			punch("pausa", at(13, 0), false),
		}
	case shapeLateShift:
		d.Expected = "finalizado"
		d.Rows = []ingest.Row{
			punch("entrar", at(14, 0), false),
			punch("pausa", at(18, 0), false),
			punch("finp", at(18, 45), false),
			punch("salir", at(23, 15), false),
		}
	case shapeLongLunch:
		d.Expected = "finalizado"
		d.Rows = []ingest.Row{
			punch("entrar", at(9, 0), false),
			punch("pausa", at(13, 30), false),
			punch("finp", at(15, 0), false),
			punch("salir", at(18, 0), false),
		}
	case shapeStillWorking:
		d.Expected = "trabajando"
		d.Rows = []ingest.Row{
			punch("entrar", at(9, 0), false),
		}
	default: // shapeStandardDay and any fallthrough
		d.Expected = "finalizado"
		d.Rows = []ingest.Row{
			punch("entrar", at(9, 0), false),
			punch("pausa", at(13, 0), false),
			punch("finp", at(13, 30), false),
			punch("salir", at(17, 0), false),
		}
	}

	return d
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
