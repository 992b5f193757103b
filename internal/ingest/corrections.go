package ingest

import (
	"time"

	model "github.com/jornada/fichaje/internal/domain/model"
)

// ApplyCorrections overlays corrected instants onto punches by id,
// keyed by persisted punch id. Non-destructive: the effective timestamp
// moves and the prior one is retained in OriginalTimestamp so views can
// show both. A punch corrected more than once keeps its first original.
// Punches without a correction pass through untouched. Returns the
// number of punches actually changed.
func ApplyCorrections(punches []model.PunchEvent, corrections map[string]time.Time) ([]model.PunchEvent, int) {
	if len(corrections) == 0 {
		return punches, 0
	}
	out := make([]model.PunchEvent, len(punches))
	copy(out, punches)
	applied := 0
	for i := range out {
		corrected, ok := corrections[out[i].ID]
		if !ok || corrected.Equal(out[i].Timestamp) {
			continue
		}
		if out[i].OriginalTimestamp == nil {
			orig := out[i].Timestamp
			out[i].OriginalTimestamp = &orig
		}
		out[i].Timestamp = corrected
		applied++
	}
	return out, applied
}
