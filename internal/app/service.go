// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"time"

	eventqueue "github.com/jornada/fichaje/internal/adapters/mq/queue"
	workerpool "github.com/jornada/fichaje/internal/adapters/mq/worker"
	repository "github.com/jornada/fichaje/internal/adapters/repository"
	"github.com/jornada/fichaje/internal/domain/dedupe"
	"github.com/jornada/fichaje/internal/domain/duration"
	"github.com/jornada/fichaje/internal/domain/grouping"
	"github.com/jornada/fichaje/internal/domain/model"
	"github.com/jornada/fichaje/internal/domain/state"
	"github.com/jornada/fichaje/internal/domain/timeline"
	"github.com/jornada/fichaje/internal/domain/types"
	"github.com/jornada/fichaje/internal/export"
	"github.com/jornada/fichaje/internal/ingest"
	"github.com/jornada/fichaje/pkg/logger"
	"github.com/jornada/fichaje/pkg/metrics"
)

const dateLayout = "2006-01-02"

// Service implements the API dependencies for the punch clock system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	deduper     dedupe.Deduper
	queue       eventqueue.Queue
	pool        *workerpool.Pool
	broadcaster workerpool.Broadcaster
	normalizer  *ingest.Normalizer
	grouper     *grouping.Grouper
	projector   *timeline.Projector
	exporter    *export.Exporter

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	maxRangeDays int
	loc          *time.Location
	now          func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the punch store backing the service.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithBroadcaster sets the live feed sink for status updates.
func WithBroadcaster(b workerpool.Broadcaster) Option {
	return func(s *Service) {
		if b != nil {
			s.broadcaster = b
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the notification queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the duplicate-id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxRangeDays caps the from/to span accepted by listing queries.
func WithMaxRangeDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.maxRangeDays = days
		}
	}
}

// WithLocation sets the location for calendar dates and day bounds.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithNow injects the clock, used to measure open cycles.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU() * 2,
		queueSize:    10_000,
		dedupeSize:   50_000,
		maxRangeDays: 92,
		loc:          time.Local,
		now:          time.Now,
		logger:       nil, // will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// noopBroadcaster swallows status updates when no live feed is wired.
type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(ctx context.Context, event string, payload any) {}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting punch service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}
	if s.broadcaster == nil {
		s.broadcaster = noopBroadcaster{}
	}
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	s.normalizer = ingest.New(ingest.WithLocation(s.loc))
	s.grouper = grouping.New(grouping.WithLocation(s.loc))
	s.projector = timeline.New(timeline.WithLocation(s.loc))
	s.exporter = export.New(export.WithLocation(s.loc))

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store, s.broadcaster, s.loc)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "punch service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("timezone", s.loc.String()),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping punch service...")

	// Closing the queue first ends the workers' dequeue channels, so the
	// pool drains instead of waiting out its per-worker timeout.
	if q, ok := s.queue.(*eventqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	if s.pool != nil {
		s.pool.Stop()
	}

	s.started = false
	s.logger.Info(context.Background(), "punch service stopped")
}

// RegisterPunch normalizes and persists one wire row, then notifies the
// live feed. The second return is true when the row was a duplicate.
func (s *Service) RegisterPunch(ctx context.Context, row ingest.Row) (types.Punch, bool, error) {
	p, err := s.normalizer.NormalizeRow(row)
	if err != nil {
		metrics.RecordPunchRejected("malformed")
		return types.Punch{}, false, err
	}

	// Idempotency check on client-supplied ids.
	if p.ID != "" && s.deduper.SeenAndRecord(ctx, p.ID) {
		return types.NewPunch(p), true, nil
	}

	// Soft state guard: the kind must be allowed by the user's current
	// status, derived from the same local day.
	dayStart, dayEnd := s.dayBounds(p.Timestamp)
	existing, err := s.store.List(ctx, repository.Filter{UserID: p.UserID, From: dayStart, To: dayEnd})
	if err != nil {
		s.unrecord(ctx, p.ID)
		return types.Punch{}, false, fmt.Errorf("list punches: %w", err)
	}
	current := state.FromPunches(existing)
	if _, err := state.Next(current, p.Kind); err != nil {
		metrics.RecordPunchRejected("invalid_transition")
		s.unrecord(ctx, p.ID)
		return types.Punch{}, false, fmt.Errorf("%s while %s: %w", p.Kind, current, err)
	}

	stored, err := s.store.Save(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return types.NewPunch(p), true, nil
		}
		s.unrecord(ctx, p.ID)
		return types.Punch{}, false, fmt.Errorf("save punch: %w", err)
	}

	metrics.RecordPunchRegistered(string(stored.Kind))
	metrics.UpdateStoredPunches(s.store.Count(ctx))

	// Live feed delivery is best-effort; the punch is already durable.
	if ok := s.queue.Enqueue(ctx, stored); !ok {
		s.logger.Warn(ctx, "live feed notification dropped",
			logger.String("punchID", stored.ID),
			logger.String("userID", stored.UserID),
		)
	}

	return types.NewPunch(stored), false, nil
}

// ListPunches returns raw normalized punches in a range.
func (s *Service) ListPunches(ctx context.Context, userID string, from, to time.Time) ([]types.Punch, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	f, err := s.rangeFilter(userID, from, to)
	if err != nil {
		return nil, err
	}
	punches, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list punches: %w", err)
	}
	out := make([]types.Punch, 0, len(punches))
	for _, p := range punches {
		out = append(out, types.NewPunch(p))
	}
	return out, nil
}

// UpdateObservation replaces the free-text observation of a punch and
// returns the updated value.
func (s *Service) UpdateObservation(ctx context.Context, id, observation string) (types.Punch, error) {
	if err := s.store.UpdateObservation(ctx, id, observation); err != nil {
		return types.Punch{}, err
	}
	p, err := s.store.Punch(ctx, id)
	if err != nil {
		return types.Punch{}, err
	}
	return types.NewPunch(p), nil
}

// CorrectPunch moves a punch to a corrected instant and returns the
// updated value. The first original time is retained so views can show
// the diff.
func (s *Service) CorrectPunch(ctx context.Context, id string, corrected time.Time) (types.Punch, error) {
	if err := s.store.CorrectTimestamp(ctx, id, corrected); err != nil {
		return types.Punch{}, err
	}
	p, err := s.store.Punch(ctx, id)
	if err != nil {
		return types.Punch{}, err
	}
	metrics.RecordCorrectionsApplied(1)
	s.logger.Info(ctx, "punch timestamp corrected",
		logger.String("punchID", id),
		logger.String("userID", p.UserID),
	)
	return types.NewPunch(p), nil
}

// ImportPunches loads historical rows in bulk, overlaying corrections
// by punch id before persisting. Historical days are taken as written:
// the state guard, dedupe cache and live feed are skipped, and a row
// whose id already exists counts as skipped instead of failing the
// batch.
func (s *Service) ImportPunches(ctx context.Context, rows []ingest.Row, corrections map[string]time.Time) (types.ImportResult, error) {
	punches, err := s.normalizer.Normalize(rows)
	if err != nil {
		metrics.RecordPunchRejected("malformed")
		return types.ImportResult{}, err
	}
	punches, corrected := ingest.ApplyCorrections(punches, corrections)
	if corrected > 0 {
		metrics.RecordCorrectionsApplied(corrected)
	}

	res := types.ImportResult{Corrected: corrected}
	for _, p := range punches {
		stored, err := s.store.Save(ctx, p)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				res.Skipped++
				continue
			}
			return types.ImportResult{}, fmt.Errorf("save punch: %w", err)
		}
		metrics.RecordPunchRegistered(string(stored.Kind))
		res.Imported++
	}
	metrics.UpdateStoredPunches(s.store.Count(ctx))

	s.logger.Info(ctx, "historical punches imported",
		logger.Int("imported", res.Imported),
		logger.Int("corrected", res.Corrected),
		logger.Int("skipped", res.Skipped),
	)
	return res, nil
}

// Cycles returns reconstructed work cycles grouped by date, most recent
// date first.
func (s *Service) Cycles(ctx context.Context, userID string, from, to time.Time) ([]types.DayCycles, error) {
	cycles, err := s.cyclesInRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	now := s.now()
	byDate := grouping.ByDate(cycles)
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	out := make([]types.DayCycles, 0, len(dates))
	for _, d := range dates {
		day := types.DayCycles{Date: d}
		for _, c := range byDate[d] {
			dur := duration.Compute(c, now)
			day.Cycles = append(day.Cycles, types.NewCycle(c, dur.EffectiveMinutes, dur.PausedMinutes))
			day.EffectiveMinutes += dur.EffectiveMinutes
			day.PausedMinutes += dur.PausedMinutes
		}
		out = append(out, day)
	}
	return out, nil
}

// Timeline returns the render-ready event sequence for one local day.
// An empty date means today.
func (s *Service) Timeline(ctx context.Context, userID, date string) ([]types.TimelineEvent, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	day, err := s.parseDate(date)
	if err != nil {
		return nil, err
	}

	// Fetch two local days so a salida past midnight still lands in its
	// cycle; cycles anchored to other dates are dropped afterwards.
	dayStart, _ := s.dayBounds(day)
	f := repository.Filter{UserID: userID, From: dayStart, To: dayStart.AddDate(0, 0, 2).Add(-time.Nanosecond)}
	punches, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list punches: %w", err)
	}

	cycles := s.group(punches)
	dateStr := day.Format(dateLayout)
	kept := cycles[:0]
	for _, c := range cycles {
		if c.Date == dateStr {
			kept = append(kept, c)
		}
	}

	events := s.projector.Project(kept)
	metrics.RecordTimelineProjected()

	out := make([]types.TimelineEvent, 0, len(events))
	for _, e := range events {
		out = append(out, types.NewTimelineEvent(e))
	}
	return out, nil
}

// Summary aggregates worked and paused time per day and over the range.
func (s *Service) Summary(ctx context.Context, userID string, from, to time.Time) (types.Summary, error) {
	cycles, err := s.cyclesInRange(ctx, userID, from, to)
	if err != nil {
		return types.Summary{}, err
	}

	now := s.now()
	sum := types.Summary{UserID: userID}
	if !from.IsZero() {
		sum.From = from.In(s.loc).Format(dateLayout)
	}
	if !to.IsZero() {
		sum.To = to.In(s.loc).Format(dateLayout)
	}

	byDate := grouping.ByDate(cycles)
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	for _, d := range dates {
		day := types.DayTotal{Date: d, Cycles: len(byDate[d])}
		for _, c := range byDate[d] {
			dur := duration.Compute(c, now)
			day.EffectiveMinutes += dur.EffectiveMinutes
			day.PausedMinutes += dur.PausedMinutes
			sum.Cycles++
			if !c.Closed() {
				sum.OpenCycles++
			}
		}
		sum.EffectiveMinutes += day.EffectiveMinutes
		sum.PausedMinutes += day.PausedMinutes
		sum.PerDay = append(sum.PerDay, day)
	}
	sum.Days = len(dates)
	sum.EffectiveHours = export.FormatHours(sum.EffectiveMinutes)
	return sum, nil
}

// Status derives the current clock state of one user from today's punches.
func (s *Service) Status(ctx context.Context, userID string) (types.UserStatus, error) {
	if userID == "" {
		return types.UserStatus{}, ErrMissingUser
	}
	dayStart, dayEnd := s.dayBounds(s.now())
	punches, err := s.store.List(ctx, repository.Filter{UserID: userID, From: dayStart, To: dayEnd})
	if err != nil {
		return types.UserStatus{}, fmt.Errorf("list punches: %w", err)
	}
	return userStatus(userID, punches), nil
}

// Active lists the users currently working or paused, ordered by user id.
func (s *Service) Active(ctx context.Context) ([]types.UserStatus, error) {
	dayStart, dayEnd := s.dayBounds(s.now())
	punches, err := s.store.List(ctx, repository.Filter{From: dayStart, To: dayEnd})
	if err != nil {
		return nil, fmt.Errorf("list punches: %w", err)
	}

	byUser := grouping.PartitionByUser(punches)
	users := make([]string, 0, len(byUser))
	for u := range byUser {
		users = append(users, u)
	}
	sort.Strings(users)

	out := make([]types.UserStatus, 0, len(users))
	for _, u := range users {
		st := userStatus(u, byUser[u])
		if st.Status == string(state.StatusWorking) || st.Status == string(state.StatusPaused) {
			out = append(out, st)
		}
	}
	return out, nil
}

// ExportCSV streams the cycle report for a range.
func (s *Service) ExportCSV(ctx context.Context, userID string, from, to time.Time, w io.Writer) error {
	cycles, err := s.cyclesInRange(ctx, userID, from, to)
	if err != nil {
		return err
	}
	if err := s.exporter.Write(w, cycles, s.now()); err != nil {
		return err
	}
	metrics.RecordCSVExport()
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"maxRangeDays": s.maxRangeDays,
		"timezone":     s.loc.String(),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		storedPunches := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["storedPunches"] = storedPunches

		if counter, ok := s.broadcaster.(interface{ ClientCount() int }); ok {
			stats["liveClients"] = counter.ClientCount()
		}

		// Update metrics
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateStoredPunches(storedPunches)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

// cyclesInRange lists, groups and instruments one query.
func (s *Service) cyclesInRange(ctx context.Context, userID string, from, to time.Time) ([]model.WorkCycle, error) {
	f, err := s.rangeFilter(userID, from, to)
	if err != nil {
		return nil, err
	}
	punches, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list punches: %w", err)
	}
	return s.group(punches), nil
}

func (s *Service) group(punches []model.PunchEvent) []model.WorkCycle {
	start := time.Now()
	cycles, stats := s.grouper.GroupAll(punches)
	metrics.RecordGroupingLatency(float64(time.Since(start).Milliseconds()))
	metrics.RecordCyclesBuilt(len(cycles))
	recordGroupingStats(stats)
	return cycles
}

func recordGroupingStats(stats grouping.Stats) {
	for i := 0; i < stats.ImplicitCloses; i++ {
		metrics.RecordImplicitClose()
	}
	for i := 0; i < stats.OrphanPauseStart; i++ {
		metrics.RecordOrphanPunch(string(model.KindPauseStart))
	}
	for i := 0; i < stats.OrphanPauseEnd; i++ {
		metrics.RecordOrphanPunch(string(model.KindPauseEnd))
	}
	for i := 0; i < stats.OrphanClockOut; i++ {
		metrics.RecordOrphanPunch(string(model.KindClockOut))
	}
}

func userStatus(userID string, punches []model.PunchEvent) types.UserStatus {
	st := types.UserStatus{
		UserID: userID,
		Status: string(state.FromPunches(punches)),
	}
	if len(punches) > 0 {
		last := punches[len(punches)-1]
		since := last.Timestamp
		st.Since = &since
		st.LastPunchID = last.ID
		st.LastPunchKind = string(last.Kind)
		st.UserDisplayName = last.UserDisplayName
	}
	return st
}

// rangeFilter validates and builds the store filter for a query.
func (s *Service) rangeFilter(userID string, from, to time.Time) (repository.Filter, error) {
	if !from.IsZero() && !to.IsZero() {
		if to.Before(from) {
			return repository.Filter{}, fmt.Errorf("%w: from is after to", ErrBadDate)
		}
		if s.maxRangeDays > 0 && to.Sub(from) > time.Duration(s.maxRangeDays)*24*time.Hour {
			return repository.Filter{}, ErrRangeTooWide
		}
	}
	return repository.Filter{UserID: userID, From: from, To: to}, nil
}

// parseDate resolves an optional YYYY-MM-DD into local midnight.
func (s *Service) parseDate(date string) (time.Time, error) {
	if date == "" {
		return s.now().In(s.loc), nil
	}
	t, err := time.ParseInLocation(dateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, date)
	}
	return t, nil
}

// dayBounds returns the inclusive local-day window containing t.
func (s *Service) dayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func (s *Service) unrecord(ctx context.Context, id string) {
	if id != "" {
		s.deduper.Unrecord(ctx, id)
	}
}
