// Package worker defines workers that turn stored punches into live
// status updates for the websocket feed.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/jornada/fichaje/internal/adapters/mq/queue"
	"github.com/jornada/fichaje/internal/adapters/repository"
	"github.com/jornada/fichaje/internal/domain/model"
	"github.com/jornada/fichaje/internal/domain/state"
	"github.com/jornada/fichaje/pkg/logger"
	"github.com/jornada/fichaje/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Notification is what workers read off the queue.
type Notification = queue.Notification

// Live feed event names, matching what the web clients subscribe to.
const (
	EventClockStarted    = "clock_started"
	EventClockStopped    = "clock_stopped"
	EventPunchRegistered = "punch_registered"
)

// StatusUpdate is the payload pushed to the live feed after a punch.
type StatusUpdate struct {
	Event           string       `json:"event"`
	UserID          string       `json:"user_id"`
	UserDisplayName string       `json:"usuario_nombre,omitempty"`
	Status          state.Status `json:"status"`
	PunchID         string       `json:"punch_id"`
	Kind            model.Kind   `json:"tipo"`
	Timestamp       time.Time    `json:"fecha_creacion"`
}

// Lister reads back a user's punches to derive their status.
type Lister interface {
	List(ctx context.Context, f repository.Filter) ([]model.PunchEvent, error)
}

// Broadcaster pushes a status update to connected clients.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, payload any)
}

// Queue defines how workers receive notifications.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Notification
}

// Worker processes notifications and publishes status updates.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining notifications before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing notifications.
type InMemoryWorker struct {
	queue       Queue
	lister      Lister
	broadcaster Broadcaster
	loc         *time.Location
	name        string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, lister Lister, broadcaster Broadcaster, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       q,
		lister:      lister,
		broadcaster: broadcaster,
		loc:         time.Local,
		name:        "worker", // default name
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("worker"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	notifChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case n, ok := <-notifChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			if err := w.processNotification(ctx, n); err != nil {
				w.logger.Error(ctx, "error processing notification", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	close(w.shutdown)

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processNotification derives the user's status after the punch and
// broadcasts it.
func (w *InMemoryWorker) processNotification(ctx context.Context, n Notification) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordWorkerProcessingLatency(float64(latency))
	}()

	// The punch's own day, in the service location, bounds the lookup.
	local := n.Timestamp.In(w.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, w.loc)
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)

	queryStart := time.Now()
	punches, err := w.lister.List(ctx, repository.Filter{
		UserID: n.UserID,
		From:   dayStart,
		To:     dayEnd,
	})
	metrics.RecordStoreQueryLatency(float64(time.Since(queryStart).Milliseconds()))
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		metrics.RecordErrorByType("store_error", "high")
		w.logger.Error(ctx, "listing punches failed",
			logger.String("punchID", n.ID),
			logger.String("userID", n.UserID),
			logger.Error(err),
		)
		return fmt.Errorf("list punches for %s: %w", n.UserID, err)
	}

	update := StatusUpdate{
		Event:           eventName(n.Kind),
		UserID:          n.UserID,
		UserDisplayName: n.UserDisplayName,
		Status:          state.FromPunches(punches),
		PunchID:         n.ID,
		Kind:            n.Kind,
		Timestamp:       n.Timestamp,
	}
	w.broadcaster.Broadcast(ctx, update.Event, update)

	return nil
}

func eventName(kind model.Kind) string {
	switch kind {
	case model.KindClockIn:
		return EventClockStarted
	case model.KindClockOut:
		return EventClockStopped
	}
	return EventPunchRegistered
}

// Pool manages multiple workers.
type Pool struct {
	workers     []*InMemoryWorker
	queue       Queue
	lister      Lister
	broadcaster Broadcaster

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Metrics tracking
	processedCount    int64
	lastProcessedTime time.Time

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, lister Lister, broadcaster Broadcaster, loc *time.Location) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             q,
		lister:            lister,
		broadcaster:       broadcaster,
		shutdown:          make(chan struct{}),
		done:              make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q,
			lister,
			broadcaster,
			WithName("worker-"+strconv.Itoa(i)),
			WithLocation(loc),
		)
	}

	// Initialize worker metrics
	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerIdleCount(0)
	metrics.UpdateWorkerMessagesPerSecond(0.0)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}

	// Start metrics updater
	go p.startMetricsUpdater(ctx)
}

// startMetricsUpdater starts a background goroutine that updates worker metrics.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

// updateMetrics updates worker-related metrics.
func (p *Pool) updateMetrics() {
	// Calculate messages per second
	now := time.Now()
	timeDiff := now.Sub(p.lastProcessedTime).Seconds()
	if timeDiff > 0 {
		messagesPerSecond := float64(p.processedCount) / timeDiff
		metrics.UpdateWorkerMessagesPerSecond(messagesPerSecond)
	}

	// Reset counters
	p.processedCount = 0
	p.lastProcessedTime = now
}

// RecordProcessedMessage increments the processed message count.
func (p *Pool) RecordProcessedMessage() {
	p.processedCount++
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	// Signal shutdown to all workers
	close(p.shutdown)

	// Wait for all workers to finish
	for _, worker := range p.workers {
		select {
		case <-worker.done:
			// Worker finished
		case <-time.After(workerShutdownTimeout):
			// Worker timeout
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new notifications
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	// Signal shutdown to all workers
	close(p.shutdown)

	// Wait for all workers to finish or context to timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
