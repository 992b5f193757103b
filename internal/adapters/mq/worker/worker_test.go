package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/jornada/fichaje/internal/adapters/mq/queue"
	worker "github.com/jornada/fichaje/internal/adapters/mq/worker"
	repository "github.com/jornada/fichaje/internal/adapters/repository"
	model "github.com/jornada/fichaje/internal/domain/model"
	state "github.com/jornada/fichaje/internal/domain/state"
	logging "github.com/jornada/fichaje/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	notifChan  chan queue.Notification
	closeError error
}

func newMockQueue() *mockQueue {
	return &mockQueue{
		notifChan: make(chan queue.Notification, 10),
	}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Notification {
	return mq.notifChan
}

func (mq *mockQueue) Close() error {
	close(mq.notifChan)
	return mq.closeError
}

func (mq *mockQueue) addNotification(n queue.Notification) {
	mq.notifChan <- n
}

type mockLister struct {
	punches map[string][]model.PunchEvent
	errors  map[string]error
	mu      sync.RWMutex
}

func newMockLister() *mockLister {
	return &mockLister{
		punches: make(map[string][]model.PunchEvent),
		errors:  make(map[string]error),
	}
}

func (ml *mockLister) List(ctx context.Context, f repository.Filter) ([]model.PunchEvent, error) {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if err, exists := ml.errors[f.UserID]; exists {
		return nil, err
	}
	return ml.punches[f.UserID], nil
}

func (ml *mockLister) setPunches(userID string, punches []model.PunchEvent) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.punches[userID] = punches
}

func (ml *mockLister) setError(userID string, err error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.errors[userID] = err
}

type mockBroadcaster struct {
	updates []worker.StatusUpdate
	mu      sync.RWMutex
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{}
}

func (mb *mockBroadcaster) Broadcast(ctx context.Context, event string, payload any) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if update, ok := payload.(worker.StatusUpdate); ok {
		mb.updates = append(mb.updates, update)
	}
}

func (mb *mockBroadcaster) lastUpdate() (worker.StatusUpdate, bool) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if len(mb.updates) == 0 {
		return worker.StatusUpdate{}, false
	}
	return mb.updates[len(mb.updates)-1], true
}

func (mb *mockBroadcaster) count() int {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return len(mb.updates)
}

func punchFor(id, user string, kind model.Kind, ts time.Time) model.PunchEvent {
	return model.PunchEvent{ID: id, UserID: user, Kind: kind, Timestamp: ts, UserDisplayName: "Ana"}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		mq := newMockQueue()
		lister := newMockLister()
		broadcaster := newMockBroadcaster()

		convey.Convey("When creating a worker with default options", func() {
			w := worker.NewInMemoryWorker(mq, lister, broadcaster)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When creating a worker with custom options", func() {
			w := worker.NewInMemoryWorker(
				mq, lister, broadcaster,
				worker.WithName("test-worker"),
				worker.WithLocation(time.UTC),
			)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(mq, lister, broadcaster, worker.WithLocation(time.UTC))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go w.Run(ctx)
			time.Sleep(10 * time.Millisecond)

			convey.Convey("And when a clock-in notification arrives", func() {
				ts := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
				punch := punchFor("f-1", "u-1", model.KindClockIn, ts)
				lister.setPunches("u-1", []model.PunchEvent{punch})

				mq.addNotification(punch)
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then a clock_started update is broadcast", func() {
					update, ok := broadcaster.lastUpdate()
					convey.So(ok, convey.ShouldBeTrue)
					convey.So(update.Event, convey.ShouldEqual, worker.EventClockStarted)
					convey.So(update.UserID, convey.ShouldEqual, "u-1")
					convey.So(update.Status, convey.ShouldEqual, state.StatusWorking)
					convey.So(update.PunchID, convey.ShouldEqual, "f-1")
				})
			})

			convey.Convey("And when a clock-out notification arrives", func() {
				in := punchFor("f-1", "u-2", model.KindClockIn, time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
				out := punchFor("f-2", "u-2", model.KindClockOut, time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC))
				lister.setPunches("u-2", []model.PunchEvent{in, out})

				mq.addNotification(out)
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then a clock_stopped update carries the finished status", func() {
					update, ok := broadcaster.lastUpdate()
					convey.So(ok, convey.ShouldBeTrue)
					convey.So(update.Event, convey.ShouldEqual, worker.EventClockStopped)
					convey.So(update.Status, convey.ShouldEqual, state.StatusFinished)
				})
			})

			convey.Convey("And when a pause notification arrives", func() {
				in := punchFor("f-1", "u-3", model.KindClockIn, time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
				pause := punchFor("f-2", "u-3", model.KindPauseStart, time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC))
				lister.setPunches("u-3", []model.PunchEvent{in, pause})

				mq.addNotification(pause)
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then a punch_registered update carries the paused status", func() {
					update, ok := broadcaster.lastUpdate()
					convey.So(ok, convey.ShouldBeTrue)
					convey.So(update.Event, convey.ShouldEqual, worker.EventPunchRegistered)
					convey.So(update.Status, convey.ShouldEqual, state.StatusPaused)
				})
			})

			convey.Convey("And when the store lookup fails", func() {
				lister.setError("u-err", errors.New("store down"))
				punch := punchFor("f-9", "u-err", model.KindClockIn, time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))

				mq.addNotification(punch)
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then nothing is broadcast", func() {
					convey.So(broadcaster.count(), convey.ShouldEqual, 0)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()

				err := w.Shutdown(shutdownCtx)

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(err, convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When context is cancelled", func() {
			w := worker.NewInMemoryWorker(mq, lister, broadcaster)
			ctx, cancel := context.WithCancel(context.Background())

			go w.Run(ctx)
			time.Sleep(10 * time.Millisecond)

			cancel()
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then worker should stop", func() {
				convey.So(true, convey.ShouldBeTrue) // Placeholder assertion
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a new WorkerPool", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		mq := newMockQueue()
		lister := newMockLister()
		broadcaster := newMockBroadcaster()

		convey.Convey("When creating a worker pool with default count", func() {
			pool := worker.NewPool(0, mq, lister, broadcaster, time.UTC)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(pool, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When creating a worker pool with custom count", func() {
			pool := worker.NewPool(3, mq, lister, broadcaster, time.UTC)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(pool, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When starting a worker pool", func() {
			pool := worker.NewPool(2, mq, lister, broadcaster, time.UTC)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			pool.Start(ctx)
			time.Sleep(20 * time.Millisecond)

			convey.Convey("And when processing multiple notifications", func() {
				base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
				punches := []model.PunchEvent{
					punchFor("f-1", "u-1", model.KindClockIn, base),
					punchFor("f-2", "u-2", model.KindClockIn, base.Add(time.Minute)),
					punchFor("f-3", "u-3", model.KindClockIn, base.Add(2*time.Minute)),
				}
				for _, p := range punches {
					lister.setPunches(p.UserID, []model.PunchEvent{p})
					mq.addNotification(p)
				}
				time.Sleep(100 * time.Millisecond)

				convey.Convey("Then every notification is broadcast", func() {
					convey.So(broadcaster.count(), convey.ShouldEqual, 3)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
				defer shutdownCancel()

				err := pool.Shutdown(shutdownCtx)

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(err, convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When stopping a worker pool", func() {
			pool := worker.NewPool(2, mq, lister, broadcaster, time.UTC)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			pool.Start(ctx)
			time.Sleep(20 * time.Millisecond)

			pool.Stop()
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then all workers should be stopped", func() {
				convey.So(true, convey.ShouldBeTrue) // Placeholder assertion
			})
		})
	})
}

func TestWorkerConcurrency(t *testing.T) {
	convey.Convey("Given a worker pool with multiple workers", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		mq := newMockQueue()
		lister := newMockLister()
		broadcaster := newMockBroadcaster()

		pool := worker.NewPool(4, mq, lister, broadcaster, time.UTC)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pool.Start(ctx)
		time.Sleep(20 * time.Millisecond)

		convey.Convey("When processing many concurrent notifications", func() {
			const notificationCount = 100
			base := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
			var wg sync.WaitGroup

			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func(producerID int) {
					defer wg.Done()
					for j := 0; j < notificationCount/5; j++ {
						userID := fmt.Sprintf("u-%d-%d", producerID, j)
						p := punchFor(fmt.Sprintf("f-%d-%d", producerID, j), userID, model.KindClockIn, base.Add(time.Duration(j)*time.Minute))
						lister.setPunches(userID, []model.PunchEvent{p})
						mq.addNotification(p)
					}
				}(i)
			}

			wg.Wait()
			time.Sleep(200 * time.Millisecond)

			convey.Convey("Then every notification is broadcast exactly once", func() {
				convey.So(broadcaster.count(), convey.ShouldEqual, notificationCount)
			})
		})
	})
}
