package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	repository "github.com/jornada/fichaje/internal/adapters/repository"
	model "github.com/jornada/fichaje/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func newTestStore() *repository.MemoryStore {
	n := 0
	return repository.NewMemoryStore(repository.WithIDFunc(func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}))
}

func storedPunch(id, user string, kind model.Kind, ts time.Time) model.PunchEvent {
	return model.PunchEvent{ID: id, UserID: user, Kind: kind, Timestamp: ts}
}

func TestMemoryStoreSaveAndGet(t *testing.T) {
	convey.Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := newTestStore()
		base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

		convey.Convey("When saving a punch without an id", func() {
			saved, err := s.Save(ctx, storedPunch("", "u-1", model.KindClockIn, base))

			convey.Convey("Then an id is assigned and the punch is readable", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(saved.ID, convey.ShouldEqual, "gen-1")

				got, err := s.Punch(ctx, "gen-1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.UserID, convey.ShouldEqual, "u-1")
				convey.So(s.Count(ctx), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When saving a punch with an existing id", func() {
			_, err := s.Save(ctx, storedPunch("p-1", "u-1", model.KindClockIn, base))
			convey.So(err, convey.ShouldBeNil)
			_, err = s.Save(ctx, storedPunch("p-1", "u-1", model.KindClockOut, base.Add(time.Hour)))

			convey.Convey("Then the duplicate is rejected", func() {
				convey.So(errors.Is(err, repository.ErrDuplicate), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When reading an unknown id", func() {
			_, err := s.Punch(ctx, "nope")

			convey.Convey("Then the not-found sentinel comes back", func() {
				convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
			})
		})
	})
}

func TestMemoryStoreList(t *testing.T) {
	convey.Convey("Given punches of two users across two days", t, func() {
		ctx := context.Background()
		s := newTestStore()
		day1 := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
		day2 := day1.AddDate(0, 0, 1)
		seed := []model.PunchEvent{
			storedPunch("a-2", "ana", model.KindClockOut, day1.Add(17*time.Hour)),
			storedPunch("a-1", "ana", model.KindClockIn, day1.Add(9*time.Hour)),
			storedPunch("b-1", "bruno", model.KindClockIn, day1.Add(10*time.Hour)),
			storedPunch("a-3", "ana", model.KindClockIn, day2.Add(9*time.Hour)),
		}
		for _, p := range seed {
			_, err := s.Save(ctx, p)
			convey.So(err, convey.ShouldBeNil)
		}

		convey.Convey("When listing without a filter", func() {
			out, err := s.List(ctx, repository.Filter{})

			convey.Convey("Then everything comes back sorted by time", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldHaveLength, 4)
				convey.So(out[0].ID, convey.ShouldEqual, "a-1")
				convey.So(out[1].ID, convey.ShouldEqual, "b-1")
				convey.So(out[2].ID, convey.ShouldEqual, "a-2")
				convey.So(out[3].ID, convey.ShouldEqual, "a-3")
			})
		})

		convey.Convey("When filtering by user", func() {
			out, err := s.List(ctx, repository.Filter{UserID: "ana"})

			convey.Convey("Then only that user's punches come back", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldHaveLength, 3)
			})
		})

		convey.Convey("When filtering by range", func() {
			out, err := s.List(ctx, repository.Filter{
				From: day1.Add(9 * time.Hour),
				To:   day1.Add(17 * time.Hour),
			})

			convey.Convey("Then the bounds are inclusive", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldHaveLength, 3)
				convey.So(out[0].ID, convey.ShouldEqual, "a-1")
				convey.So(out[2].ID, convey.ShouldEqual, "a-2")
			})
		})
	})
}

func TestMemoryStoreMutations(t *testing.T) {
	convey.Convey("Given a stored punch", t, func() {
		ctx := context.Background()
		s := newTestStore()
		base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
		_, err := s.Save(ctx, storedPunch("p-1", "u-1", model.KindClockIn, base))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When updating its observation", func() {
			err := s.UpdateObservation(ctx, "p-1", "olvidé fichar")

			convey.Convey("Then the new text is stored", func() {
				convey.So(err, convey.ShouldBeNil)
				got, _ := s.Punch(ctx, "p-1")
				convey.So(got.Observation, convey.ShouldEqual, "olvidé fichar")
			})
		})

		convey.Convey("When updating an unknown punch", func() {
			err := s.UpdateObservation(ctx, "nope", "x")
			convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("When correcting its timestamp", func() {
			corrected := base.Add(-10 * time.Minute)
			err := s.CorrectTimestamp(ctx, "p-1", corrected)

			convey.Convey("Then the original instant is retained", func() {
				convey.So(err, convey.ShouldBeNil)
				got, _ := s.Punch(ctx, "p-1")
				convey.So(got.Timestamp.Equal(corrected), convey.ShouldBeTrue)
				convey.So(got.OriginalTimestamp, convey.ShouldNotBeNil)
				convey.So(got.OriginalTimestamp.Equal(base), convey.ShouldBeTrue)
			})

			convey.Convey("And a second correction keeps the first original", func() {
				again := base.Add(-20 * time.Minute)
				convey.So(s.CorrectTimestamp(ctx, "p-1", again), convey.ShouldBeNil)
				got, _ := s.Punch(ctx, "p-1")
				convey.So(got.Timestamp.Equal(again), convey.ShouldBeTrue)
				convey.So(got.OriginalTimestamp.Equal(base), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When correcting to the same instant", func() {
			err := s.CorrectTimestamp(ctx, "p-1", base)

			convey.Convey("Then nothing changes", func() {
				convey.So(err, convey.ShouldBeNil)
				got, _ := s.Punch(ctx, "p-1")
				convey.So(got.OriginalTimestamp, convey.ShouldBeNil)
			})
		})
	})
}
