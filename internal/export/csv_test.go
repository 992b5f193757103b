package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	model "github.com/jornada/fichaje/internal/domain/model"
	export "github.com/jornada/fichaje/internal/export"
	"github.com/smartystreets/goconvey/convey"
)

func at(day, h, m int) time.Time {
	return time.Date(2026, 3, day, h, m, 0, 0, time.UTC)
}

func TestWrite(t *testing.T) {
	convey.Convey("Given cycles across two days", t, func() {
		e := export.New(export.WithLocation(time.UTC))
		finA := model.PunchEvent{ID: "a-4", Kind: model.KindClockOut, Timestamp: at(14, 17, 0)}
		pauseEnd := model.PunchEvent{ID: "a-3", Kind: model.KindPauseEnd, Timestamp: at(14, 13, 30)}
		closed := model.WorkCycle{
			ID:   "c-1",
			Date: "2026-03-14",
			Inicio: model.PunchEvent{
				ID: "a-1", Kind: model.KindClockIn, Timestamp: at(14, 8, 59),
				UserID: "u-1", UserDisplayName: "Ana Pérez",
			},
			Pausas: []model.Pause{{
				Start: model.PunchEvent{ID: "a-2", Kind: model.KindPauseStart, Timestamp: at(14, 13, 0)},
				End:   &pauseEnd,
			}},
			Fin: &finA,
		}
		open := model.WorkCycle{
			ID:     "c-2",
			Date:   "2026-03-15",
			Inicio: model.PunchEvent{ID: "b-1", Kind: model.KindClockIn, Timestamp: at(15, 9, 0), UserID: "u-2"},
		}

		convey.Convey("When writing the report", func() {
			var buf bytes.Buffer
			err := e.Write(&buf, []model.WorkCycle{open, closed}, at(15, 10, 0))

			convey.Convey("Then rows come back ordered with computed totals", func() {
				convey.So(err, convey.ShouldBeNil)

				records, err := csv.NewReader(&buf).ReadAll()
				convey.So(err, convey.ShouldBeNil)
				convey.So(records, convey.ShouldHaveLength, 3)
				convey.So(records[0], convey.ShouldResemble, []string{
					"fecha", "usuario", "entrada", "salida", "pausas",
					"minutos_pausados", "minutos_efectivos", "horas_efectivas",
				})
				convey.So(records[1], convey.ShouldResemble, []string{
					"2026-03-14", "Ana Pérez", "08:59", "17:00", "1", "30", "451", "7h 31m",
				})

				convey.Convey("And the open cycle has an empty salida and runs to now", func() {
					convey.So(records[2][0], convey.ShouldEqual, "2026-03-15")
					convey.So(records[2][1], convey.ShouldEqual, "u-2")
					convey.So(records[2][3], convey.ShouldEqual, "")
					convey.So(records[2][6], convey.ShouldEqual, "60")
				})
			})
		})

		convey.Convey("When writing no cycles", func() {
			var buf bytes.Buffer
			err := e.Write(&buf, nil, at(15, 10, 0))

			convey.Convey("Then only the header is produced", func() {
				convey.So(err, convey.ShouldBeNil)
				records, err := csv.NewReader(&buf).ReadAll()
				convey.So(err, convey.ShouldBeNil)
				convey.So(records, convey.ShouldHaveLength, 1)
			})
		})
	})
}
