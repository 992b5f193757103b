package punchgen

import (
	"fmt"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

func TestGenerateSingleDay(t *testing.T) {
	convey.Convey("Given the day generator", t, func() {
		base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

		convey.Convey("When generating days for many users", func() {
			for i := 0; i < 200; i++ {
				day := generateSingleDay(i, "user-id", base)

				convey.Convey(fmt.Sprintf("Then every day should start with an entrada (day %d)", i), func() {
					convey.So(len(day.Rows), convey.ShouldBeGreaterThan, 0)
					convey.So(day.Rows[0].Tipo, convey.ShouldEqual, "entrar")
				})

				convey.Convey(fmt.Sprintf("And the rows should be chronological (day %d)", i), func() {
					for j := 1; j < len(day.Rows); j++ {
						prev, err := time.Parse(wireTimeLayout, day.Rows[j-1].FechaCreacion)
						convey.So(err, convey.ShouldBeNil)
						curr, err := time.Parse(wireTimeLayout, day.Rows[j].FechaCreacion)
						convey.So(err, convey.ShouldBeNil)
						convey.So(curr.After(prev), convey.ShouldBeTrue)
					}
				})

				convey.Convey(fmt.Sprintf("And the expected estado should match the shape (day %d)", i), func() {
					switch day.Shape {
					case shapePausedOpen:
						convey.So(day.Expected, convey.ShouldEqual, "en_pausa")
					case shapeStillWorking:
						convey.So(day.Expected, convey.ShouldEqual, "trabajando")
					default:
						convey.So(day.Expected, convey.ShouldEqual, "finalizado")
					}
				})
			}
		})
	})
}

func TestVerifyActiveConsistency(t *testing.T) {
	convey.Convey("Given expected statuses and an active list", t, func() {
		expected := map[string]string{
			"u-1": "finalizado",
			"u-2": "trabajando",
			"u-3": "en_pausa",
		}

		convey.Convey("When the active list matches", func() {
			active := []StatusResponse{
				{UserID: "u-2", Estado: "trabajando"},
				{UserID: "u-3", Estado: "en_pausa"},
			}
			convey.So(verifyActiveConsistency(expected, active), convey.ShouldBeNil)
		})

		convey.Convey("When an active user is missing", func() {
			active := []StatusResponse{
				{UserID: "u-2", Estado: "trabajando"},
			}
			convey.So(verifyActiveConsistency(expected, active), convey.ShouldNotBeNil)
		})

		convey.Convey("When a finished user shows up as active", func() {
			active := []StatusResponse{
				{UserID: "u-1", Estado: "trabajando"},
				{UserID: "u-2", Estado: "trabajando"},
				{UserID: "u-3", Estado: "en_pausa"},
			}
			convey.So(verifyActiveConsistency(expected, active), convey.ShouldNotBeNil)
		})
	})
}
