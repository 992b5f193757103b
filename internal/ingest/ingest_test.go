package ingest_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/jornada/fichaje/internal/domain/model"
	ingest "github.com/jornada/fichaje/internal/ingest"
	"github.com/smartystreets/goconvey/convey"
)

func TestNormalizeRow(t *testing.T) {
	convey.Convey("Given a normalizer pinned to UTC", t, func() {
		n := ingest.New(ingest.WithLocation(time.UTC))

		convey.Convey("When parsing a complete row", func() {
			eff, paused := 451, 30
			row := ingest.Row{
				ID:                "f-1001",
				FechaCreacion:     "2026-03-14 17:00:00",
				Tipo:              "salir",
				FkUser:            "u-7",
				UsuarioNombre:     "Ana Pérez",
				Lat:               "39.46975000",
				Lng:               "-0.37739000",
				Observaciones:     "cierre de caja",
				Justification:     "turno largo",
				LocationWarning:   1,
				EarlyEntryWarning: 0,
				DuracionEfectiva:  &eff,
				DuracionPausas:    &paused,
			}
			p, err := n.NormalizeRow(row)

			convey.Convey("Then every field lands on the punch", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.ID, convey.ShouldEqual, "f-1001")
				convey.So(p.Kind, convey.ShouldEqual, model.KindClockOut)
				convey.So(p.Timestamp.Equal(time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC)), convey.ShouldBeTrue)
				convey.So(p.UserID, convey.ShouldEqual, "u-7")
				convey.So(p.UserDisplayName, convey.ShouldEqual, "Ana Pérez")
				convey.So(p.Location, convey.ShouldNotBeNil)
				convey.So(p.Location.Lat, convey.ShouldAlmostEqual, 39.46975)
				convey.So(p.LocationWarning, convey.ShouldBeTrue)
				convey.So(p.EarlyEntryWarning, convey.ShouldBeFalse)
				convey.So(*p.EffectiveMinutes, convey.ShouldEqual, 451)
				convey.So(*p.PausedMinutes, convey.ShouldEqual, 30)
			})
		})

		convey.Convey("When the tipo uses a long pause form", func() {
			p1, err1 := n.NormalizeRow(ingest.Row{ID: "f-1", FechaCreacion: "2026-03-14T13:00:00", Tipo: "iniciar_pausa", FkUser: "u-1"})
			p2, err2 := n.NormalizeRow(ingest.Row{ID: "f-2", FechaCreacion: "2026-03-14T13:30:00", Tipo: "terminar_pausa", FkUser: "u-1"})

			convey.Convey("Then it maps to the short kinds", func() {
				convey.So(err1, convey.ShouldBeNil)
				convey.So(p1.Kind, convey.ShouldEqual, model.KindPauseStart)
				convey.So(err2, convey.ShouldBeNil)
				convey.So(p2.Kind, convey.ShouldEqual, model.KindPauseEnd)
			})
		})

		convey.Convey("When the tipo is unknown", func() {
			_, err := n.NormalizeRow(ingest.Row{ID: "f-1", FechaCreacion: "2026-03-14T09:00:00", Tipo: "descanso", FkUser: "u-1"})

			convey.Convey("Then it fails with the kind sentinel", func() {
				convey.So(errors.Is(err, ingest.ErrBadKind), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the timestamp is unparseable", func() {
			_, err := n.NormalizeRow(ingest.Row{ID: "f-1", FechaCreacion: "ayer", Tipo: "entrar", FkUser: "u-1"})

			convey.Convey("Then it fails with the timestamp sentinel", func() {
				convey.So(errors.Is(err, ingest.ErrBadTimestamp), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the user is missing", func() {
			_, err := n.NormalizeRow(ingest.Row{ID: "f-1", FechaCreacion: "2026-03-14T09:00:00", Tipo: "entrar"})

			convey.Convey("Then it fails with the missing-field sentinel", func() {
				convey.So(errors.Is(err, ingest.ErrMissingField), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When coordinates are placeholders", func() {
			zero, errZero := n.NormalizeRow(ingest.Row{ID: "f-1", FechaCreacion: "2026-03-14T09:00:00", Tipo: "entrar", FkUser: "u-1", Lat: "0.00000000", Lng: "0.00000000"})
			empty, errEmpty := n.NormalizeRow(ingest.Row{ID: "f-2", FechaCreacion: "2026-03-14T09:00:00", Tipo: "entrar", FkUser: "u-1"})

			convey.Convey("Then the punch has no location", func() {
				convey.So(errZero, convey.ShouldBeNil)
				convey.So(zero.Location, convey.ShouldBeNil)
				convey.So(errEmpty, convey.ShouldBeNil)
				convey.So(empty.Location, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the row carries fecha_original", func() {
			p, err := n.NormalizeRow(ingest.Row{
				ID:            "f-1",
				FechaCreacion: "2026-03-14 09:00:00",
				FechaOriginal: "2026-03-14 09:12:00",
				Tipo:          "entrar",
				FkUser:        "u-1",
			})

			convey.Convey("Then the punch is marked corrected", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.OriginalTimestamp, convey.ShouldNotBeNil)
				convey.So(p.Corrected(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given an offset-less timestamp and a non-UTC location", t, func() {
		madrid, err := time.LoadLocation("Europe/Madrid")
		convey.So(err, convey.ShouldBeNil)
		n := ingest.New(ingest.WithLocation(madrid))

		convey.Convey("When parsing", func() {
			p, err := n.NormalizeRow(ingest.Row{ID: "f-1", FechaCreacion: "2026-07-10 09:00:00", Tipo: "entrar", FkUser: "u-1"})

			convey.Convey("Then the instant is interpreted in that location", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.Timestamp.Equal(time.Date(2026, 7, 10, 9, 0, 0, 0, madrid)), convey.ShouldBeTrue)
			})
		})
	})
}

func TestNormalizeBatch(t *testing.T) {
	convey.Convey("Given a batch with one bad row", t, func() {
		n := ingest.New(ingest.WithLocation(time.UTC))
		rows := []ingest.Row{
			{ID: "f-1", FechaCreacion: "2026-03-14T09:00:00", Tipo: "entrar", FkUser: "u-1"},
			{ID: "f-2", FechaCreacion: "2026-03-14T17:00:00", Tipo: "volar", FkUser: "u-1"},
		}

		convey.Convey("When normalizing", func() {
			punches, err := n.Normalize(rows)

			convey.Convey("Then the whole batch is rejected with row context", func() {
				convey.So(punches, convey.ShouldBeNil)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "f-2")
				convey.So(errors.Is(err, ingest.ErrBadKind), convey.ShouldBeTrue)
			})
		})
	})
}

func TestApplyCorrections(t *testing.T) {
	convey.Convey("Given punches and a correction overlay", t, func() {
		base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
		punches := []model.PunchEvent{
			{ID: "f-1", Kind: model.KindClockIn, Timestamp: base},
			{ID: "f-2", Kind: model.KindClockOut, Timestamp: base.Add(8 * time.Hour)},
		}

		convey.Convey("When a correction targets one punch", func() {
			corrected := base.Add(-15 * time.Minute)
			out, applied := ingest.ApplyCorrections(punches, map[string]time.Time{"f-1": corrected})

			convey.Convey("Then the time moves and the original is retained", func() {
				convey.So(applied, convey.ShouldEqual, 1)
				convey.So(out[0].Timestamp.Equal(corrected), convey.ShouldBeTrue)
				convey.So(out[0].OriginalTimestamp, convey.ShouldNotBeNil)
				convey.So(out[0].OriginalTimestamp.Equal(base), convey.ShouldBeTrue)
				convey.So(out[1].OriginalTimestamp, convey.ShouldBeNil)
			})

			convey.Convey("And the input slice is untouched", func() {
				convey.So(punches[0].Timestamp.Equal(base), convey.ShouldBeTrue)
				convey.So(punches[0].OriginalTimestamp, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a punch is corrected twice", func() {
			first := base.Add(-15 * time.Minute)
			out, _ := ingest.ApplyCorrections(punches, map[string]time.Time{"f-1": first})
			second := base.Add(-30 * time.Minute)
			out, applied := ingest.ApplyCorrections(out, map[string]time.Time{"f-1": second})

			convey.Convey("Then the first original survives", func() {
				convey.So(applied, convey.ShouldEqual, 1)
				convey.So(out[0].Timestamp.Equal(second), convey.ShouldBeTrue)
				convey.So(out[0].OriginalTimestamp.Equal(base), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the correction equals the current time", func() {
			out, applied := ingest.ApplyCorrections(punches, map[string]time.Time{"f-1": base})

			convey.Convey("Then nothing changes", func() {
				convey.So(applied, convey.ShouldEqual, 0)
				convey.So(out[0].OriginalTimestamp, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the overlay is empty", func() {
			out, applied := ingest.ApplyCorrections(punches, nil)

			convey.Convey("Then the input passes through", func() {
				convey.So(applied, convey.ShouldEqual, 0)
				convey.So(out, convey.ShouldHaveLength, 2)
			})
		})
	})
}
