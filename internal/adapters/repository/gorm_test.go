package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/courtside/internal/adapters/repository"
	"github.com/okian/courtside/internal/domain/model"
)

func openStore() *repository.GormStore {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := repository.Open(context.Background(), "sqlite", dsn)
	So(err, ShouldBeNil)
	return s
}

func intp(v int) *int { return &v }

func seedGroup(ctx context.Context, s repository.Store) model.Event {
	So(s.SaveGroup(ctx, model.Group{ID: "g1", Name: "Tuesday", Rating: model.RatingConfig{System: "baseline", KFactor: 32}}), ShouldBeNil)
	players := make([]model.Participant, 4)
	ids := make([]string, 4)
	for i := range players {
		ids[i] = fmt.Sprintf("p%d", i+1)
		players[i] = model.Participant{ID: ids[i], GroupID: "g1", Name: ids[i], Rating: 1000}
	}
	So(s.UpsertPlayers(ctx, players), ShouldBeNil)
	ev, err := s.CreateEvent(ctx, model.Event{GroupID: "g1", ParticipantIDs: ids, Courts: 1, Rounds: 1, Settings: model.DefaultSettings()})
	So(err, ShouldBeNil)
	return ev
}

func schedule(eventID, seed string) model.Schedule {
	return model.Schedule{
		EventID: eventID,
		Rounds: []model.Round{{Index: 1, Games: []model.Game{{
			Round: 1, Court: 1,
			TeamA: model.Pair{A: "p1", B: "p2"}, TeamB: model.Pair{A: "p3", B: "p4"},
			TeamARating: 1000, TeamBRating: 1000,
		}}}},
		Metadata: model.GenerationMetadata{
			SeedUsed: seed, EloDiffConfigured: 0.05, EloDiffUsed: 0.05,
			ConstraintToggleSnapshot: model.AllConstraints(), Attempts: 1, DurationMs: 3,
		},
	}
}

func TestGormStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fresh sqlite store", t, func() {
		s := openStore()
		defer s.Close()
		So(s.Ping(ctx), ShouldBeNil)

		Convey("Groups round-trip and upsert", func() {
			So(s.SaveGroup(ctx, model.Group{ID: "g", Name: "A", Rating: model.RatingConfig{System: "catch_up", BelowMedianBonus: 0.5}}), ShouldBeNil)
			So(s.SaveGroup(ctx, model.Group{ID: "g", Name: "B", Rating: model.RatingConfig{System: "catch_up", BelowMedianBonus: 0.4}}), ShouldBeNil)
			g, err := s.Group(ctx, "g")
			So(err, ShouldBeNil)
			So(g.Name, ShouldEqual, "B")
			So(g.Rating.BelowMedianBonus, ShouldEqual, 0.4)

			_, err = s.Group(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Events get increasing sequence numbers per group", func() {
			first := seedGroup(ctx, s)
			second, err := s.CreateEvent(ctx, model.Event{GroupID: "g1", ParticipantIDs: first.ParticipantIDs, Courts: 1, Rounds: 1})
			So(err, ShouldBeNil)
			So(first.Sequence, ShouldEqual, 1)
			So(second.Sequence, ShouldEqual, 2)
			So(second.Status, ShouldEqual, model.EventDraft)

			prev, err := s.PreviousEvent(ctx, "g1", second.Sequence)
			So(err, ShouldBeNil)
			So(prev.ID, ShouldEqual, first.ID)
			So(prev.ParticipantIDs, ShouldResemble, first.ParticipantIDs)
			So(prev.Settings, ShouldResemble, model.DefaultSettings())

			_, err = s.PreviousEvent(ctx, "g1", first.Sequence)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Regeneration replaces games and metadata", func() {
			ev := seedGroup(ctx, s)
			So(s.ReplaceSchedule(ctx, schedule(ev.ID, "s1")), ShouldBeNil)
			first, _ := s.Games(ctx, ev.ID)
			So(first, ShouldHaveLength, 1)

			So(s.ReplaceSchedule(ctx, schedule(ev.ID, "s2")), ShouldBeNil)
			games, err := s.Games(ctx, ev.ID)
			So(err, ShouldBeNil)
			So(games, ShouldHaveLength, 1)
			So(games[0].ID, ShouldNotEqual, first[0].ID)
			So(games[0].TeamB, ShouldResemble, model.Pair{A: "p3", B: "p4"})

			meta, err := s.Metadata(ctx, ev.ID)
			So(err, ShouldBeNil)
			So(meta.SeedUsed, ShouldEqual, "s2")
			So(meta.ConstraintToggleSnapshot, ShouldResemble, model.AllConstraints())

			got, _ := s.Event(ctx, ev.ID)
			So(got.Status, ShouldEqual, model.EventGenerated)
			So(got.Seed, ShouldEqual, "s2")
		})

		Convey("Scores and rounds are point updates", func() {
			ev := seedGroup(ctx, s)
			So(s.ReplaceSchedule(ctx, schedule(ev.ID, "s1")), ShouldBeNil)
			games, _ := s.Games(ctx, ev.ID)
			g := games[0]

			So(s.SetScore(ctx, g.ID, intp(21), intp(17)), ShouldBeNil)
			g2, _ := s.Game(ctx, g.ID)
			So(g2.Result(), ShouldEqual, model.ResultTeam1Win)

			So(s.SetScore(ctx, g.ID, nil, nil), ShouldBeNil)
			g2, _ = s.Game(ctx, g.ID)
			So(g2.Result(), ShouldEqual, model.ResultUnset)

			g.TeamA, g.TeamB = model.Pair{A: "p1", B: "p3"}, model.Pair{A: "p2", B: "p4"}
			So(s.ReplaceRound(ctx, ev.ID, 1, []model.Game{g}), ShouldBeNil)
			g2, _ = s.Game(ctx, g.ID)
			So(g2.TeamA, ShouldResemble, model.Pair{A: "p1", B: "p3"})

			So(errors.Is(s.SetScore(ctx, "nope", nil, nil), repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Completion is atomic and happens once", func() {
			ev := seedGroup(ctx, s)
			So(s.ReplaceSchedule(ctx, schedule(ev.ID, "s1")), ShouldBeNil)
			updates := []model.RatingUpdate{
				{EventID: ev.ID, PlayerID: "p1", RatingBefore: 1000, RatingAfter: 1016, Delta: 16, RatingSystem: "baseline"},
				{EventID: ev.ID, PlayerID: "p3", RatingBefore: 1000, RatingAfter: 984, Delta: -16, RatingSystem: "baseline"},
			}
			at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			So(s.CompleteEvent(ctx, ev.ID, updates, at), ShouldBeNil)

			players, _ := s.Players(ctx, "g1")
			So(players[0].Rating, ShouldEqual, 1016)
			So(players[2].Rating, ShouldEqual, 984)
			rows, _ := s.RatingUpdates(ctx, ev.ID)
			So(rows, ShouldResemble, updates)

			err := s.CompleteEvent(ctx, ev.ID, updates, at)
			So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
			So(errors.Is(s.ReplaceSchedule(ctx, schedule(ev.ID, "s3")), repository.ErrConflict), ShouldBeTrue)

			got, _ := s.Event(ctx, ev.ID)
			So(got.Status, ShouldEqual, model.EventCompleted)
			So(got.CompletedAt, ShouldNotBeNil)
		})

		Convey("Players with the same ID in two groups stay apart", func() {
			ev := seedGroup(ctx, s)
			So(s.SaveGroup(ctx, model.Group{ID: "g2", Name: "Thursday"}), ShouldBeNil)
			So(s.UpsertPlayers(ctx, []model.Participant{{ID: "p1", GroupID: "g2", Name: "other", Rating: 1200}}), ShouldBeNil)

			g1, _ := s.Players(ctx, "g1")
			So(g1, ShouldHaveLength, 4)
			So(g1[0].Rating, ShouldEqual, 1000)

			So(s.ReplaceSchedule(ctx, schedule(ev.ID, "s1")), ShouldBeNil)
			updates := []model.RatingUpdate{
				{EventID: ev.ID, PlayerID: "p1", RatingBefore: 1000, RatingAfter: 1016, Delta: 16, RatingSystem: "baseline"},
			}
			So(s.CompleteEvent(ctx, ev.ID, updates, time.Now()), ShouldBeNil)

			g1, _ = s.Players(ctx, "g1")
			So(g1[0].Rating, ShouldEqual, 1016)
			g2, _ := s.Players(ctx, "g2")
			So(g2, ShouldResemble, []model.Participant{{ID: "p1", GroupID: "g2", Name: "other", Rating: 1200}})
		})

		Convey("A failing completion leaves nothing behind", func() {
			ev := seedGroup(ctx, s)
			bad := []model.RatingUpdate{
				{EventID: ev.ID, PlayerID: "p1", RatingBefore: 1000, RatingAfter: 1016, Delta: 16, RatingSystem: "baseline"},
				{EventID: ev.ID, PlayerID: "ghost", RatingBefore: 1000, RatingAfter: 984, Delta: -16, RatingSystem: "baseline"},
			}
			err := s.CompleteEvent(ctx, ev.ID, bad, time.Now())
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			players, _ := s.Players(ctx, "g1")
			So(players[0].Rating, ShouldEqual, 1000)
			rows, _ := s.RatingUpdates(ctx, ev.ID)
			So(rows, ShouldBeEmpty)
			got, _ := s.Event(ctx, ev.ID)
			So(got.Status, ShouldEqual, model.EventDraft)
		})
	})

	Convey("Unknown drivers are rejected", t, func() {
		_, err := repository.Open(ctx, "mysql", "")
		So(errors.Is(err, repository.ErrUnsupportedDriver), ShouldBeTrue)
	})
}
