package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/okian/courtside/internal/config"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestApplication(t *testing.T) {
	convey.Convey("Given an application loaded from the environment", t, func() {
		ctx := context.Background()
		_ = os.Setenv("COURTSIDE_DOTENV", "/non/existent/.env")
		_ = os.Setenv("COURTSIDE_DB_DSN", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
		_ = os.Setenv("COURTSIDE_WORKER_COUNT", "2")
		defer func() {
			_ = os.Unsetenv("COURTSIDE_DOTENV")
			_ = os.Unsetenv("COURTSIDE_DB_DSN")
			_ = os.Unsetenv("COURTSIDE_WORKER_COUNT")
		}()

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		a, err := newApplication(ctx, cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		defer a.close()
		convey.So(a.svc.Start(ctx), convey.ShouldBeNil)
		defer a.svc.Stop()

		srv := httptest.NewServer(a.mux)
		defer srv.Close()

		call := func(method, path string, body any, out any) int {
			var buf bytes.Buffer
			if body != nil {
				_ = json.NewEncoder(&buf).Encode(body)
			}
			req, _ := http.NewRequestWithContext(ctx, method, srv.URL+path, &buf)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("%s %s: %v", method, path, err)
			}
			defer resp.Body.Close()
			if out != nil {
				_ = json.NewDecoder(resp.Body).Decode(out)
			}
			return resp.StatusCode
		}

		convey.Convey("When a full event is played over HTTP", func() {
			convey.So(call(http.MethodPut, "/groups/club", map[string]any{"name": "Club"}, nil), convey.ShouldEqual, http.StatusOK)

			players := make([]model.Participant, 0, 8)
			ids := make([]string, 0, 8)
			for i := 1; i <= 8; i++ {
				id := fmt.Sprintf("p%d", i)
				ids = append(ids, id)
				players = append(players, model.Participant{ID: id, Rating: float64(900 + 25*i)})
			}
			convey.So(call(http.MethodPut, "/groups/club/players", map[string]any{"players": players}, nil), convey.ShouldEqual, http.StatusOK)

			var ev model.Event
			code := call(http.MethodPost, "/events", map[string]any{
				"groupId": "club", "participantIds": ids, "courts": 2, "rounds": 2,
			}, &ev)
			convey.So(code, convey.ShouldEqual, http.StatusCreated)
			convey.So(ev.Status, convey.ShouldEqual, model.EventDraft)

			var sched model.Schedule
			code = call(http.MethodPost, "/events/"+ev.ID+"/generate", map[string]any{"seed": "main"}, &sched)
			convey.So(code, convey.ShouldEqual, http.StatusOK)
			convey.So(sched.Rounds, convey.ShouldHaveLength, 2)
			convey.So(sched.Metadata.SeedUsed, convey.ShouldEqual, "main")

			for _, round := range sched.Rounds {
				for _, g := range round.Games {
					code = call(http.MethodPut, "/games/"+g.ID+"/score", map[string]any{"scoreTeam1": 21, "scoreTeam2": 17}, nil)
					convey.So(code, convey.ShouldEqual, http.StatusOK)
				}
			}

			var done struct {
				RatingUpdates []model.RatingUpdate `json:"ratingUpdates"`
			}
			convey.So(call(http.MethodPost, "/events/"+ev.ID+"/complete", nil, &done), convey.ShouldEqual, http.StatusOK)
			convey.So(done.RatingUpdates, convey.ShouldHaveLength, 8)

			convey.Convey("Then standings and docs are served", func() {
				var table []map[string]any
				convey.So(call(http.MethodGet, "/groups/club/standings?limit=3", nil, &table), convey.ShouldEqual, http.StatusOK)
				convey.So(table, convey.ShouldHaveLength, 3)
				convey.So(call(http.MethodGet, "/openapi.yaml", nil, nil), convey.ShouldEqual, http.StatusOK)
				convey.So(call(http.MethodGet, "/readyz", nil, nil), convey.ShouldEqual, http.StatusOK)
			})
		})
	})
}
