// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	service "github.com/okian/courtside/internal/app"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/schedule"
	"github.com/okian/courtside/internal/domain/standings"
	"github.com/okian/courtside/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. *service.Service implements it.
type Dependencies interface {
	SaveGroup(ctx context.Context, g model.Group) (model.Group, error)
	ImportPlayers(ctx context.Context, groupID string, players []model.Participant) ([]model.Participant, error)
	Standings(ctx context.Context, groupID string, limit int) ([]standings.Entry, error)
	PlayerStanding(ctx context.Context, groupID, playerID string) (standings.Entry, error)

	CreateEvent(ctx context.Context, in service.NewEvent) (model.Event, error)
	Event(ctx context.Context, id string) (service.EventView, error)
	Generate(ctx context.Context, eventID, seed string) (model.Schedule, error)
	Regenerate(ctx context.Context, eventID, seed string) (model.Schedule, error)
	EnqueueGeneration(ctx context.Context, eventID, seed string, regenerate bool) (service.JobStatus, error)
	Job(ctx context.Context, id string) (service.JobStatus, error)

	Swap(ctx context.Context, eventID string, round int, a, b string) (service.SwapResult, error)
	RecordScore(ctx context.Context, gameID string, s1, s2 *int) (model.Game, error)
	CompleteEvent(ctx context.Context, eventID string) ([]model.RatingUpdate, error)

	Ping(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	groupsHandler    *GroupsHandler
	standingsHandler *StandingsHandler
	eventsHandler    *EventsHandler
	gamesHandler     *GamesHandler

	log logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for handler panics.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// standings limit parameter.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int, opts ...Option) *Server {
	s := &Server{
		healthHandler:    NewHealthHandler(deps),
		statsHandler:     NewStatsHandler(statsProvider),
		groupsHandler:    NewGroupsHandler(deps),
		standingsHandler: NewStandingsHandler(deps, maxLimit),
		eventsHandler:    NewEventsHandler(deps),
		gamesHandler:     NewGamesHandler(deps),
		log:              logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(RecoverMiddleware(s.log, h), endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /readyz", "readyz", s.healthHandler.HandleReady)
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("PUT /groups/{id}", "groups", s.groupsHandler.HandlePutGroup)
	route("PUT /groups/{id}/players", "players", s.groupsHandler.HandlePutPlayers)
	route("GET /groups/{id}/standings", "standings", s.standingsHandler.HandleGetStandings)
	route("GET /groups/{id}/standings/{player}", "standing", s.standingsHandler.HandleGetPlayer)

	route("POST /events", "events", s.eventsHandler.HandlePostEvent)
	route("GET /events/{id}", "event", s.eventsHandler.HandleGetEvent)
	route("POST /events/{id}/generate", "generate", s.eventsHandler.HandleGenerate)
	route("POST /events/{id}/regenerate", "regenerate", s.eventsHandler.HandleRegenerate)
	route("POST /events/{id}/rounds/{round}/swap", "swap", s.eventsHandler.HandleSwap)
	route("POST /events/{id}/complete", "complete", s.eventsHandler.HandleComplete)
	route("GET /jobs/{id}", "jobs", s.eventsHandler.HandleGetJob)

	route("PUT /games/{id}/score", "score", s.gamesHandler.HandlePutScore)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// generationDetails is the body detail for a failed search.
type generationDetails struct {
	Round             int     `json:"round"`
	Constraint        string  `json:"constraint"`
	EloDiffConfigured float64 `json:"eloDiffConfigured"`
	EloDiffTried      float64 `json:"eloDiffTried"`
	EloDiffMax        float64 `json:"eloDiffMax"`
	RelaxIterations   int     `json:"relaxIterations"`
	Attempts          int     `json:"attempts"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var gerr *schedule.GenerationError
	if errors.As(err, &gerr) {
		resp.Details = generationDetails{
			Round:             gerr.Round,
			Constraint:        string(gerr.Constraint),
			EloDiffConfigured: gerr.EloDiffConfigured,
			EloDiffTried:      gerr.EloDiffTried,
			EloDiffMax:        gerr.EloDiffMax,
			RelaxIterations:   gerr.RelaxIterations,
			Attempts:          gerr.Attempts,
		}
	}
	writeJSON(w, status, resp)
}

// writeFailure classifies err and writes it.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, Wrap(op, err))
}

// decode reads a JSON body into v. An empty body leaves v untouched when
// optional is set.
func decode(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
