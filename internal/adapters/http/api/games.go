package api

import (
	"context"
	"net/http"

	"github.com/okian/courtside/internal/domain/model"
)

// GameDependencies defines score entry.
type GameDependencies interface {
	RecordScore(ctx context.Context, gameID string, s1, s2 *int) (model.Game, error)
}

// GamesHandler handles score entry.
type GamesHandler struct {
	deps GameDependencies
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(deps GameDependencies) *GamesHandler {
	return &GamesHandler{deps: deps}
}

// scoreRequest clears the result when both scores are null.
type scoreRequest struct {
	ScoreTeam1 *int `json:"scoreTeam1"`
	ScoreTeam2 *int `json:"scoreTeam2"`
}

type gameResponse struct {
	model.Game
	Result model.Result `json:"result"`
}

// HandlePutScore handles PUT /games/{id}/score.
func (h *GamesHandler) HandlePutScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_score"
	var req scoreRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	g, err := h.deps.RecordScore(r.Context(), r.PathValue("id"), req.ScoreTeam1, req.ScoreTeam2)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, gameResponse{Game: g, Result: g.Result()})
}
