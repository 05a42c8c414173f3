package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/courtside/internal/domain/standings"
)

// StandingsDependencies defines the read side of group ratings.
type StandingsDependencies interface {
	Standings(ctx context.Context, groupID string, limit int) ([]standings.Entry, error)
	PlayerStanding(ctx context.Context, groupID, playerID string) (standings.Entry, error)
}

// StandingsHandler handles standings requests.
type StandingsHandler struct {
	deps     StandingsDependencies
	maxLimit int
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps StandingsDependencies, maxLimit int) *StandingsHandler {
	return &StandingsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetStandings handles GET /groups/{id}/standings?limit=N. Without a
// limit the service default applies.
func (h *StandingsHandler) HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standings"
	n := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}
	if h.maxLimit > 0 && n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.Standings(r.Context(), r.PathValue("id"), n)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetPlayer handles GET /groups/{id}/standings/{player}.
func (h *StandingsHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standing"
	entry, err := h.deps.PlayerStanding(r.Context(), r.PathValue("id"), r.PathValue("player"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
