package api

import (
	"context"
	"net/http"

	"github.com/okian/courtside/internal/domain/model"
)

// GroupDependencies defines the group and roster operations.
type GroupDependencies interface {
	SaveGroup(ctx context.Context, g model.Group) (model.Group, error)
	ImportPlayers(ctx context.Context, groupID string, players []model.Participant) ([]model.Participant, error)
}

// GroupsHandler handles group configuration and roster import.
type GroupsHandler struct {
	deps GroupDependencies
}

// NewGroupsHandler creates a new groups handler.
func NewGroupsHandler(deps GroupDependencies) *GroupsHandler {
	return &GroupsHandler{deps: deps}
}

type groupRequest struct {
	Name   string              `json:"name"`
	Rating *model.RatingConfig `json:"rating,omitempty"`
}

type playersRequest struct {
	Players []model.Participant `json:"players"`
}

// HandlePutGroup handles PUT /groups/{id}.
func (h *GroupsHandler) HandlePutGroup(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_group"
	var req groupRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	g := model.Group{ID: r.PathValue("id"), Name: req.Name}
	if req.Rating != nil {
		g.Rating = *req.Rating
	}
	saved, err := h.deps.SaveGroup(r.Context(), g)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandlePutPlayers handles PUT /groups/{id}/players.
func (h *GroupsHandler) HandlePutPlayers(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_players"
	var req playersRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	players, err := h.deps.ImportPlayers(r.Context(), r.PathValue("id"), req.Players)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, playersRequest{Players: players})
}
