package service

import (
	"context"
	"fmt"

	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/rating"
	"github.com/okian/courtside/internal/domain/schedule"
	"github.com/okian/courtside/internal/domain/standings"
	"github.com/okian/courtside/pkg/logger"
	"github.com/okian/courtside/pkg/metrics"
)

// NewEvent describes an event to create. A nil Settings uses the service
// defaults.
type NewEvent struct {
	GroupID        string          `json:"groupId"`
	ParticipantIDs []string        `json:"participantIds"`
	Courts         int             `json:"courts"`
	Rounds         int             `json:"rounds"`
	Settings       *model.Settings `json:"settings,omitempty"`
}

// EventView is an event with its schedule and, once completed, its rating
// history.
type EventView struct {
	Event         model.Event               `json:"event"`
	Rounds        []model.Round             `json:"rounds"`
	Metadata      *model.GenerationMetadata `json:"metadata,omitempty"`
	RatingUpdates []model.RatingUpdate      `json:"ratingUpdates,omitempty"`
}

// SaveGroup creates or updates a group. An empty rating system takes the
// service default.
func (s *Service) SaveGroup(ctx context.Context, g model.Group) (model.Group, error) {
	if g.ID == "" {
		return model.Group{}, fmt.Errorf("%w: group id is required", ErrInvalidInput)
	}
	if g.Rating.System == "" {
		g.Rating = s.ratingConfig.Model()
	}
	if err := rating.FromModel(g.Rating).Validate(); err != nil {
		return model.Group{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := s.store.SaveGroup(ctx, g); err != nil {
		return model.Group{}, err
	}
	s.logger.Info(ctx, "group saved", logger.String("group", g.ID), logger.String("system", g.Rating.System))
	return g, nil
}

// ImportPlayers adds players to a group or renames existing ones. Ratings of
// existing players are overwritten only when a positive rating is given.
func (s *Service) ImportPlayers(ctx context.Context, groupID string, players []model.Participant) ([]model.Participant, error) {
	if _, err := s.store.Group(ctx, groupID); err != nil {
		return nil, err
	}
	current, err := s.store.Players(ctx, groupID)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]float64, len(current))
	for _, p := range current {
		existing[p.ID] = p.Rating
	}

	seen := make(map[string]struct{}, len(players))
	rows := make([]model.Participant, 0, len(players))
	for _, p := range players {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: player id is required", ErrInvalidInput)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: player %s listed twice", ErrInvalidInput, p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Rating <= 0 {
			if r, ok := existing[p.ID]; ok {
				p.Rating = r
			} else {
				p.Rating = DefaultRating
			}
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		p.GroupID = groupID
		rows = append(rows, p)
	}
	if err := s.store.UpsertPlayers(ctx, rows); err != nil {
		return nil, err
	}
	s.dropTable(groupID)
	s.logger.Info(ctx, "players imported", logger.String("group", groupID), logger.Int("count", len(rows)))
	return s.store.Players(ctx, groupID)
}

// CreateEvent validates the roster and stores a DRAFT event with the next
// sequence number of its group.
func (s *Service) CreateEvent(ctx context.Context, in NewEvent) (model.Event, error) {
	if _, err := s.store.Group(ctx, in.GroupID); err != nil {
		return model.Event{}, err
	}
	switch {
	case in.Courts <= 0 || in.Rounds <= 0:
		return model.Event{}, fmt.Errorf("%w: courts and rounds must be positive", ErrInvalidInput)
	case len(in.ParticipantIDs) != in.Courts*schedule.CourtSize:
		return model.Event{}, fmt.Errorf("%w: %d participants do not fill %d courts",
			ErrInvalidInput, len(in.ParticipantIDs), in.Courts)
	}

	ratings, err := s.ratings(ctx, in.GroupID)
	if err != nil {
		return model.Event{}, err
	}
	seen := make(map[string]struct{}, len(in.ParticipantIDs))
	for _, id := range in.ParticipantIDs {
		if _, dup := seen[id]; dup {
			return model.Event{}, fmt.Errorf("%w: participant %s listed twice", ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
		if _, ok := ratings[id]; !ok {
			return model.Event{}, fmt.Errorf("%w: %s is not a player of group %s", ErrInvalidInput, id, in.GroupID)
		}
	}

	settings := s.settings
	if in.Settings != nil {
		settings = in.Settings.WithBudgetDefaults()
	}
	if settings.EloDiff < 0 || settings.EloDiffMax < settings.EloDiff || settings.EloDiffStep < 0 {
		return model.Event{}, fmt.Errorf("%w: eloDiff must be within [0, eloDiffMax] and eloDiffStep not negative", ErrInvalidInput)
	}

	ev, err := s.store.CreateEvent(ctx, model.Event{
		GroupID:        in.GroupID,
		ParticipantIDs: in.ParticipantIDs,
		Courts:         in.Courts,
		Rounds:         in.Rounds,
		Settings:       settings,
		Status:         model.EventDraft,
	})
	if err != nil {
		return model.Event{}, err
	}
	s.logger.Info(ctx, "event created",
		logger.String("event", ev.ID),
		logger.String("group", ev.GroupID),
		logger.Int("sequence", ev.Sequence),
	)
	return ev, nil
}

// Event returns an event with its rounds, metadata and rating updates.
func (s *Service) Event(ctx context.Context, id string) (EventView, error) {
	ev, err := s.store.Event(ctx, id)
	if err != nil {
		return EventView{}, err
	}
	view := EventView{Event: ev, Rounds: []model.Round{}}
	if ev.Status == model.EventDraft {
		return view, nil
	}

	games, err := s.store.Games(ctx, id)
	if err != nil {
		return EventView{}, err
	}
	view.Rounds = model.GroupRounds(games)
	meta, err := s.store.Metadata(ctx, id)
	if err != nil {
		return EventView{}, err
	}
	view.Metadata = &meta
	if ev.Status == model.EventCompleted {
		if view.RatingUpdates, err = s.store.RatingUpdates(ctx, id); err != nil {
			return EventView{}, err
		}
	}
	return view, nil
}

// Standings returns the top of a group's table. A non-positive limit takes a
// default; larger limits are capped.
func (s *Service) Standings(ctx context.Context, groupID string, limit int) ([]standings.Entry, error) {
	if limit <= 0 {
		limit = defaultStandingsSize
	}
	limit = min(limit, s.maxStandingsLimit)
	table, err := s.table(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return table.TopN(limit)
}

// PlayerStanding returns one player's row in the group table.
func (s *Service) PlayerStanding(ctx context.Context, groupID, playerID string) (standings.Entry, error) {
	table, err := s.table(ctx, groupID)
	if err != nil {
		return standings.Entry{}, err
	}
	entry, err := table.Rank(playerID)
	if err != nil {
		return standings.Entry{}, fmt.Errorf("%w: player %s in group %s", ErrNotFound, playerID, groupID)
	}
	return entry, nil
}

// table returns the cached standings of a group, loading them on first use.
func (s *Service) table(ctx context.Context, groupID string) (*standings.Standings, error) {
	s.mu.RLock()
	t, ok := s.tables[groupID]
	s.mu.RUnlock()
	if ok {
		return t, nil
	}

	if _, err := s.store.Group(ctx, groupID); err != nil {
		return nil, err
	}
	ratings, err := s.ratings(ctx, groupID)
	if err != nil {
		return nil, err
	}
	t = standings.FromRatings(ratings)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.tables[groupID]; ok {
		return cached, nil
	}
	s.tables[groupID] = t
	metrics.UpdateStandingsPlayers(groupID, t.Count())
	return t, nil
}

func (s *Service) dropTable(groupID string) {
	s.mu.Lock()
	delete(s.tables, groupID)
	s.mu.Unlock()
}

func (s *Service) ratings(ctx context.Context, groupID string) (map[string]float64, error) {
	players, err := s.store.Players(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(players))
	for _, p := range players {
		out[p.ID] = p.Rating
	}
	return out, nil
}
