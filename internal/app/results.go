package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/courtside/internal/domain/constraint"
	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/internal/domain/rating"
	"github.com/okian/courtside/pkg/logger"
	"github.com/okian/courtside/pkg/metrics"
)

// SwapResult is the round after a swap. Warnings list hard constraints the
// new round breaks; they do not block the swap.
type SwapResult struct {
	Round    model.Round            `json:"round"`
	Warnings []constraint.Violation `json:"warnings"`
}

// Swap exchanges the slots of a and b in one round. Both must be on the
// event's roster; bench players cannot be substituted in.
func (s *Service) Swap(ctx context.Context, eventID string, round int, a, b string) (SwapResult, error) {
	if a == "" || b == "" || a == b {
		return SwapResult{}, fmt.Errorf("%w: swap needs two different participants", ErrInvalidInput)
	}
	unlock := s.lockEvent(eventID)
	defer unlock()

	ev, err := s.store.Event(ctx, eventID)
	if err != nil {
		return SwapResult{}, err
	}
	if ev.Status == model.EventCompleted {
		return SwapResult{}, fmt.Errorf("%w: %s", ErrEventCompleted, eventID)
	}
	games, err := s.store.Games(ctx, eventID)
	if err != nil {
		return SwapResult{}, err
	}

	var current, others []model.Game
	for _, g := range games {
		if g.Round == round {
			current = append(current, g)
		} else {
			others = append(others, g)
		}
	}
	if len(current) == 0 {
		return SwapResult{}, fmt.Errorf("%w: event %s round %d", ErrNotFound, eventID, round)
	}

	for _, id := range []string{a, b} {
		if !slices.Contains(ev.ParticipantIDs, id) {
			return SwapResult{}, fmt.Errorf("%w: %s is not a participant of event %s", ErrInvalidInput, id, eventID)
		}
	}
	ratings, err := s.ratings(ctx, ev.GroupID)
	if err != nil {
		return SwapResult{}, err
	}

	updated := slices.Clone(current)
	ga, sa := locate(updated, a)
	gb, sb := locate(updated, b)
	if ga < 0 || gb < 0 {
		return SwapResult{}, fmt.Errorf("%w: %s and %s must both play in round %d", ErrInvalidInput, a, b, round)
	}
	setSlot(&updated[ga], sa, b)
	setSlot(&updated[gb], sb, a)
	if err := checkRound(updated); err != nil {
		metrics.RecordSwap("rejected")
		return SwapResult{}, err
	}
	for i := range updated {
		g := &updated[i]
		g.TeamARating = model.TeamRating(ratings[g.TeamA.A], ratings[g.TeamA.B])
		g.TeamBRating = model.TeamRating(ratings[g.TeamB.A], ratings[g.TeamB.B])
	}

	previous, err := s.previousTeammates(ctx, ev)
	if err != nil {
		return SwapResult{}, err
	}
	idx := constraint.New(ev.Settings.Toggles, previous)
	for _, r := range model.GroupRounds(others) {
		idx.RecordRound(r.Games)
	}
	warnings := idx.Violations(updated)

	if err := s.store.ReplaceRound(ctx, eventID, round, updated); err != nil {
		return SwapResult{}, err
	}

	outcome := "ok"
	if len(warnings) > 0 {
		outcome = "warning"
	}
	metrics.RecordSwap(outcome)
	s.logger.Info(ctx, "participants swapped",
		logger.String("event", eventID),
		logger.Int("round", round),
		logger.String("a", a),
		logger.String("b", b),
		logger.Int("warnings", len(warnings)),
	)
	if warnings == nil {
		warnings = []constraint.Violation{}
	}
	return SwapResult{Round: model.Round{Index: round, Games: updated}, Warnings: warnings}, nil
}

// locate returns the game index and slot (0..3) of id, or -1.
func locate(games []model.Game, id string) (int, int) {
	for i, g := range games {
		if slot := slices.Index(g.Participants(), id); slot >= 0 {
			return i, slot
		}
	}
	return -1, -1
}

func setSlot(g *model.Game, slot int, id string) {
	switch slot {
	case 0:
		g.TeamA.A = id
	case 1:
		g.TeamA.B = id
	case 2:
		g.TeamB.A = id
	case 3:
		g.TeamB.B = id
	}
}

// checkRound enforces that nobody appears twice in a round.
func checkRound(games []model.Game) error {
	seen := make(map[string]struct{}, len(games)*4)
	for _, g := range games {
		for _, id := range g.Participants() {
			if _, dup := seen[id]; dup {
				return fmt.Errorf("%w: %s in round %d", ErrDuplicateParticipant, id, g.Round)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

// RecordScore sets or clears a game's score. Both scores nil clears the
// result; a single nil or a negative score is rejected.
func (s *Service) RecordScore(ctx context.Context, gameID string, s1, s2 *int) (model.Game, error) {
	if (s1 == nil) != (s2 == nil) {
		return model.Game{}, fmt.Errorf("%w: both scores or neither are required", ErrInvalidScore)
	}
	if s1 != nil && (*s1 < 0 || *s2 < 0) {
		return model.Game{}, fmt.Errorf("%w: scores must not be negative", ErrInvalidScore)
	}

	g, err := s.store.Game(ctx, gameID)
	if err != nil {
		return model.Game{}, err
	}
	unlock := s.lockEvent(g.EventID)
	defer unlock()

	ev, err := s.store.Event(ctx, g.EventID)
	if err != nil {
		return model.Game{}, err
	}
	if ev.Status == model.EventCompleted {
		return model.Game{}, fmt.Errorf("%w: %s", ErrEventCompleted, ev.ID)
	}
	if err := s.store.SetScore(ctx, gameID, s1, s2); err != nil {
		return model.Game{}, err
	}
	g.ScoreTeam1, g.ScoreTeam2 = s1, s2
	metrics.RecordScore(string(g.Result()))
	return g, nil
}

// CompleteEvent rates every game of the event and commits the new ratings,
// the audit rows and the COMPLETED status together. It fails with
// rating.ErrIncompleteResult while any game has no score.
func (s *Service) CompleteEvent(ctx context.Context, eventID string) ([]model.RatingUpdate, error) {
	unlock := s.lockEvent(eventID)
	defer unlock()

	ev, err := s.store.Event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	switch ev.Status {
	case model.EventCompleted:
		return nil, fmt.Errorf("%w: %s", ErrEventCompleted, eventID)
	case model.EventDraft:
		return nil, fmt.Errorf("%w: %s", ErrNotGenerated, eventID)
	}

	group, err := s.store.Group(ctx, ev.GroupID)
	if err != nil {
		return nil, err
	}
	engine, err := rating.New(rating.FromModel(group.Rating))
	if err != nil {
		return nil, err
	}
	games, err := s.store.Games(ctx, eventID)
	if err != nil {
		return nil, err
	}
	ratings, err := s.ratings(ctx, ev.GroupID)
	if err != nil {
		return nil, err
	}
	table, err := s.table(ctx, ev.GroupID)
	if err != nil {
		return nil, err
	}

	updates, err := engine.ApplyEvent(eventID, games, ratings, table)
	if err != nil {
		return nil, err
	}
	if err := s.store.CompleteEvent(ctx, eventID, updates, s.now()); err != nil {
		metrics.RecordErrorByComponent("service", "complete_event")
		return nil, storeErr(err)
	}

	for _, u := range updates {
		table.Set(u.PlayerID, u.RatingAfter)
	}
	metrics.RecordRatingUpdates(string(engine.Config().System), len(updates))
	metrics.RecordEventCompleted()
	metrics.UpdateStandingsPlayers(ev.GroupID, table.Count())
	s.logger.Info(ctx, "event completed",
		logger.String("event", eventID),
		logger.String("system", string(engine.Config().System)),
		logger.Int("updates", len(updates)),
	)
	return updates, nil
}
