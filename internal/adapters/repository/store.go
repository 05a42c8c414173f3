// Package repository persists groups, events, schedules and rating history.
//
// GormStore runs on postgres in production and sqlite for local use and
// tests. Multi-row writes that must be all-or-nothing (schedule replacement,
// swaps, event completion) run in one transaction.
package repository

import (
	"context"
	"time"

	"github.com/okian/courtside/internal/domain/model"
)

// Store is the persistence contract used by the service.
type Store interface {
	SaveGroup(ctx context.Context, g model.Group) error
	Group(ctx context.Context, id string) (model.Group, error)

	// UpsertPlayers inserts players or updates their name and rating. Players
	// are keyed by (GroupID, ID).
	UpsertPlayers(ctx context.Context, players []model.Participant) error
	Players(ctx context.Context, groupID string) ([]model.Participant, error)

	// CreateEvent assigns the next sequence number in the group.
	CreateEvent(ctx context.Context, e model.Event) (model.Event, error)
	Event(ctx context.Context, id string) (model.Event, error)
	// PreviousEvent returns the event immediately before sequence in the group.
	PreviousEvent(ctx context.Context, groupID string, sequence int) (model.Event, error)

	// ReplaceSchedule discards the event's games and metadata and writes the
	// new schedule, marking the event GENERATED.
	ReplaceSchedule(ctx context.Context, s model.Schedule) error
	Games(ctx context.Context, eventID string) ([]model.Game, error)
	Game(ctx context.Context, id string) (model.Game, error)
	Metadata(ctx context.Context, eventID string) (model.GenerationMetadata, error)
	// ReplaceRound rewrites the teams of a round's games.
	ReplaceRound(ctx context.Context, eventID string, round int, games []model.Game) error
	SetScore(ctx context.Context, gameID string, s1, s2 *int) error

	// CompleteEvent writes the new ratings and audit rows and marks the event
	// COMPLETED. It fails with ErrConflict if the event was already completed.
	CompleteEvent(ctx context.Context, eventID string, updates []model.RatingUpdate, at time.Time) error
	RatingUpdates(ctx context.Context, eventID string) ([]model.RatingUpdate, error)

	Ping(ctx context.Context) error
	Close() error
}
