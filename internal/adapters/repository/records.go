package repository

import (
	"time"

	"gorm.io/datatypes"

	"github.com/okian/courtside/internal/domain/model"
)

type groupRecord struct {
	ID        string                                 `gorm:"primaryKey;type:text"`
	Name      string                                 `gorm:"type:text;not null"`
	Rating    datatypes.JSONType[model.RatingConfig] `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (groupRecord) TableName() string { return "groups" }

// playerRecord is keyed by (group_id, id); the same ID in two groups is two players.
type playerRecord struct {
	GroupID   string  `gorm:"primaryKey;type:text"`
	ID        string  `gorm:"primaryKey;type:text"`
	Name      string  `gorm:"type:text"`
	Rating    float64 `gorm:"not null"`
	UpdatedAt time.Time
}

func (playerRecord) TableName() string { return "players" }

type eventRecord struct {
	ID             string                             `gorm:"primaryKey;type:text"`
	GroupID        string                             `gorm:"type:text;not null;uniqueIndex:idx_event_group_seq"`
	Sequence       int                                `gorm:"not null;uniqueIndex:idx_event_group_seq"`
	Status         string                             `gorm:"type:text;not null;index"`
	ParticipantIDs datatypes.JSONSlice[string]        `gorm:"not null"`
	Courts         int                                `gorm:"not null"`
	Rounds         int                                `gorm:"not null"`
	Settings       datatypes.JSONType[model.Settings] `gorm:"not null"`
	Seed           string                             `gorm:"type:text"`
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

func (eventRecord) TableName() string { return "events" }

type gameRecord struct {
	ID          string  `gorm:"primaryKey;type:text"`
	EventID     string  `gorm:"type:text;not null;index:idx_game_event_round"`
	Round       int     `gorm:"not null;index:idx_game_event_round"`
	Court       int     `gorm:"not null"`
	TeamAP1     string  `gorm:"column:team_a_p1;type:text;not null"`
	TeamAP2     string  `gorm:"column:team_a_p2;type:text;not null"`
	TeamBP1     string  `gorm:"column:team_b_p1;type:text;not null"`
	TeamBP2     string  `gorm:"column:team_b_p2;type:text;not null"`
	TeamARating float64 `gorm:"column:team_a_rating"`
	TeamBRating float64 `gorm:"column:team_b_rating"`
	ScoreTeam1  *int    `gorm:"column:score_team1"`
	ScoreTeam2  *int    `gorm:"column:score_team2"`
}

func (gameRecord) TableName() string { return "games" }

type metadataRecord struct {
	EventID           string                                      `gorm:"primaryKey;type:text"`
	SeedUsed          string                                      `gorm:"type:text;not null"`
	EloDiffConfigured float64                                     `gorm:"not null"`
	EloDiffUsed       float64                                     `gorm:"not null"`
	RelaxIterations   int                                         `gorm:"not null"`
	Toggles           datatypes.JSONType[model.ConstraintToggles] `gorm:"column:constraint_toggle_snapshot;not null"`
	Attempts          int                                         `gorm:"not null"`
	DurationMs        int64                                       `gorm:"not null"`
	CreatedAt         time.Time
}

func (metadataRecord) TableName() string { return "generation_metadata" }

type ratingUpdateRecord struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"`
	EventID      string  `gorm:"type:text;not null;uniqueIndex:idx_rating_event_player"`
	PlayerID     string  `gorm:"type:text;not null;uniqueIndex:idx_rating_event_player"`
	RatingBefore float64 `gorm:"not null"`
	RatingAfter  float64 `gorm:"not null"`
	Delta        float64 `gorm:"not null"`
	RatingSystem string  `gorm:"type:text;not null"`
	CreatedAt    time.Time
}

func (ratingUpdateRecord) TableName() string { return "rating_updates" }

func allRecords() []any {
	return []any{
		&groupRecord{}, &playerRecord{}, &eventRecord{},
		&gameRecord{}, &metadataRecord{}, &ratingUpdateRecord{},
	}
}

func toGroupRecord(g model.Group) groupRecord {
	return groupRecord{ID: g.ID, Name: g.Name, Rating: datatypes.NewJSONType(g.Rating)}
}

func (r groupRecord) model() model.Group {
	return model.Group{ID: r.ID, Name: r.Name, Rating: r.Rating.Data()}
}

func toPlayerRecord(p model.Participant) playerRecord {
	return playerRecord{ID: p.ID, GroupID: p.GroupID, Name: p.Name, Rating: p.Rating}
}

func (r playerRecord) model() model.Participant {
	return model.Participant{ID: r.ID, GroupID: r.GroupID, Name: r.Name, Rating: r.Rating}
}

func toEventRecord(e model.Event) eventRecord {
	return eventRecord{
		ID:             e.ID,
		GroupID:        e.GroupID,
		Sequence:       e.Sequence,
		Status:         string(e.Status),
		ParticipantIDs: datatypes.JSONSlice[string](e.ParticipantIDs),
		Courts:         e.Courts,
		Rounds:         e.Rounds,
		Settings:       datatypes.NewJSONType(e.Settings),
		Seed:           e.Seed,
		CreatedAt:      e.CreatedAt,
		CompletedAt:    e.CompletedAt,
	}
}

func (r eventRecord) model() model.Event {
	return model.Event{
		ID:             r.ID,
		GroupID:        r.GroupID,
		Sequence:       r.Sequence,
		Status:         model.EventStatus(r.Status),
		ParticipantIDs: []string(r.ParticipantIDs),
		Courts:         r.Courts,
		Rounds:         r.Rounds,
		Settings:       r.Settings.Data(),
		Seed:           r.Seed,
		CreatedAt:      r.CreatedAt,
		CompletedAt:    r.CompletedAt,
	}
}

func toGameRecord(g model.Game) gameRecord {
	return gameRecord{
		ID:          g.ID,
		EventID:     g.EventID,
		Round:       g.Round,
		Court:       g.Court,
		TeamAP1:     g.TeamA.A,
		TeamAP2:     g.TeamA.B,
		TeamBP1:     g.TeamB.A,
		TeamBP2:     g.TeamB.B,
		TeamARating: g.TeamARating,
		TeamBRating: g.TeamBRating,
		ScoreTeam1:  g.ScoreTeam1,
		ScoreTeam2:  g.ScoreTeam2,
	}
}

func (r gameRecord) model() model.Game {
	return model.Game{
		ID:          r.ID,
		EventID:     r.EventID,
		Round:       r.Round,
		Court:       r.Court,
		TeamA:       model.Pair{A: r.TeamAP1, B: r.TeamAP2},
		TeamB:       model.Pair{A: r.TeamBP1, B: r.TeamBP2},
		TeamARating: r.TeamARating,
		TeamBRating: r.TeamBRating,
		ScoreTeam1:  r.ScoreTeam1,
		ScoreTeam2:  r.ScoreTeam2,
	}
}

func toMetadataRecord(eventID string, m model.GenerationMetadata) metadataRecord {
	return metadataRecord{
		EventID:           eventID,
		SeedUsed:          m.SeedUsed,
		EloDiffConfigured: m.EloDiffConfigured,
		EloDiffUsed:       m.EloDiffUsed,
		RelaxIterations:   m.RelaxIterations,
		Toggles:           datatypes.NewJSONType(m.ConstraintToggleSnapshot),
		Attempts:          m.Attempts,
		DurationMs:        m.DurationMs,
	}
}

func (r metadataRecord) model() model.GenerationMetadata {
	return model.GenerationMetadata{
		SeedUsed:                 r.SeedUsed,
		EloDiffConfigured:        r.EloDiffConfigured,
		EloDiffUsed:              r.EloDiffUsed,
		RelaxIterations:          r.RelaxIterations,
		ConstraintToggleSnapshot: r.Toggles.Data(),
		Attempts:                 r.Attempts,
		DurationMs:               r.DurationMs,
	}
}

func toRatingUpdateRecord(u model.RatingUpdate) ratingUpdateRecord {
	return ratingUpdateRecord{
		EventID:      u.EventID,
		PlayerID:     u.PlayerID,
		RatingBefore: u.RatingBefore,
		RatingAfter:  u.RatingAfter,
		Delta:        u.Delta,
		RatingSystem: u.RatingSystem,
	}
}

func (r ratingUpdateRecord) model() model.RatingUpdate {
	return model.RatingUpdate{
		EventID:      r.EventID,
		PlayerID:     r.PlayerID,
		RatingBefore: r.RatingBefore,
		RatingAfter:  r.RatingAfter,
		Delta:        r.Delta,
		RatingSystem: r.RatingSystem,
	}
}
