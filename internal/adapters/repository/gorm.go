package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/courtside/internal/domain/model"
	"github.com/okian/courtside/pkg/metrics"
)

// GormStore implements Store on gorm.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// Open connects to driver ("sqlite" or "postgres") and migrates the schema.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*GormStore, error) {
	o := options{maxOpenConns: 10, maxIdleConns: 5, connMaxLifetime: time.Hour, autoMigrate: true}
	for _, opt := range opts {
		opt(&o)
	}

	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
		// one writer at a time
		o.maxOpenConns = 1
		o.maxIdleConns = 1
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	sqlDB.SetMaxOpenConns(o.maxOpenConns)
	sqlDB.SetMaxIdleConns(o.maxIdleConns)
	sqlDB.SetConnMaxLifetime(o.connMaxLifetime)

	s := &GormStore{db: db}
	if o.autoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(allRecords()...); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return s, nil
}

// InTx runs fn inside a transaction.
func (s *GormStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Milliseconds()))
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return err
}

func (s *GormStore) SaveGroup(ctx context.Context, g model.Group) error {
	defer observe("save_group", time.Now())
	rec := toGroupRecord(g)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "rating", "updated_at"}),
	}).Create(&rec).Error
}

func (s *GormStore) Group(ctx context.Context, id string) (model.Group, error) {
	defer observe("group", time.Now())
	var rec groupRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return model.Group{}, notFound(err, "group", id)
	}
	return rec.model(), nil
}

func (s *GormStore) UpsertPlayers(ctx context.Context, players []model.Participant) error {
	defer observe("upsert_players", time.Now())
	if len(players) == 0 {
		return nil
	}
	recs := make([]playerRecord, len(players))
	for i, p := range players {
		recs[i] = toPlayerRecord(p)
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "rating", "updated_at"}),
	}).Create(&recs).Error
}

func (s *GormStore) Players(ctx context.Context, groupID string) ([]model.Participant, error) {
	defer observe("players", time.Now())
	var recs []playerRecord
	if err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]model.Participant, len(recs))
	for i, r := range recs {
		out[i] = r.model()
	}
	return out, nil
}

func (s *GormStore) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	defer observe("create_event", time.Now())
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = model.EventDraft
	}
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&eventRecord{}).
			Where("group_id = ?", e.GroupID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		e.Sequence = last + 1
		rec := toEventRecord(e)
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		e.CreatedAt = rec.CreatedAt
		return nil
	})
	if err != nil {
		return model.Event{}, err
	}
	return e, nil
}

func (s *GormStore) Event(ctx context.Context, id string) (model.Event, error) {
	defer observe("event", time.Now())
	var rec eventRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return model.Event{}, notFound(err, "event", id)
	}
	return rec.model(), nil
}

func (s *GormStore) PreviousEvent(ctx context.Context, groupID string, sequence int) (model.Event, error) {
	defer observe("previous_event", time.Now())
	var rec eventRecord
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND sequence < ?", groupID, sequence).
		Order("sequence DESC").
		First(&rec).Error
	if err != nil {
		return model.Event{}, notFound(err, "event before sequence", fmt.Sprint(sequence))
	}
	return rec.model(), nil
}

func (s *GormStore) ReplaceSchedule(ctx context.Context, sched model.Schedule) error {
	defer observe("replace_schedule", time.Now())
	return s.InTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&eventRecord{}).
			Where("id = ? AND status <> ?", sched.EventID, string(model.EventCompleted)).
			Updates(map[string]any{"status": string(model.EventGenerated), "seed": sched.Metadata.SeedUsed})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.missingOrCompleted(tx, sched.EventID)
		}
		if err := tx.Where("event_id = ?", sched.EventID).Delete(&gameRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", sched.EventID).Delete(&metadataRecord{}).Error; err != nil {
			return err
		}

		games := sched.Games()
		recs := make([]gameRecord, len(games))
		for i, g := range games {
			if g.ID == "" {
				g.ID = uuid.NewString()
			}
			g.EventID = sched.EventID
			recs[i] = toGameRecord(g)
		}
		if len(recs) > 0 {
			if err := tx.Create(&recs).Error; err != nil {
				return err
			}
		}
		meta := toMetadataRecord(sched.EventID, sched.Metadata)
		return tx.Create(&meta).Error
	})
}

// missingOrCompleted explains why a conditional event update touched no rows.
func (s *GormStore) missingOrCompleted(tx *gorm.DB, eventID string) error {
	var count int64
	if err := tx.Model(&eventRecord{}).Where("id = ?", eventID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}
	return fmt.Errorf("%w: event %s is completed", ErrConflict, eventID)
}

func (s *GormStore) Games(ctx context.Context, eventID string) ([]model.Game, error) {
	defer observe("games", time.Now())
	var recs []gameRecord
	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("round, court").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]model.Game, len(recs))
	for i, r := range recs {
		out[i] = r.model()
	}
	return out, nil
}

func (s *GormStore) Game(ctx context.Context, id string) (model.Game, error) {
	defer observe("game", time.Now())
	var rec gameRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return model.Game{}, notFound(err, "game", id)
	}
	return rec.model(), nil
}

func (s *GormStore) Metadata(ctx context.Context, eventID string) (model.GenerationMetadata, error) {
	defer observe("metadata", time.Now())
	var rec metadataRecord
	if err := s.db.WithContext(ctx).First(&rec, "event_id = ?", eventID).Error; err != nil {
		return model.GenerationMetadata{}, notFound(err, "metadata for event", eventID)
	}
	return rec.model(), nil
}

func (s *GormStore) ReplaceRound(ctx context.Context, eventID string, round int, games []model.Game) error {
	defer observe("replace_round", time.Now())
	return s.InTx(ctx, func(tx *gorm.DB) error {
		for _, g := range games {
			if g.EventID != eventID || g.Round != round {
				return fmt.Errorf("%w: game %s is not in event %s round %d", ErrConflict, g.ID, eventID, round)
			}
			res := tx.Model(&gameRecord{}).Where("id = ?", g.ID).Updates(map[string]any{
				"team_a_p1":     g.TeamA.A,
				"team_a_p2":     g.TeamA.B,
				"team_b_p1":     g.TeamB.A,
				"team_b_p2":     g.TeamB.B,
				"team_a_rating": g.TeamARating,
				"team_b_rating": g.TeamBRating,
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: game %s", ErrNotFound, g.ID)
			}
		}
		return nil
	})
}

func (s *GormStore) SetScore(ctx context.Context, gameID string, s1, s2 *int) error {
	defer observe("set_score", time.Now())
	res := s.db.WithContext(ctx).Model(&gameRecord{}).Where("id = ?", gameID).
		Updates(map[string]any{"score_team1": s1, "score_team2": s2})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: game %s", ErrNotFound, gameID)
	}
	return nil
}

func (s *GormStore) CompleteEvent(ctx context.Context, eventID string, updates []model.RatingUpdate, at time.Time) error {
	defer observe("complete_event", time.Now())
	return s.InTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&eventRecord{}).
			Where("id = ? AND status <> ?", eventID, string(model.EventCompleted)).
			Updates(map[string]any{"status": string(model.EventCompleted), "completed_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.missingOrCompleted(tx, eventID)
		}

		var ev eventRecord
		if err := tx.Select("group_id").Where("id = ?", eventID).First(&ev).Error; err != nil {
			return err
		}
		for _, u := range updates {
			res := tx.Model(&playerRecord{}).Where("group_id = ? AND id = ?", ev.GroupID, u.PlayerID).
				Updates(map[string]any{"rating": u.RatingAfter, "updated_at": at})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: player %s in group %s", ErrNotFound, u.PlayerID, ev.GroupID)
			}
		}
		if len(updates) == 0 {
			return nil
		}
		recs := make([]ratingUpdateRecord, len(updates))
		for i, u := range updates {
			recs[i] = toRatingUpdateRecord(u)
			recs[i].EventID = eventID
		}
		return tx.Create(&recs).Error
	})
}

func (s *GormStore) RatingUpdates(ctx context.Context, eventID string) ([]model.RatingUpdate, error) {
	defer observe("rating_updates", time.Now())
	var recs []ratingUpdateRecord
	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("player_id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]model.RatingUpdate, len(recs))
	for i, r := range recs {
		out[i] = r.model()
	}
	return out, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
