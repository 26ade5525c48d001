// Package postgres implements the repository interfaces on the managed
// Postgres database with gorm.
//
// The server connects with the database's own credentials (DATABASE_URL), so
// row-level security does not apply: every query here is explicitly scoped by
// user_id, exactly like the SQLite store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/model"
	"github.com/sakif/mos-mood/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB is a gorm-backed store.
type DB struct {
	gorm *gorm.DB
}

// Options configures New.
type Options struct {
	// AutoMigrate creates missing tables and columns. Leave it off against a
	// database whose schema is managed elsewhere.
	AutoMigrate bool
	Logger      *slog.Logger
}

// New connects to dsn and, if asked, migrates the schema.
func New(dsn string, opts Options) (*DB, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	// gorm's logger wants a Printf-style writer; slog can provide one.
	gormLogger := logger.New(
		slog.NewLogLogger(opts.Logger.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("postgres: connecting: %w", err)
	}

	if opts.AutoMigrate {
		if err := db.AutoMigrate(&model.Checkin{}, &model.Schedule{}, &model.Quote{}, &model.QuoteLogEntry{}); err != nil {
			return nil, fmt.Errorf("postgres: migrating: %w", err)
		}
	}

	return &DB{gorm: db}, nil
}

// PingContext checks the database is reachable.
func (db *DB) PingContext(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) CreateCheckin(ctx context.Context, c *model.Checkin) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CheckinAt.IsZero() {
		c.CheckinAt = time.Now().UTC()
	}
	if err := db.gorm.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("postgres: creating checkin: %w", err)
	}
	return nil
}

func (db *DB) ListCheckins(ctx context.Context, userID string) ([]model.Checkin, error) {
	checkins := make([]model.Checkin, 0)
	err := db.gorm.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("checkin_at DESC").
		Find(&checkins).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing checkins: %w", err)
	}
	return checkins, nil
}

// UpsertSchedule inserts or replaces the user's schedule with
// INSERT ... ON CONFLICT (user_id) DO UPDATE, then reads the row back.
func (db *DB) UpsertSchedule(ctx context.Context, s *model.Schedule) (*model.Schedule, error) {
	if err := upsertSchedule(db.gorm.WithContext(ctx), s).Error; err != nil {
		return nil, fmt.Errorf("postgres: upserting schedule: %w", err)
	}
	return db.GetSchedule(ctx, s.UserID)
}

func upsertSchedule(tx *gorm.DB, s *model.Schedule) *gorm.DB {
	row := *s
	row.ID = uuid.NewString()
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"reminder_time", "timezone", "email_enabled", "quote_enabled"}),
	}).Create(&row)
}

func (db *DB) GetSchedule(ctx context.Context, userID string) (*model.Schedule, error) {
	var s model.Schedule
	err := db.gorm.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFoundMessage("No schedule saved")
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting schedule: %w", err)
	}
	return &s, nil
}

func (db *DB) ListActiveQuotes(ctx context.Context, limit int) ([]model.Quote, error) {
	if limit <= 0 {
		limit = 100
	}
	quotes := make([]model.Quote, 0, limit)
	err := db.gorm.WithContext(ctx).
		Where("is_active = ?", true).
		Limit(limit).
		Find(&quotes).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing active quotes: %w", err)
	}
	return quotes, nil
}

func (db *DB) AppendQuoteLog(ctx context.Context, e *model.QuoteLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := db.gorm.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("postgres: appending quote log: %w", err)
	}
	return nil
}
