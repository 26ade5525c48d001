package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/model"
)

// UpsertSchedule inserts or replaces the user's schedule.
//
// INSERT ... ON CONFLICT(user_id) DO UPDATE:
// The UNIQUE constraint on user_id is the conflict target. On conflict the
// existing row keeps its id and only the settings change, so a user never has
// two schedules no matter how many concurrent saves race.
//
// After the upsert we SELECT the row back to return the canonical record
// (including the id the first save generated).
func (db *DB) UpsertSchedule(ctx context.Context, s *model.Schedule) (*model.Schedule, error) {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO schedules (id, user_id, reminder_time, timezone, email_enabled, quote_enabled, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			reminder_time = excluded.reminder_time,
			timezone      = excluded.timezone,
			email_enabled = excluded.email_enabled,
			quote_enabled = excluded.quote_enabled,
			updated_at    = excluded.updated_at`,
		uuid.NewString(),
		s.UserID,
		s.ReminderTime,
		s.Timezone,
		s.EmailEnabled,
		s.QuoteEnabled,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: upserting schedule: %w", err)
	}

	return db.GetSchedule(ctx, s.UserID)
}

// GetSchedule returns the user's schedule, or apperror NotFound.
func (db *DB) GetSchedule(ctx context.Context, userID string) (*model.Schedule, error) {
	var s model.Schedule

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, reminder_time, timezone, email_enabled, quote_enabled
		 FROM schedules WHERE user_id = ?`,
		userID,
	).Scan(&s.ID, &s.UserID, &s.ReminderTime, &s.Timezone, &s.EmailEnabled, &s.QuoteEnabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("No schedule saved")
		}
		return nil, fmt.Errorf("sqlite: getting schedule: %w", err)
	}

	return &s, nil
}
