package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/mos-mood/internal/model"
	"github.com/sakif/mos-mood/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` fails to compile if *Y stops implementing X.
var _ repository.Store = (*DB)(nil)

// CreateCheckin inserts c. ID and CheckinAt are filled in when empty, the same
// defaults the managed database applies.
//
// PARAMETERIZED QUERIES (the ? placeholders):
// NEVER build SQL strings with fmt.Sprintf; the driver escapes ? arguments.
func (db *DB) CreateCheckin(ctx context.Context, c *model.Checkin) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CheckinAt.IsZero() {
		c.CheckinAt = time.Now()
	}
	// Stored as text; a single offset keeps ORDER BY chronological.
	c.CheckinAt = c.CheckinAt.UTC()

	// c.Note is a *string: nil is written as NULL.
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO checkins (id, user_id, mood, note, checkin_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID,
		c.UserID,
		c.Mood,
		c.Note,
		c.CheckinAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating checkin: %w", err)
	}
	return nil
}

// ListCheckins returns userID's check-ins, newest first.
func (db *DB) ListCheckins(ctx context.Context, userID string) ([]model.Checkin, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, mood, note, checkin_at
		 FROM checkins
		 WHERE user_id = ?
		 ORDER BY checkin_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing checkins: %w", err)
	}
	// CRITICAL: always close rows, or the connection never returns to the pool.
	defer rows.Close()

	checkins := make([]model.Checkin, 0)
	for rows.Next() {
		var c model.Checkin
		// Scanning NULL into &c.Note (a **string) leaves Note nil.
		if err := rows.Scan(&c.ID, &c.UserID, &c.Mood, &c.Note, &c.CheckinAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning checkin row: %w", err)
		}
		checkins = append(checkins, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating checkins: %w", err)
	}

	return checkins, nil
}
