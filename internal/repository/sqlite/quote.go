package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/mos-mood/internal/model"
)

// ListActiveQuotes returns up to limit active quotes. Order is unspecified;
// callers pick one at random.
func (db *DB) ListActiveQuotes(ctx context.Context, limit int) ([]model.Quote, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, quote, author, is_active
		 FROM quotes
		 WHERE is_active = 1
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing active quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]model.Quote, 0, limit)
	for rows.Next() {
		var q model.Quote
		if err := rows.Scan(&q.ID, &q.Quote, &q.Author, &q.IsActive); err != nil {
			return nil, fmt.Errorf("sqlite: scanning quote row: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating quotes: %w", err)
	}

	return quotes, nil
}

// CreateQuote seeds a quote. Quotes are managed outside this server in
// production; this is for local databases and tests.
func (db *DB) CreateQuote(ctx context.Context, q *model.Quote) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO quotes (id, quote, author, is_active) VALUES (?, ?, ?, ?)`,
		q.ID, q.Quote, q.Author, q.IsActive,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating quote: %w", err)
	}
	return nil
}

// AppendQuoteLog writes one delivery record.
//
// datatypes.JSONMap implements driver.Valuer (it serialises itself to a JSON
// string) and sql.Scanner, so it round-trips through a TEXT column.
func (db *DB) AppendQuoteLog(ctx context.Context, e *model.QuoteLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO quote_log (id, user_id, quote_id, delivery_type, status, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.UserID,
		e.QuoteID,
		e.DeliveryType,
		e.Status,
		e.Metadata,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: appending quote log: %w", err)
	}
	return nil
}

// ListQuoteLog returns the log entries for userID, oldest first.
func (db *DB) ListQuoteLog(ctx context.Context, userID string) ([]model.QuoteLogEntry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, quote_id, delivery_type, status, metadata, created_at
		 FROM quote_log
		 WHERE user_id = ?
		 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing quote log: %w", err)
	}
	defer rows.Close()

	var entries []model.QuoteLogEntry
	for rows.Next() {
		var e model.QuoteLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.QuoteID, &e.DeliveryType, &e.Status, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning quote log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating quote log: %w", err)
	}
	return entries, nil
}
