// Package repository defines the storage interfaces the services depend on.
//
// Two implementations exist: repository/sqlite for local development and
// tests, and repository/postgres for the managed database. Every method is
// scoped by the caller-supplied user id; the services take that id from the
// resolved principal, never from the request body.
package repository

import (
	"context"

	"github.com/sakif/mos-mood/internal/model"
)

type CheckinRepository interface {
	// CreateCheckin stores c, filling in ID and CheckinAt when empty.
	CreateCheckin(ctx context.Context, c *model.Checkin) error
	// ListCheckins returns the user's check-ins, newest first.
	ListCheckins(ctx context.Context, userID string) ([]model.Checkin, error)
}

type ScheduleRepository interface {
	// UpsertSchedule inserts or replaces the user's single schedule row and
	// returns the stored row.
	UpsertSchedule(ctx context.Context, s *model.Schedule) (*model.Schedule, error)
	// GetSchedule returns apperror NotFound when the user has none.
	GetSchedule(ctx context.Context, userID string) (*model.Schedule, error)
}

type QuoteRepository interface {
	// ListActiveQuotes returns at most limit quotes with is_active set.
	ListActiveQuotes(ctx context.Context, limit int) ([]model.Quote, error)
}

type QuoteLogRepository interface {
	// AppendQuoteLog writes one delivery record. Entries are never updated.
	AppendQuoteLog(ctx context.Context, entry *model.QuoteLogEntry) error
}

// Store is everything the server needs from a backend.
type Store interface {
	CheckinRepository
	ScheduleRepository
	QuoteRepository
	QuoteLogRepository
	PingContext(ctx context.Context) error
	Close() error
}
