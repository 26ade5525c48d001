// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take primitives and the principal's user id, never an
// *http.Request, and return apperror values that the handler translates into
// status codes. The user id always comes from the resolved principal: no
// service accepts an owner id from a request body.
//
// DEPENDENCY INJECTION:
// Every service takes repository interfaces, not *sqlite.DB or *postgres.DB.
// Tests pass hand-written fakes; main.go picks the real store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/model"
	"github.com/sakif/mos-mood/internal/repository"
)

// Mood bounds, inclusive.
const (
	MinMood = 1
	MaxMood = 10
)

// reportWindow is the trailing period counted by Report.LastWeekCount.
const reportWindow = 7 * 24 * time.Hour

// CheckinService handles mood check-ins.
type CheckinService struct {
	repo   repository.CheckinRepository
	logger *slog.Logger
}

func NewCheckinService(repo repository.CheckinRepository, logger *slog.Logger) *CheckinService {
	return &CheckinService{repo: repo, logger: logger}
}

// Create validates and stores a check-in owned by userID.
//
// An empty (or whitespace-only) note is stored as NULL; any other note is
// stored as given.
func (s *CheckinService) Create(ctx context.Context, userID string, mood int, note string) (*model.Checkin, error) {
	if mood < MinMood || mood > MaxMood {
		return nil, apperror.ValidationFailed("mood", "Mood must be an integer between 1 and 10")
	}

	c := &model.Checkin{UserID: userID, Mood: mood}
	if strings.TrimSpace(note) != "" {
		c.Note = &note
	}

	if err := s.repo.CreateCheckin(ctx, c); err != nil {
		return nil, storeError(ctx, s.logger, "checkin.create", userID, err)
	}

	s.logger.Info("checkin created",
		slog.String("user_id", userID),
		slog.String("checkin_id", c.ID),
		slog.Int("mood", mood),
	)
	return c, nil
}

// List returns the user's check-ins, newest first.
func (s *CheckinService) List(ctx context.Context, userID string) ([]model.Checkin, error) {
	checkins, err := s.repo.ListCheckins(ctx, userID)
	if err != nil {
		return nil, storeError(ctx, s.logger, "checkin.list", userID, err)
	}
	return checkins, nil
}

// Report summarises the user's check-ins as of now: the total, the average
// mood over all check-ins (0 when there are none) and the number made at or
// after now minus seven days.
func (s *CheckinService) Report(ctx context.Context, userID string, now time.Time) (*model.Report, error) {
	checkins, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &model.Report{Total: len(checkins)}
	if report.Total == 0 {
		return report, nil
	}

	since := now.Add(-reportWindow)
	sum := 0
	for _, c := range checkins {
		sum += c.Mood
		if !c.CheckinAt.Before(since) {
			report.LastWeekCount++
		}
	}
	report.AverageMood = float64(sum) / float64(report.Total)
	return report, nil
}

// storeError logs a repository failure with its operation name and turns it
// into a downstream error. Errors already in the taxonomy (NotFound from a
// lookup, for example) pass through unchanged.
func storeError(ctx context.Context, logger *slog.Logger, op, userID string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	logger.ErrorContext(ctx, "store operation failed",
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.String("error", err.Error()),
	)
	return apperror.Downstream(err)
}
