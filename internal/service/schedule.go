package service

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/model"
	"github.com/sakif/mos-mood/internal/repository"
)

// reminderTimePattern is the accepted shape: exactly two digits, a colon,
// two digits. "9:00" and "0900" are rejected.
var reminderTimePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

const minTimezoneLength = 3

// ScheduleInput is a schedule as submitted by the user.
type ScheduleInput struct {
	ReminderTime string
	Timezone     string
	EmailEnabled bool
	QuoteEnabled bool
}

// ScheduleService manages the per-user reminder schedule.
type ScheduleService struct {
	repo   repository.ScheduleRepository
	logger *slog.Logger
}

func NewScheduleService(repo repository.ScheduleRepository, logger *slog.Logger) *ScheduleService {
	return &ScheduleService{repo: repo, logger: logger}
}

// Save validates in and replaces userID's schedule with it. Saving twice
// leaves one row holding the latest values.
func (s *ScheduleService) Save(ctx context.Context, userID string, in ScheduleInput) (*model.Schedule, error) {
	if !validReminderTime(in.ReminderTime) {
		return nil, apperror.ValidationFailed("reminderTime", "Invalid reminderTime. Use HH:MM.")
	}
	if len(in.Timezone) < minTimezoneLength {
		return nil, apperror.ValidationFailed("timezone", "Invalid timezone")
	}

	saved, err := s.repo.UpsertSchedule(ctx, &model.Schedule{
		UserID:       userID,
		ReminderTime: in.ReminderTime,
		Timezone:     in.Timezone,
		EmailEnabled: in.EmailEnabled,
		QuoteEnabled: in.QuoteEnabled,
	})
	if err != nil {
		return nil, storeError(ctx, s.logger, "schedule.upsert", userID, err)
	}

	s.logger.Info("schedule saved",
		slog.String("user_id", userID),
		slog.String("reminder_time", saved.ReminderTime),
		slog.String("timezone", saved.Timezone),
	)
	return saved, nil
}

// Get returns userID's schedule, or a not_found error if none was saved.
func (s *ScheduleService) Get(ctx context.Context, userID string) (*model.Schedule, error) {
	sched, err := s.repo.GetSchedule(ctx, userID)
	if err != nil {
		return nil, storeError(ctx, s.logger, "schedule.get", userID, err)
	}
	return sched, nil
}

// validReminderTime checks the HH:MM shape and that it names a real time
// of day, so "25:61" is rejected as well.
func validReminderTime(v string) bool {
	if !reminderTimePattern.MatchString(v) {
		return false
	}
	// Atoi cannot fail here: the pattern guarantees two digits each side.
	hh, _ := strconv.Atoi(v[:2])
	mm, _ := strconv.Atoi(v[3:])
	return hh <= 23 && mm <= 59
}
