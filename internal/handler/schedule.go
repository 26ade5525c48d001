package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/service"
)

// ScheduleHandler serves the reminder schedule routes.
type ScheduleHandler struct {
	schedules *service.ScheduleService
	logger    *slog.Logger
}

func NewScheduleHandler(schedules *service.ScheduleService, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, logger: logger}
}

type saveScheduleRequest struct {
	ReminderTime json.RawMessage `json:"reminderTime"`
	Timezone     json.RawMessage `json:"timezone"`
	EmailEnabled json.RawMessage `json:"emailEnabled"`
	QuoteEnabled json.RawMessage `json:"quoteEnabled"`
}

// HandleSave creates or replaces the authenticated user's schedule.
//
// HTTP: POST /api/schedules
// REQUEST BODY: {"reminderTime":"08:30","timezone":"Europe/Rome","emailEnabled":true,"quoteEnabled":false}
//
// The two flags accept any JSON value and are coerced to booleans; "yes" and
// 1 are true, 0 and "" are false.
func (h *ScheduleHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	user, err := principal(r)
	if err != nil {
		fail(w, r, h.logger, "schedules.save", err)
		return
	}

	var req saveScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, h.logger, "schedules.save", err)
		return
	}

	reminderTime, ok := jsonString(req.ReminderTime)
	if !ok {
		fail(w, r, h.logger, "schedules.save",
			apperror.ValidationFailed("reminderTime", "Invalid reminderTime. Use HH:MM."))
		return
	}
	timezone, ok := jsonString(req.Timezone)
	if !ok {
		fail(w, r, h.logger, "schedules.save", apperror.ValidationFailed("timezone", "Invalid timezone"))
		return
	}

	schedule, err := h.schedules.Save(r.Context(), user.ID, service.ScheduleInput{
		ReminderTime: reminderTime,
		Timezone:     timezone,
		EmailEnabled: truthy(req.EmailEnabled),
		QuoteEnabled: truthy(req.QuoteEnabled),
	})
	if err != nil {
		fail(w, r, h.logger, "schedules.save", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedule": schedule})
}

// HandleGet returns the saved schedule, or 404 when there is none.
//
// HTTP: GET /api/schedules
func (h *ScheduleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := principal(r)
	if err != nil {
		fail(w, r, h.logger, "schedules.get", err)
		return
	}

	schedule, err := h.schedules.Get(r.Context(), user.ID)
	if err != nil {
		fail(w, r, h.logger, "schedules.get", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedule": schedule})
}
