package handler

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/service"
)

// CheckinHandler serves the mood check-in routes.
//
//	POST /api/checkins          → create a check-in for the principal
//	GET  /api/checkins          → list the principal's check-ins
//	GET  /api/checkins/report   → summary for the reports page
type CheckinHandler struct {
	checkins *service.CheckinService
	logger   *slog.Logger
	now      func() time.Time
}

func NewCheckinHandler(checkins *service.CheckinService, logger *slog.Logger) *CheckinHandler {
	return &CheckinHandler{checkins: checkins, logger: logger, now: time.Now}
}

// createCheckinRequest keeps mood raw so that 7.5 and "7" can be rejected
// instead of silently truncated. Any user_id in the body is ignored.
type createCheckinRequest struct {
	Mood json.RawMessage `json:"mood"`
	Note json.RawMessage `json:"note"`
}

// HandleCreate creates a check-in owned by the authenticated user.
//
// HTTP: POST /api/checkins
// REQUEST BODY: {"mood": 7, "note": "slept well"}
func (h *CheckinHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := principal(r)
	if err != nil {
		fail(w, r, h.logger, "checkins.create", err)
		return
	}

	var req createCheckinRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, h.logger, "checkins.create", err)
		return
	}

	mood, ok := integer(req.Mood)
	if !ok {
		fail(w, r, h.logger, "checkins.create",
			apperror.ValidationFailed("mood", "Mood must be an integer between 1 and 10"))
		return
	}
	note, _ := jsonString(req.Note)

	checkin, err := h.checkins.Create(r.Context(), user.ID, mood, note)
	if err != nil {
		fail(w, r, h.logger, "checkins.create", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"checkin": checkin})
}

// HandleList returns the authenticated user's check-ins, newest first.
//
// HTTP: GET /api/checkins
func (h *CheckinHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := principal(r)
	if err != nil {
		fail(w, r, h.logger, "checkins.list", err)
		return
	}

	checkins, err := h.checkins.List(r.Context(), user.ID)
	if err != nil {
		fail(w, r, h.logger, "checkins.list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"checkins": checkins})
}

// HandleReport returns the average mood, the trailing-week count and the
// total for the authenticated user.
//
// HTTP: GET /api/checkins/report
func (h *CheckinHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	user, err := principal(r)
	if err != nil {
		fail(w, r, h.logger, "checkins.report", err)
		return
	}

	report, err := h.checkins.Report(r.Context(), user.ID, h.now())
	if err != nil {
		fail(w, r, h.logger, "checkins.report", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}

// integer accepts a JSON number with no fractional part. 7 and 7.0 are both
// 7; 7.5, "7", true and null are rejected.
func integer(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || raw[0] == '"' {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
