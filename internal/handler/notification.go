package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/email"
	"github.com/sakif/mos-mood/internal/service"
)

// NotificationHandler is the server-to-server email endpoint. It sits behind
// auth.RequireAPIKey, not RequireAuth: the caller is a scheduler, not a user.
type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *slog.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

type sendNotificationRequest struct {
	Type   json.RawMessage `json:"type"`
	To     json.RawMessage `json:"to"`
	UserID json.RawMessage `json:"userId"`
}

// HandleSend sends one notification email.
//
// HTTP: POST /api/notifications/email
// REQUEST BODY: {"type":"daily_quote","to":"ana@example.com","userId":"<uuid>"}
//
// userId is optional. When present it must be a UUID and a quote_log entry
// is written for it after the send.
func (h *NotificationHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	const op = "notifications.email"

	var req sendNotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, h.logger, op, err)
		return
	}

	kind, _ := jsonString(req.Type)
	if !email.Kind(kind).Valid() {
		fail(w, r, h.logger, op, apperror.ValidationFailed("type", "Invalid type"))
		return
	}
	to, ok := jsonString(req.To)
	if !ok || to == "" {
		fail(w, r, h.logger, op, apperror.ValidationFailed("to", "Missing recipient email"))
		return
	}

	var userID string
	raw, isString := jsonString(req.UserID)
	absent := len(req.UserID) == 0 || string(req.UserID) == "null" || (isString && raw == "")
	if !absent {
		id, err := uuid.Parse(raw)
		if err != nil {
			fail(w, r, h.logger, op, apperror.ValidationFailed("userId", "Invalid userId"))
			return
		}
		userID = id.String()
	}

	res, err := h.notifications.Send(r.Context(), email.Kind(kind), service.NotificationRequest{
		To:     to,
		UserID: userID,
		Source: service.SourceNotificationAPI,
	})
	if err != nil {
		fail(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "emailId": res.EmailID})
}
