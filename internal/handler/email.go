package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/service"
)

// EmailHandler lets a signed-in user send themselves a notification email.
type EmailHandler struct {
	notifications *service.NotificationService
	logger        *slog.Logger
}

func NewEmailHandler(notifications *service.NotificationService, logger *slog.Logger) *EmailHandler {
	return &EmailHandler{notifications: notifications, logger: logger}
}

// HandleCheckinReminder sends the mood check-in reminder to the principal's
// address. Nothing is written to the quote log.
//
// HTTP: POST /api/email/checkin
func (h *EmailHandler) HandleCheckinReminder(w http.ResponseWriter, r *http.Request) {
	to, ok := h.recipient(w, r, "email.checkin")
	if !ok {
		return
	}

	res, err := h.notifications.SendMoodReminder(r.Context(), service.NotificationRequest{To: to})
	if err != nil {
		fail(w, r, h.logger, "email.checkin", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"emailId": res.EmailID,
		"message": "Check-in reminder email sent",
	})
}

// HandleQuote sends a random active quote to the principal's address and
// records the delivery.
//
// HTTP: POST /api/email/quote
func (h *EmailHandler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	to, ok := h.recipient(w, r, "email.quote")
	if !ok {
		return
	}
	user, _ := principal(r)

	res, err := h.notifications.SendDailyQuote(r.Context(), service.NotificationRequest{
		To:     to,
		UserID: user.ID,
		Source: service.SourceManualTrigger,
	})
	if err != nil {
		fail(w, r, h.logger, "email.quote", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"emailId": res.EmailID,
		"quoteId": res.QuoteID,
		"message": "Quote email sent",
	})
}

func (h *EmailHandler) recipient(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	user, err := principal(r)
	if err != nil {
		fail(w, r, h.logger, op, err)
		return "", false
	}
	if user.Email == "" {
		fail(w, r, h.logger, op, apperror.ValidationFailed("email", "No email found for authenticated user"))
		return "", false
	}
	return user.Email, true
}
