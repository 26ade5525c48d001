package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/mos-mood/internal/email"
	"github.com/sakif/mos-mood/internal/handler"
	"github.com/sakif/mos-mood/internal/model"
	sqliteRepo "github.com/sakif/mos-mood/internal/repository/sqlite"
	"github.com/sakif/mos-mood/internal/service"
)

var testEmailConfig = email.Config{APIKey: "re_test", From: "Mos Mood <mood@example.com>"}

func newNotificationService(t *testing.T, cfg email.Config, sender *fakeSender) (*service.NotificationService, *sqliteRepo.DB) {
	t.Helper()
	db := newTestDB(t)
	logger := testLogger()
	dispatcher := email.NewDispatcher(cfg, sender, logger)
	return service.NewNotificationService(db, db, dispatcher, logger), db
}

func TestEmailHandler_HandleCheckinReminder(t *testing.T) {
	t.Run("sends to the principal", func(t *testing.T) {
		sender := &fakeSender{id: "em_reminder"}
		svc, db := newNotificationService(t, testEmailConfig, sender)
		h := handler.NewEmailHandler(svc, testLogger())

		rr := httptest.NewRecorder()
		h.HandleCheckinReminder(rr, newRequest(http.MethodPost, "/api/email/checkin", "", alice))

		require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())
		assert.JSONEq(t, `{"ok":true,"emailId":"em_reminder","message":"Check-in reminder email sent"}`, rr.Body.String())
		require.Len(t, sender.sent, 1)
		assert.Equal(t, []string{alice.Email}, sender.sent[0].To)
		assert.Equal(t, "Mood check-in reminder", sender.sent[0].Subject)

		log, err := db.ListQuoteLog(context.Background(), alice.ID)
		require.NoError(t, err)
		assert.Empty(t, log, "reminders from this route are not logged")
	})

	t.Run("principal without email", func(t *testing.T) {
		sender := &fakeSender{id: "em_1"}
		svc, _ := newNotificationService(t, testEmailConfig, sender)
		h := handler.NewEmailHandler(svc, testLogger())

		rr := httptest.NewRecorder()
		h.HandleCheckinReminder(rr, newRequest(http.MethodPost, "/api/email/checkin", "", &model.User{ID: alice.ID}))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "No email found for authenticated user", decodeBody(t, rr)["message"])
		assert.Empty(t, sender.sent)
	})

	t.Run("provider not configured", func(t *testing.T) {
		sender := &fakeSender{id: "em_1"}
		svc, _ := newNotificationService(t, email.Config{From: "mood@example.com"}, sender)
		h := handler.NewEmailHandler(svc, testLogger())

		rr := httptest.NewRecorder()
		h.HandleCheckinReminder(rr, newRequest(http.MethodPost, "/api/email/checkin", "", alice))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "configuration_error", body["error"])
		assert.Equal(t, "Missing RESEND_API_KEY", body["message"])
		assert.Empty(t, sender.sent)
	})

	t.Run("provider returns no id", func(t *testing.T) {
		svc, _ := newNotificationService(t, testEmailConfig, &fakeSender{})
		h := handler.NewEmailHandler(svc, testLogger())

		rr := httptest.NewRecorder()
		h.HandleCheckinReminder(rr, newRequest(http.MethodPost, "/api/email/checkin", "", alice))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestEmailHandler_HandleQuote(t *testing.T) {
	t.Run("sends a quote and logs it", func(t *testing.T) {
		sender := &fakeSender{id: "em_quote"}
		svc, db := newNotificationService(t, testEmailConfig, sender)
		quote := seedQuote(t, db, "The best revenge is not to be like your enemy.", "Marcus Aurelius")
		h := handler.NewEmailHandler(svc, testLogger())

		rr := httptest.NewRecorder()
		h.HandleQuote(rr, newRequest(http.MethodPost, "/api/email/quote", "", alice))

		require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())
		body := decodeBody(t, rr)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, "em_quote", body["emailId"])
		assert.Equal(t, quote.ID, body["quoteId"])
		assert.Equal(t, "Quote email sent", body["message"])

		require.Len(t, sender.sent, 1)
		assert.Contains(t, sender.sent[0].HTML, "Marcus Aurelius")

		log, err := db.ListQuoteLog(context.Background(), alice.ID)
		require.NoError(t, err)
		require.Len(t, log, 1)
		assert.Equal(t, quote.ID, *log[0].QuoteID)
		assert.Equal(t, "daily_quote", log[0].DeliveryType)
		assert.Equal(t, "sent", log[0].Status)
		assert.Equal(t, "em_quote", log[0].Metadata["resend_id"])
		assert.Equal(t, "manual_trigger", log[0].Metadata["source"])
	})

	t.Run("no active quotes", func(t *testing.T) {
		sender := &fakeSender{id: "em_quote"}
		svc, db := newNotificationService(t, testEmailConfig, sender)
		h := handler.NewEmailHandler(svc, testLogger())

		rr := httptest.NewRecorder()
		h.HandleQuote(rr, newRequest(http.MethodPost, "/api/email/quote", "", alice))

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "No active quote found", decodeBody(t, rr)["message"])
		assert.Empty(t, sender.sent)
		log, err := db.ListQuoteLog(context.Background(), alice.ID)
		require.NoError(t, err)
		assert.Empty(t, log)
	})
}
