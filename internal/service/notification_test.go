package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/email"
	"github.com/sakif/mos-mood/internal/model"
)

func newTestNotificationService(t *testing.T, mailer *fakeMailer, opts ...NotificationOption) (*NotificationService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.quotes = []model.Quote{
		{ID: "q-1", Quote: "You have power over your mind.", Author: "Marcus Aurelius", IsActive: true},
		{ID: "q-2", Quote: "Retired quote.", Author: "Nobody", IsActive: false},
		{ID: "q-3", Quote: "Luck is what happens when preparation meets opportunity.", Author: "Seneca", IsActive: true},
	}
	return NewNotificationService(store, store, mailer, testLogger(), opts...), store
}

func TestSendDailyQuote_SendsAndLogs(t *testing.T) {
	mailer := &fakeMailer{id: "em_1"}
	svc, store := newTestNotificationService(t, mailer, WithQuotePicker(func(n int) int { return n - 1 }))

	res, err := svc.SendDailyQuote(context.Background(), NotificationRequest{To: "ana@example.com", UserID: "user-a", Source: SourceManualTrigger})
	require.NoError(t, err)

	assert.Equal(t, "em_1", res.EmailID)
	assert.Equal(t, "q-3", res.QuoteID, "picker chose the last active quote")

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, email.KindDailyQuote, mailer.sent[0].kind)
	assert.Equal(t, "ana@example.com", mailer.sent[0].to)
	assert.Equal(t, "Seneca", mailer.sent[0].args.Author)

	require.Len(t, store.log, 1)
	entry := store.log[0]
	assert.Equal(t, "user-a", *entry.UserID)
	assert.Equal(t, "q-3", *entry.QuoteID)
	assert.Equal(t, model.DeliveryDailyQuote, entry.DeliveryType)
	assert.Equal(t, "sent", entry.Status)
	assert.Equal(t, "em_1", entry.Metadata["resend_id"])
	assert.Equal(t, SourceManualTrigger, entry.Metadata["source"])
}

func TestSendDailyQuote_OnlyActiveQuotesAreCandidates(t *testing.T) {
	var candidates int
	mailer := &fakeMailer{id: "em_1"}
	svc, _ := newTestNotificationService(t, mailer, WithQuotePicker(func(n int) int { candidates = n; return 0 }))

	_, err := svc.SendDailyQuote(context.Background(), NotificationRequest{To: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, candidates)
}

func TestSendDailyQuote_DefaultPickerStaysInRange(t *testing.T) {
	mailer := &fakeMailer{id: "em_1"}
	svc, _ := newTestNotificationService(t, mailer)

	for i := 0; i < 50; i++ {
		res, err := svc.SendDailyQuote(context.Background(), NotificationRequest{To: "ana@example.com"})
		require.NoError(t, err)
		assert.Contains(t, []string{"q-1", "q-3"}, res.QuoteID)
	}
}

func TestSendDailyQuote_NoActiveQuotesSendsNothing(t *testing.T) {
	mailer := &fakeMailer{id: "em_1"}
	svc, store := newTestNotificationService(t, mailer)
	store.quotes = nil

	_, err := svc.SendDailyQuote(context.Background(), NotificationRequest{To: "ana@example.com", UserID: "user-a"})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperror.Status(err))
	assert.Equal(t, "No active quote found", err.Error())
	assert.Empty(t, mailer.sent)
	assert.Empty(t, store.log)
}

func TestSendDailyQuote_AnonymousSendIsNotLogged(t *testing.T) {
	mailer := &fakeMailer{id: "em_1"}
	svc, store := newTestNotificationService(t, mailer)

	_, err := svc.SendDailyQuote(context.Background(), NotificationRequest{To: "ana@example.com"})
	require.NoError(t, err)
	assert.Empty(t, store.log)
}

func TestSendDailyQuote_LogFailureAfterSendIsReported(t *testing.T) {
	mailer := &fakeMailer{id: "em_1"}
	svc, store := newTestNotificationService(t, mailer)
	store.logErr = errors.New(`insert or update on table "quote_log" violates foreign key constraint`)

	_, err := svc.SendDailyQuote(context.Background(), NotificationRequest{To: "ana@example.com", UserID: "user-a"})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperror.Status(err))
	assert.Len(t, mailer.sent, 1, "the email went out before the log write failed")
}

func TestSendMoodReminder(t *testing.T) {
	mailer := &fakeMailer{id: "em_2"}
	svc, store := newTestNotificationService(t, mailer)

	res, err := svc.SendMoodReminder(context.Background(), NotificationRequest{To: "ana@example.com", UserID: "user-a", Source: SourceNotificationAPI})
	require.NoError(t, err)
	assert.Equal(t, "em_2", res.EmailID)
	assert.Empty(t, res.QuoteID)

	require.Len(t, store.log, 1)
	assert.Nil(t, store.log[0].QuoteID)
	assert.Equal(t, model.DeliveryMoodReminder, store.log[0].DeliveryType)
}

func TestSend_MailerErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
	}{
		{"missing configuration passes through", apperror.MissingConfiguration("RESEND_API_KEY"), "configuration_error"},
		{"missing delivery id", apperror.DownstreamMessage("Failed to send mood_reminder email"), "downstream_error"},
		{"unclassified error becomes downstream", errors.New("tls: handshake failure"), "downstream_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &fakeMailer{err: tt.err}
			svc, store := newTestNotificationService(t, mailer)

			_, err := svc.Send(context.Background(), email.KindMoodReminder, NotificationRequest{To: "ana@example.com", UserID: "user-a"})
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperror.Kind(err))
			assert.Empty(t, store.log, "failed sends are not logged")
		})
	}
}

func TestSend_UnknownKind(t *testing.T) {
	mailer := &fakeMailer{id: "em_1"}
	svc, _ := newTestNotificationService(t, mailer)

	_, err := svc.Send(context.Background(), email.Kind("weekly"), NotificationRequest{To: "ana@example.com"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Empty(t, mailer.sent)
}
