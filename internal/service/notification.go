package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/email"
	"github.com/sakif/mos-mood/internal/model"
	"github.com/sakif/mos-mood/internal/repository"
)

// maxQuoteCandidates bounds how many active quotes are fetched to pick from.
const maxQuoteCandidates = 100

// Log sources recorded in quote_log metadata.
const (
	SourceManualTrigger   = "manual_trigger"
	SourceNotificationAPI = "notification_api"
)

// Mailer is the part of email.Dispatcher the service uses.
type Mailer interface {
	Send(ctx context.Context, kind email.Kind, to string, args email.Args) (string, error)
}

// NotificationRequest describes one send.
type NotificationRequest struct {
	To string
	// UserID, when set, is the owner of the quote_log entry written after a
	// successful send. Empty means no entry is written.
	UserID string
	Source string
}

// NotificationResult is what a successful send produced.
type NotificationResult struct {
	EmailID string
	QuoteID string // empty for reminders
}

// NotificationService picks quotes, sends notification emails and records
// deliveries.
type NotificationService struct {
	quotes     repository.QuoteRepository
	deliveries repository.QuoteLogRepository
	mailer     Mailer
	pick       func(n int) int
	logger     *slog.Logger
}

// NotificationOption customises a NotificationService.
type NotificationOption func(*NotificationService)

// WithQuotePicker replaces the uniform random choice of quote; pick(n) must
// return an index in [0, n). Tests use it to make the choice deterministic.
func WithQuotePicker(pick func(n int) int) NotificationOption {
	return func(s *NotificationService) { s.pick = pick }
}

func NewNotificationService(quotes repository.QuoteRepository, deliveries repository.QuoteLogRepository, mailer Mailer, logger *slog.Logger, opts ...NotificationOption) *NotificationService {
	s := &NotificationService{
		quotes:     quotes,
		deliveries: deliveries,
		mailer:     mailer,
		pick:       rand.IntN,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendDailyQuote emails a random active quote to req.To.
//
// With no active quotes it fails with not_found before anything is sent.
// A quote_log write that fails after the email went out is still reported
// as an error; the email is not recalled.
func (s *NotificationService) SendDailyQuote(ctx context.Context, req NotificationRequest) (*NotificationResult, error) {
	quotes, err := s.quotes.ListActiveQuotes(ctx, maxQuoteCandidates)
	if err != nil {
		return nil, storeError(ctx, s.logger, "quotes.list_active", req.UserID, err)
	}
	if len(quotes) == 0 {
		return nil, apperror.NotFoundMessage("No active quote found")
	}
	quote := quotes[s.pick(len(quotes))]

	id, err := s.mailer.Send(ctx, email.KindDailyQuote, req.To, email.Args{Quote: quote.Quote, Author: quote.Author})
	if err != nil {
		return nil, sendError(err)
	}

	if err := s.record(ctx, req, model.DeliveryDailyQuote, &quote.ID, id); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "daily quote sent",
		slog.String("user_id", req.UserID),
		slog.String("quote_id", quote.ID),
		slog.String("email_id", id),
	)
	return &NotificationResult{EmailID: id, QuoteID: quote.ID}, nil
}

// SendMoodReminder emails the check-in reminder to req.To.
func (s *NotificationService) SendMoodReminder(ctx context.Context, req NotificationRequest) (*NotificationResult, error) {
	id, err := s.mailer.Send(ctx, email.KindMoodReminder, req.To, email.Args{})
	if err != nil {
		return nil, sendError(err)
	}

	if err := s.record(ctx, req, model.DeliveryMoodReminder, nil, id); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "mood reminder sent",
		slog.String("user_id", req.UserID),
		slog.String("email_id", id),
	)
	return &NotificationResult{EmailID: id}, nil
}

// Send dispatches on kind, for the server-to-server endpoint.
func (s *NotificationService) Send(ctx context.Context, kind email.Kind, req NotificationRequest) (*NotificationResult, error) {
	switch kind {
	case email.KindDailyQuote:
		return s.SendDailyQuote(ctx, req)
	case email.KindMoodReminder:
		return s.SendMoodReminder(ctx, req)
	default:
		return nil, apperror.ValidationFailed("type", "Invalid type")
	}
}

func (s *NotificationService) record(ctx context.Context, req NotificationRequest, deliveryType string, quoteID *string, emailID string) error {
	if req.UserID == "" {
		return nil
	}
	userID := req.UserID
	entry := &model.QuoteLogEntry{
		UserID:       &userID,
		QuoteID:      quoteID,
		DeliveryType: deliveryType,
		Status:       "sent",
		Metadata:     map[string]any{"resend_id": emailID, "source": req.Source},
	}
	if err := s.deliveries.AppendQuoteLog(ctx, entry); err != nil {
		// The email is already out; report the failure anyway.
		return storeError(ctx, s.logger, "quote_log.append", req.UserID, err)
	}
	return nil
}

// sendError keeps taxonomy errors and treats anything else from the mailer
// as a provider failure.
func sendError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Downstream(err)
}
