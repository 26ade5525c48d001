package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/sakif/mos-mood/internal/apperror"
)

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client *resend.Client
}

func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey)}
}

// Send implements Sender. Provider errors are downstream errors carrying the
// provider's message.
func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	resp, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return "", apperror.Downstream(fmt.Errorf("resend: %w", err))
	}
	if resp == nil {
		return "", nil
	}
	return resp.Id, nil
}
