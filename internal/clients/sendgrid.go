package clients

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	govalert_errors "govalert/pkg/errors"
)

// SendgridEmailClient relays email through SendGrid.
type SendgridEmailClient struct {
	name      string
	fromEmail string
	client    *sendgrid.Client
}

func NewSendgridEmailClient(name, apiKey, fromEmail string) *SendgridEmailClient {
	return &SendgridEmailClient{
		name:      name,
		fromEmail: fromEmail,
		client:    sendgrid.NewSendClient(apiKey),
	}
}

func (s *SendgridEmailClient) Name() string {
	return s.name
}

func (s *SendgridEmailClient) SendEmail(ctx context.Context, req EmailRequest) error {
	from := mail.NewEmail("GovAlert", s.fromEmail)
	to := mail.NewEmail("", req.To)
	message := mail.NewSingleEmail(from, req.Subject, to, req.Body, req.Body)
	if req.ReplyTo != "" {
		message.SetReplyTo(mail.NewEmail("", req.ReplyTo))
	}

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return &govalert_errors.ProviderSendError{Provider: s.name, Err: err}
	}
	if resp.StatusCode >= 400 {
		return &govalert_errors.ProviderSendError{
			Provider: s.name,
			Err:      fmt.Errorf("sendgrid returned status %d", resp.StatusCode),
		}
	}
	return nil
}
