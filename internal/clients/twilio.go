package clients

import (
	"context"
	"errors"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	govalert_errors "govalert/pkg/errors"
)

// TwilioSMSClient sends SMS through the Twilio REST API.
type TwilioSMSClient struct {
	name       string
	fromNumber string
	client     *twilio.RestClient
}

func NewTwilioSMSClient(name, accountSID, authToken, fromNumber string) *TwilioSMSClient {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSMSClient{
		name:       name,
		fromNumber: fromNumber,
		client:     client,
	}
}

func (t *TwilioSMSClient) Name() string {
	return t.name
}

func (t *TwilioSMSClient) SendSMS(ctx context.Context, req SMSRequest) error {
	params := &api.CreateMessageParams{}
	params.SetBody(req.Content)
	params.SetTo(req.To)
	if req.Sender != "" {
		params.SetFrom(req.Sender)
	} else {
		params.SetFrom(t.fromNumber)
	}

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return &govalert_errors.ProviderSendError{Provider: t.name, Err: err}
	}
	if resp.ErrorCode != nil {
		return &govalert_errors.ProviderSendError{
			Provider: t.name,
			Err:      errors.New(deref(resp.ErrorMessage)),
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return "unknown provider error"
	}
	return *s
}
