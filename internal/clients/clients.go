package clients

import "context"

// SMSRequest carries everything a downstream SMS aggregator needs for a
// single send.
type SMSRequest struct {
	To            string
	Content       string
	Reference     string
	Sender        string
	International bool
}

// EmailRequest carries a single outbound email.
type EmailRequest struct {
	To        string
	Subject   string
	Body      string
	Reference string
	ReplyTo   string
}

// SMSClient is the send capability a configured SMS provider implements.
// Implementations report transient failures as *govalert_errors.ProviderSendError
// so the dispatch pipeline can tell retryable from fatal.
type SMSClient interface {
	Name() string
	SendSMS(ctx context.Context, req SMSRequest) error
}

// EmailClient is the send capability a configured email provider implements.
type EmailClient interface {
	Name() string
	SendEmail(ctx context.Context, req EmailRequest) error
}
