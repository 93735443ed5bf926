package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"govalert/internal/clients"
	"govalert/internal/domain/broadcast"
	"govalert/internal/domain/notification"
	"govalert/internal/metrics"
	"govalert/internal/queue"
	"govalert/internal/registry"
	"govalert/internal/repository"
	"govalert/internal/transmit"
	govalert_errors "govalert/pkg/errors"
	"govalert/pkg/logger"
)

// retryDelays maps the zero-based retry attempt index to the delay before
// the next attempt. Attempts past the table get the fixed ceiling.
var retryDelays = map[int]time.Duration{
	0: 10 * time.Second,
	1: 60 * time.Second,
	2: 300 * time.Second,
	3: 3600 * time.Second,
}

const retryDelayCeiling = 14400 * time.Second

// DelayFor returns the backoff delay for a retry attempt. It is a pure
// function independent of the scheduler so the schedule can be tested and
// reused by every dispatch path.
func DelayFor(attempt int) time.Duration {
	if d, ok := retryDelays[attempt]; ok && attempt >= 0 {
		return d
	}
	return retryDelayCeiling
}

// DeliverPayload is the queue payload for sms/email dispatch.
type DeliverPayload struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

// SimulatePayload routes a would-be provider response through the response
// simulation path for research-mode and simulated recipients.
type SimulatePayload struct {
	Provider       string    `json:"provider"`
	NotificationID uuid.UUID `json:"notification_id"`
	Recipient      string    `json:"recipient"`
}

// DispatchService turns created notifications and appended broadcast events
// into provider calls, applying the retry/backoff contract and escalating
// exhausted retries to technical-failure.
type DispatchService struct {
	notifications repository.NotificationRepository
	broadcasts    repository.BroadcastRepository
	events        repository.EventRepository
	services      repository.ServiceRepository
	registry      *registry.Registry
	transmitter   transmit.Transmitter
	enqueuer      queue.Enqueuer
	log           *logger.Logger

	smsClients   map[string]clients.SMSClient
	emailClients map[string]clients.EmailClient

	maxRetries          int
	simulatedRecipients map[string]bool
	homeRegion          string
	clock               func() time.Time
}

type DispatchOptions struct {
	MaxRetries          int
	SimulatedRecipients []string
}

func NewDispatchService(
	repos *repository.Repositories,
	reg *registry.Registry,
	transmitter transmit.Transmitter,
	enqueuer queue.Enqueuer,
	log *logger.Logger,
	opts DispatchOptions,
) *DispatchService {
	simulated := make(map[string]bool, len(opts.SimulatedRecipients))
	for _, r := range opts.SimulatedRecipients {
		simulated[r] = true
	}
	return &DispatchService{
		notifications:       repos.Notifications,
		broadcasts:          repos.Broadcasts,
		events:              repos.Events,
		services:            repos.Services,
		registry:            reg,
		transmitter:         transmitter,
		enqueuer:            enqueuer,
		log:                 log,
		smsClients:          make(map[string]clients.SMSClient),
		emailClients:        make(map[string]clients.EmailClient),
		maxRetries:          opts.MaxRetries,
		simulatedRecipients: simulated,
		clock:               time.Now,
	}
}

// RegisterSMSClient binds a send handle to a provider identifier from the
// registry.
func (s *DispatchService) RegisterSMSClient(identifier string, c clients.SMSClient) {
	s.smsClients[identifier] = c
}

func (s *DispatchService) RegisterEmailClient(identifier string, c clients.EmailClient) {
	s.emailClients[identifier] = c
}

// SendToProvider executes one dispatch attempt for a notification. Anything
// not in "created" status is already in flight or terminal and is left
// untouched.
func (s *DispatchService) SendToProvider(ctx context.Context, notificationID uuid.UUID, attempt int) error {
	n, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.Status != notification.StatusCreated {
		return nil
	}

	svc, err := s.services.GetByID(ctx, n.ServiceID)
	if err != nil {
		return err
	}

	chosen, err := s.registry.SelectProvider(ctx, n.Channel, n.Recipient)
	if err != nil {
		if errors.Is(err, govalert_errors.ErrNoProviderAvailable) {
			// The registry can change between attempts, so this still
			// follows the retry schedule rather than failing outright.
			return s.scheduleRetry(ctx, n, attempt, "no_provider")
		}
		return err
	}

	if svc.ResearchMode || s.simulatedRecipients[n.Recipient] {
		return s.simulateSend(ctx, n, chosen.Identifier)
	}

	timer := prometheus.NewTimer(metrics.ProviderSendDuration.WithLabelValues(chosen.Identifier, string(n.Channel)))
	sendErr := s.callProvider(ctx, n, chosen.Identifier, svc.SMSSender.String, svc.ReplyToEmail.String)
	timer.ObserveDuration()

	if sendErr != nil {
		if govalert_errors.IsRetryable(sendErr) {
			metrics.NotificationsAttemptedTotal.WithLabelValues(string(n.Channel), "retryable_error", chosen.Identifier).Inc()
			s.log.Warnf("notification %s attempt %d via %s failed: %v", n.ID, attempt, chosen.Identifier, sendErr)
			return s.scheduleRetry(ctx, n, attempt, "provider_error")
		}
		metrics.NotificationsAttemptedTotal.WithLabelValues(string(n.Channel), "fatal_error", chosen.Identifier).Inc()
		s.log.Errorf("notification %s failed fatally: %v", n.ID, sendErr)
		return s.failNotification(ctx, n)
	}

	billable := 0
	if n.Channel == notification.ChannelSMS {
		billable = 1
	}
	if err := s.notifications.MarkSending(ctx, n.ID, chosen.Identifier, s.clock().UTC(), billable); err != nil {
		if errors.Is(err, govalert_errors.ErrConflict) {
			// Lost the cooperative lock after a successful send; the other
			// attempt already stamped the row.
			return nil
		}
		return err
	}
	metrics.NotificationsAttemptedTotal.WithLabelValues(string(n.Channel), "sent", chosen.Identifier).Inc()
	return nil
}

// simulateSend skips the real provider entirely: the notification is stamped
// as sending with zero billable units and the would-be provider response is
// routed through the response simulation task.
func (s *DispatchService) simulateSend(ctx context.Context, n notification.Notification, providerIdentifier string) error {
	if err := s.notifications.MarkSending(ctx, n.ID, providerIdentifier, s.clock().UTC(), 0); err != nil {
		if errors.Is(err, govalert_errors.ErrConflict) {
			return nil
		}
		return err
	}

	payload, err := json.Marshal(SimulatePayload{
		Provider:       providerIdentifier,
		NotificationID: n.ID,
		Recipient:      n.Recipient,
	})
	if err != nil {
		return err
	}
	metrics.NotificationsAttemptedTotal.WithLabelValues(string(n.Channel), "simulated", providerIdentifier).Inc()
	return s.enqueuer.Enqueue(ctx, queue.Task{
		Kind:    queue.KindSimulateResponse,
		Payload: payload,
	}, 0)
}

func (s *DispatchService) callProvider(ctx context.Context, n notification.Notification, identifier, smsSender, replyTo string) error {
	switch n.Channel {
	case notification.ChannelSMS:
		client, ok := s.smsClients[identifier]
		if !ok {
			// The registry row exists but no handle is configured in this
			// process; treat like an empty registry so a config fix can
			// land before retries exhaust.
			return govalert_errors.ErrNoProviderAvailable
		}
		return client.SendSMS(ctx, clients.SMSRequest{
			To:        n.Recipient,
			Content:   n.Content,
			Reference: n.ID.String(),
			Sender:    smsSender,
		})
	case notification.ChannelEmail:
		client, ok := s.emailClients[identifier]
		if !ok {
			return govalert_errors.ErrNoProviderAvailable
		}
		return client.SendEmail(ctx, clients.EmailRequest{
			To:        n.Recipient,
			Subject:   n.Reference.String,
			Body:      n.Content,
			Reference: n.ID.String(),
			ReplyTo:   replyTo,
		})
	default:
		return govalert_errors.ErrInvalidInput
	}
}

// scheduleRetry re-enqueues the dispatch task with the backoff delay, or
// escalates to technical-failure once the retry count is exhausted.
func (s *DispatchService) scheduleRetry(ctx context.Context, n notification.Notification, attempt int, reason string) error {
	next := attempt + 1
	if next > s.maxRetries {
		s.log.Errorf("notification %s exhausted %d retries, marking technical-failure", n.ID, s.maxRetries)
		return s.failNotification(ctx, n)
	}

	kind := queue.KindDeliverSMS
	if n.Channel == notification.ChannelEmail {
		kind = queue.KindDeliverEmail
	}
	payload, err := json.Marshal(DeliverPayload{NotificationID: n.ID})
	if err != nil {
		return err
	}
	metrics.NotificationRetriesTotal.WithLabelValues(string(n.Channel), reason).Inc()
	return s.enqueuer.Enqueue(ctx, queue.Task{
		Kind:    kind,
		Payload: payload,
		Attempt: next,
	}, DelayFor(attempt))
}

func (s *DispatchService) failNotification(ctx context.Context, n notification.Notification) error {
	metrics.NotificationTechnicalFailuresTotal.WithLabelValues(string(n.Channel)).Inc()
	return s.notifications.SetTechnicalFailure(ctx, n.ID)
}

// TransmitBroadcastEvent re-reads the event by id and hands it to the
// alerting transport, under the same retry contract as unicast dispatch.
// Exhaustion drives the parent broadcast to technical-failure.
func (s *DispatchService) TransmitBroadcastEvent(ctx context.Context, eventID uuid.UUID, attempt int) error {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}

	err = s.transmitter.Transmit(ctx, event)
	if err == nil {
		return nil
	}
	if !govalert_errors.IsRetryable(err) {
		return err
	}

	next := attempt + 1
	if next > s.maxRetries {
		s.log.Errorf("broadcast event %s exhausted %d retries: %v", event.ID, s.maxRetries, err)
		return s.failBroadcast(ctx, event)
	}

	payload, merr := json.Marshal(TransmitPayload{BroadcastEventID: event.ID})
	if merr != nil {
		return merr
	}
	metrics.NotificationRetriesTotal.WithLabelValues("broadcast", "transport_error").Inc()
	return s.enqueuer.Enqueue(ctx, queue.Task{
		Kind:    queue.KindTransmitBroadcastEvent,
		Payload: payload,
		Attempt: next,
	}, DelayFor(attempt))
}

func (s *DispatchService) failBroadcast(ctx context.Context, event broadcast.BroadcastEvent) error {
	b, err := s.broadcasts.GetByIDAndServiceID(ctx, event.BroadcastMessageID, event.ServiceID)
	if err != nil {
		return err
	}
	if !broadcast.CanTransition(b.Status, broadcast.StatusTechnicalFailure) {
		// Cancel events belong to already-terminal broadcasts; nothing
		// further to record on the message itself.
		s.log.Errorf("broadcast %s in status %s after transport exhaustion for event %s", b.ID, b.Status, event.ID)
		return nil
	}
	from := b.Status
	b.Status = broadcast.StatusTechnicalFailure
	return s.broadcasts.UpdateStatus(ctx, b, from)
}

// SimulateResponse completes the simulated delivery loop: the notification
// moves from sending to delivered without any provider statistics.
func (s *DispatchService) SimulateResponse(ctx context.Context, p SimulatePayload) error {
	n, err := s.notifications.GetByID(ctx, p.NotificationID)
	if err != nil {
		return err
	}
	if n.Status != notification.StatusSending {
		return nil
	}
	n.Status = notification.StatusDelivered
	s.log.Infof("simulated %s response for notification %s via %s", n.Channel, n.ID, p.Provider)
	return s.notifications.Update(ctx, n)
}

// SweepStuckSending fails notifications that sat in sending longer than the
// timeout window. Driven by the worker's cron janitor.
func (s *DispatchService) SweepStuckSending(ctx context.Context, timeout time.Duration) (int64, error) {
	cutoff := s.clock().UTC().Add(-timeout)
	swept, err := s.notifications.SweepStuckSending(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		metrics.JanitorSweptTotal.Add(float64(swept))
		s.log.Warnf("janitor swept %d notifications stuck in sending", swept)
	}
	return swept, nil
}
