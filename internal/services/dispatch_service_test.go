package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"govalert/internal/domain/broadcast"
	"govalert/internal/domain/notification"
	"govalert/internal/domain/provider"
	"govalert/internal/domain/service"
	"govalert/internal/queue"
	"govalert/internal/registry"
	"govalert/internal/repository"
	govalert_errors "govalert/pkg/errors"
)

func TestDelayFor(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 10 * time.Second},
		{1, 60 * time.Second},
		{2, 300 * time.Second},
		{3, 3600 * time.Second},
		{4, 14400 * time.Second},
		{5, 14400 * time.Second},
		{99, 14400 * time.Second},
	}
	for _, tc := range cases {
		if got := DelayFor(tc.attempt); got != tc.want {
			t.Errorf("DelayFor(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

type dispatchEnv struct {
	notifications *fakeNotificationRepo
	broadcasts    *fakeBroadcastRepo
	events        *fakeEventRepo
	serviceRepo   *fakeServiceRepo
	providers     *fakeProviderRepo
	enqueuer      *fakeEnqueuer
	transmitter   *fakeTransmitter
	sms           *fakeSMSClient
	email         *fakeEmailClient
	dispatch      *DispatchService

	serviceID uuid.UUID
}

func newDispatchEnv() *dispatchEnv {
	env := &dispatchEnv{
		notifications: newFakeNotificationRepo(),
		broadcasts:    newFakeBroadcastRepo(),
		events:        &fakeEventRepo{},
		serviceRepo:   newFakeServiceRepo(),
		providers:     &fakeProviderRepo{},
		enqueuer:      &fakeEnqueuer{},
		transmitter:   &fakeTransmitter{},
		sms:           &fakeSMSClient{},
		email:         &fakeEmailClient{},
		serviceID:     uuid.New(),
	}
	env.serviceRepo.services[env.serviceID] = service.Service{
		ID:     env.serviceID,
		Name:   "Test Service",
		Active: true,
	}
	env.providers.providers = []provider.ProviderDetails{
		{ID: uuid.New(), Identifier: "twilio", Channel: notification.ChannelSMS, Priority: 10, Active: true, SupportsInternational: true},
		{ID: uuid.New(), Identifier: "sendgrid", Channel: notification.ChannelEmail, Priority: 10, Active: true},
	}

	repos := &repository.Repositories{
		Broadcasts:    env.broadcasts,
		Events:        env.events,
		Notifications: env.notifications,
		Providers:     env.providers,
		Services:      env.serviceRepo,
	}
	env.dispatch = NewDispatchService(
		repos,
		registry.New(env.providers, "GB"),
		env.transmitter,
		env.enqueuer,
		testLogger(),
		DispatchOptions{
			MaxRetries:          5,
			SimulatedRecipients: []string{"+447700900000"},
		},
	)
	env.dispatch.RegisterSMSClient("twilio", env.sms)
	env.dispatch.RegisterEmailClient("sendgrid", env.email)
	return env
}

func (e *dispatchEnv) seedNotification(channel notification.Channel, recipient string) notification.Notification {
	n := notification.Notification{
		ID:        uuid.New(),
		ServiceID: e.serviceID,
		Channel:   channel,
		Recipient: recipient,
		Content:   "hello",
		Status:    notification.StatusCreated,
	}
	e.notifications.byID[n.ID] = n
	return n
}

func TestSendToProviderStampsSMSBilling(t *testing.T) {
	env := newDispatchEnv()
	n := env.seedNotification(notification.ChannelSMS, "+447700900123")

	if err := env.dispatch.SendToProvider(context.Background(), n.ID, 0); err != nil {
		t.Fatalf("SendToProvider: %v", err)
	}
	if env.sms.calls != 1 {
		t.Fatalf("sms client called %d times, want 1", env.sms.calls)
	}

	stored := env.notifications.byID[n.ID]
	if stored.Status != notification.StatusSending {
		t.Errorf("status = %s, want sending", stored.Status)
	}
	if stored.BillableUnits != 1 {
		t.Errorf("billable units = %d, want 1", stored.BillableUnits)
	}
	if !stored.SentBy.Valid || stored.SentBy.String != "twilio" {
		t.Errorf("sent_by = %+v, want twilio", stored.SentBy)
	}
	if len(env.enqueuer.enqueued) != 0 {
		t.Errorf("enqueued %d tasks, want 0", len(env.enqueuer.enqueued))
	}
}

func TestSendToProviderEmailHasNoBillableUnits(t *testing.T) {
	env := newDispatchEnv()
	n := env.seedNotification(notification.ChannelEmail, "someone@example.gov.uk")

	if err := env.dispatch.SendToProvider(context.Background(), n.ID, 0); err != nil {
		t.Fatalf("SendToProvider: %v", err)
	}
	if env.email.calls != 1 {
		t.Fatalf("email client called %d times, want 1", env.email.calls)
	}
	stored := env.notifications.byID[n.ID]
	if stored.BillableUnits != 0 {
		t.Errorf("billable units = %d, want 0", stored.BillableUnits)
	}
}

func TestSendToProviderLeavesInFlightRowsAlone(t *testing.T) {
	env := newDispatchEnv()
	n := env.seedNotification(notification.ChannelSMS, "+447700900123")
	n.Status = notification.StatusSending
	env.notifications.byID[n.ID] = n

	if err := env.dispatch.SendToProvider(context.Background(), n.ID, 0); err != nil {
		t.Fatalf("SendToProvider: %v", err)
	}
	if env.sms.calls != 0 {
		t.Errorf("sms client called %d times, want 0", env.sms.calls)
	}
	if len(env.enqueuer.enqueued) != 0 {
		t.Errorf("enqueued %d tasks, want 0", len(env.enqueuer.enqueued))
	}
}

func TestSendToProviderRetryableErrorSchedulesBackoff(t *testing.T) {
	env := newDispatchEnv()
	env.sms.err = &govalert_errors.ProviderSendError{Provider: "twilio", Err: errors.New("timeout")}
	n := env.seedNotification(notification.ChannelSMS, "+447700900123")

	if err := env.dispatch.SendToProvider(context.Background(), n.ID, 2); err != nil {
		t.Fatalf("SendToProvider: %v", err)
	}
	if len(env.enqueuer.enqueued) != 1 {
		t.Fatalf("enqueued %d tasks, want 1", len(env.enqueuer.enqueued))
	}
	got := env.enqueuer.enqueued[0]
	if got.task.Kind != queue.KindDeliverSMS {
		t.Errorf("task kind = %s, want %s", got.task.Kind, queue.KindDeliverSMS)
	}
	if got.task.Attempt != 3 {
		t.Errorf("task attempt = %d, want 3", got.task.Attempt)
	}
	if got.delay != 300*time.Second {
		t.Errorf("delay = %v, want 300s", got.delay)
	}
	if env.notifications.byID[n.ID].Status != notification.StatusCreated {
		t.Errorf("status = %s, want created until a send succeeds", env.notifications.byID[n.ID].Status)
	}
}

func TestSendToProviderExhaustedRetriesFail(t *testing.T) {
	env := newDispatchEnv()
	env.sms.err = &govalert_errors.ProviderSendError{Provider: "twilio", Err: errors.New("timeout")}
	n := env.seedNotification(notification.ChannelSMS, "+447700900123")

	if err := env.dispatch.SendToProvider(context.Background(), n.ID, 5); err != nil {
		t.Fatalf("SendToProvider: %v", err)
	}
	if len(env.enqueuer.enqueued) != 0 {
		t.Fatalf("enqueued %d tasks after exhaustion, want 0", len(env.enqueuer.enqueued))
	}
	if env.notifications.byID[n.ID].Status != notification.StatusTechnicalFailure {
		t.Errorf("status = %s, want technical-failure", env.notifications.byID[n.ID].Status)
	}
}

func TestSendToProviderFatalErrorFailsImmediately(t *testing.T) {
	env := newDispatchEnv()
	env.sms.err = errors.New("malformed request")
	n := env.seedNotification(notification.ChannelSMS, "+447700900123")

	if err := env.dispatch.SendToProvider(context.Background(), n.ID, 0); err != nil {
		t.Fatalf("SendToProvider: %v", err)
	}
	if len(env.enqueuer.enqueued) != 0 {
		t.Fatalf("enqueued %d tasks for a fatal error, want 0", len(env.enqueuer.enqueued))
	}
	if env.notifications.byID[n.ID].Status != notification.StatusTechnicalFailure {
		t.Errorf("status = %s, want technical-failure", env.notifications.byID[n.ID].Status)
	}
}

func TestSendToProviderEmptyRegistryFollowsRetrySchedule(t *testing.T) {
	env := newDispatchEnv()
	env.providers.providers = nil
	n := env.seedNotification(notification.ChannelSMS, "+447700900123")

	if err := env.dispatch.SendToProvider(context.Background(), n.ID, 0); err != nil {
		t.Fatalf("SendToProvider: %v", err)
	}
	if env.sms.calls != 0 {
		t.Errorf("sms client called %d times, want 0", env.sms.calls)
	}
	if len(env.enqueuer.enqueued) != 1 {
		t.Fatalf("enqueued %d tasks, want 1", len(env.enqueuer.enqueued))
	}
	if env.enqueuer.enqueued[0].delay != 10*time.Second {
		t.Errorf("delay = %v, want 10s", env.enqueuer.enqueued[0].delay)
	}
}

func TestResearchModeServiceSimulatesDelivery(t *testing.T) {
	env := newDispatchEnv()
	svc := env.serviceRepo.services[env.serviceID]
	svc.ResearchMode = true
	env.serviceRepo.services[env.serviceID] = svc
	n := env.seedNotification(notification.ChannelSMS, "+447700900123")

	if err := env.dispatch.SendToProvider(context.Background(), n.ID, 0); err != nil {
		t.Fatalf("SendToProvider: %v", err)
	}
	if env.sms.calls != 0 {
		t.Errorf("sms client called %d times, want 0", env.sms.calls)
	}
	stored := env.notifications.byID[n.ID]
	if stored.Status != notification.StatusSending {
		t.Errorf("status = %s, want sending", stored.Status)
	}
	if stored.BillableUnits != 0 {
		t.Errorf("billable units = %d, want 0 for a simulated send", stored.BillableUnits)
	}
	if len(env.enqueuer.enqueued) != 1 || env.enqueuer.enqueued[0].task.Kind != queue.KindSimulateResponse {
		t.Fatalf("expected a single simulate_response task, got %+v", env.enqueuer.enqueued)
	}
}

func TestSimulatedRecipientNeverReachesProvider(t *testing.T) {
	env := newDispatchEnv()
	n := env.seedNotification(notification.ChannelSMS, "+447700900000")

	if err := env.dispatch.SendToProvider(context.Background(), n.ID, 0); err != nil {
		t.Fatalf("SendToProvider: %v", err)
	}
	if env.sms.calls != 0 {
		t.Errorf("sms client called %d times, want 0", env.sms.calls)
	}
	if env.notifications.byID[n.ID].BillableUnits != 0 {
		t.Errorf("billable units = %d, want 0", env.notifications.byID[n.ID].BillableUnits)
	}
}

func TestSimulateResponseDeliversSendingNotification(t *testing.T) {
	env := newDispatchEnv()
	n := env.seedNotification(notification.ChannelSMS, "+447700900000")
	n.Status = notification.StatusSending
	env.notifications.byID[n.ID] = n

	err := env.dispatch.SimulateResponse(context.Background(), SimulatePayload{
		Provider:       "twilio",
		NotificationID: n.ID,
		Recipient:      n.Recipient,
	})
	if err != nil {
		t.Fatalf("SimulateResponse: %v", err)
	}
	if env.notifications.byID[n.ID].Status != notification.StatusDelivered {
		t.Errorf("status = %s, want delivered", env.notifications.byID[n.ID].Status)
	}
}

func TestSimulateResponseIgnoresNonSendingNotification(t *testing.T) {
	env := newDispatchEnv()
	n := env.seedNotification(notification.ChannelSMS, "+447700900000")

	err := env.dispatch.SimulateResponse(context.Background(), SimulatePayload{NotificationID: n.ID})
	if err != nil {
		t.Fatalf("SimulateResponse: %v", err)
	}
	if env.notifications.byID[n.ID].Status != notification.StatusCreated {
		t.Errorf("status = %s, want created left untouched", env.notifications.byID[n.ID].Status)
	}
}

func (e *dispatchEnv) seedBroadcastEvent(status broadcast.Status) broadcast.BroadcastEvent {
	b := broadcast.BroadcastMessage{
		ID:        uuid.New(),
		ServiceID: e.serviceID,
		Content:   "flooding expected",
		Status:    status,
	}
	e.broadcasts.byID[b.ID] = b

	event := broadcast.BroadcastEvent{
		ID:                 uuid.New(),
		BroadcastMessageID: b.ID,
		ServiceID:          e.serviceID,
		MessageType:        broadcast.MessageTypeAlert,
		TransmittedContent: broadcast.TransmittedContent{Body: b.Content},
		SentAt:             time.Now().UTC(),
	}
	e.events.events = append(e.events.events, event)
	return event
}

func TestTransmitBroadcastEventRetriesTransportFailures(t *testing.T) {
	env := newDispatchEnv()
	env.transmitter.err = &govalert_errors.ProviderSendError{Provider: "broadcast-transport", Err: errors.New("broker down")}
	event := env.seedBroadcastEvent(broadcast.StatusBroadcasting)

	if err := env.dispatch.TransmitBroadcastEvent(context.Background(), event.ID, 0); err != nil {
		t.Fatalf("TransmitBroadcastEvent: %v", err)
	}
	if len(env.enqueuer.enqueued) != 1 {
		t.Fatalf("enqueued %d tasks, want 1", len(env.enqueuer.enqueued))
	}
	got := env.enqueuer.enqueued[0]
	if got.task.Kind != queue.KindTransmitBroadcastEvent {
		t.Errorf("task kind = %s, want %s", got.task.Kind, queue.KindTransmitBroadcastEvent)
	}
	if got.task.Attempt != 1 {
		t.Errorf("task attempt = %d, want 1", got.task.Attempt)
	}
	if got.delay != 10*time.Second {
		t.Errorf("delay = %v, want 10s", got.delay)
	}
}

func TestTransmitBroadcastEventExhaustionFailsBroadcast(t *testing.T) {
	env := newDispatchEnv()
	env.transmitter.err = &govalert_errors.ProviderSendError{Provider: "broadcast-transport", Err: errors.New("broker down")}
	event := env.seedBroadcastEvent(broadcast.StatusBroadcasting)

	if err := env.dispatch.TransmitBroadcastEvent(context.Background(), event.ID, 5); err != nil {
		t.Fatalf("TransmitBroadcastEvent: %v", err)
	}
	if len(env.enqueuer.enqueued) != 0 {
		t.Fatalf("enqueued %d tasks after exhaustion, want 0", len(env.enqueuer.enqueued))
	}
	if env.broadcasts.byID[event.BroadcastMessageID].Status != broadcast.StatusTechnicalFailure {
		t.Errorf("broadcast status = %s, want technical-failure", env.broadcasts.byID[event.BroadcastMessageID].Status)
	}
}

func TestTransmitBroadcastEventExhaustionLeavesTerminalBroadcast(t *testing.T) {
	env := newDispatchEnv()
	env.transmitter.err = &govalert_errors.ProviderSendError{Provider: "broadcast-transport", Err: errors.New("broker down")}
	event := env.seedBroadcastEvent(broadcast.StatusCancelled)

	if err := env.dispatch.TransmitBroadcastEvent(context.Background(), event.ID, 5); err != nil {
		t.Fatalf("TransmitBroadcastEvent: %v", err)
	}
	if env.broadcasts.byID[event.BroadcastMessageID].Status != broadcast.StatusCancelled {
		t.Errorf("broadcast status = %s, want cancelled left untouched", env.broadcasts.byID[event.BroadcastMessageID].Status)
	}
}

func TestSweepStuckSending(t *testing.T) {
	env := newDispatchEnv()
	stuck := env.seedNotification(notification.ChannelSMS, "+447700900123")
	stuck.Status = notification.StatusSending
	stuck.SentAt.Time = time.Now().UTC().Add(-5 * time.Hour)
	stuck.SentAt.Valid = true
	env.notifications.byID[stuck.ID] = stuck

	recent := env.seedNotification(notification.ChannelSMS, "+447700900124")
	recent.Status = notification.StatusSending
	recent.SentAt.Time = time.Now().UTC().Add(-time.Minute)
	recent.SentAt.Valid = true
	env.notifications.byID[recent.ID] = recent

	swept, err := env.dispatch.SweepStuckSending(context.Background(), 4*time.Hour)
	if err != nil {
		t.Fatalf("SweepStuckSending: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept %d notifications, want 1", swept)
	}
	if env.notifications.byID[stuck.ID].Status != notification.StatusTechnicalFailure {
		t.Errorf("stuck notification status = %s, want technical-failure", env.notifications.byID[stuck.ID].Status)
	}
	if env.notifications.byID[recent.ID].Status != notification.StatusSending {
		t.Errorf("recent notification status = %s, want sending left alone", env.notifications.byID[recent.ID].Status)
	}
}
