package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"govalert/internal/clients"
	"govalert/internal/domain/broadcast"
	"govalert/internal/domain/notification"
	"govalert/internal/domain/provider"
	"govalert/internal/domain/service"
	"govalert/internal/queue"
	govalert_errors "govalert/pkg/errors"
	"govalert/pkg/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

type fakeBroadcastRepo struct {
	byID map[uuid.UUID]broadcast.BroadcastMessage
}

func newFakeBroadcastRepo() *fakeBroadcastRepo {
	return &fakeBroadcastRepo{byID: make(map[uuid.UUID]broadcast.BroadcastMessage)}
}

func (r *fakeBroadcastRepo) Create(ctx context.Context, b *broadcast.BroadcastMessage) error {
	r.byID[b.ID] = *b
	return nil
}

func (r *fakeBroadcastRepo) GetByIDAndServiceID(ctx context.Context, id, serviceID uuid.UUID) (broadcast.BroadcastMessage, error) {
	b, ok := r.byID[id]
	if !ok || b.ServiceID != serviceID {
		return broadcast.BroadcastMessage{}, govalert_errors.ErrNotFound
	}
	return b, nil
}

func (r *fakeBroadcastRepo) GetForService(ctx context.Context, serviceID uuid.UUID) ([]broadcast.BroadcastMessage, error) {
	var out []broadcast.BroadcastMessage
	for _, b := range r.byID {
		if b.ServiceID == serviceID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBroadcastRepo) Update(ctx context.Context, b broadcast.BroadcastMessage) error {
	if _, ok := r.byID[b.ID]; !ok {
		return govalert_errors.ErrNotFound
	}
	r.byID[b.ID] = b
	return nil
}

func (r *fakeBroadcastRepo) UpdateStatus(ctx context.Context, b broadcast.BroadcastMessage, from broadcast.Status) error {
	stored, ok := r.byID[b.ID]
	if !ok {
		return govalert_errors.ErrNotFound
	}
	if stored.Status != from {
		return govalert_errors.ErrConflict
	}
	r.byID[b.ID] = b
	return nil
}

type fakeEventRepo struct {
	events []broadcast.BroadcastEvent
}

func (r *fakeEventRepo) Create(ctx context.Context, e *broadcast.BroadcastEvent) error {
	r.events = append(r.events, *e)
	return nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id uuid.UUID) (broadcast.BroadcastEvent, error) {
	for _, e := range r.events {
		if e.ID == id {
			return e, nil
		}
	}
	return broadcast.BroadcastEvent{}, govalert_errors.ErrNotFound
}

func (r *fakeEventRepo) GetForBroadcastMessage(ctx context.Context, broadcastMessageID uuid.UUID) ([]broadcast.BroadcastEvent, error) {
	var out []broadcast.BroadcastEvent
	for _, e := range r.events {
		if e.BroadcastMessageID == broadcastMessageID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeNotificationRepo struct {
	byID map[uuid.UUID]notification.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{byID: make(map[uuid.UUID]notification.Notification)}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	r.byID[n.ID] = *n
	return nil
}

func (r *fakeNotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (notification.Notification, error) {
	n, ok := r.byID[id]
	if !ok {
		return notification.Notification{}, govalert_errors.ErrNotFound
	}
	return n, nil
}

func (r *fakeNotificationRepo) Update(ctx context.Context, n notification.Notification) error {
	if _, ok := r.byID[n.ID]; !ok {
		return govalert_errors.ErrNotFound
	}
	r.byID[n.ID] = n
	return nil
}

func (r *fakeNotificationRepo) MarkSending(ctx context.Context, id uuid.UUID, sentBy string, sentAt time.Time, billableUnits int) error {
	n, ok := r.byID[id]
	if !ok {
		return govalert_errors.ErrNotFound
	}
	if n.Status != notification.StatusCreated {
		return govalert_errors.ErrConflict
	}
	n.Status = notification.StatusSending
	n.SentBy.String = sentBy
	n.SentBy.Valid = true
	n.SentAt.Time = sentAt
	n.SentAt.Valid = true
	n.BillableUnits = billableUnits
	r.byID[id] = n
	return nil
}

func (r *fakeNotificationRepo) SetTechnicalFailure(ctx context.Context, id uuid.UUID) error {
	n, ok := r.byID[id]
	if !ok {
		return govalert_errors.ErrNotFound
	}
	n.Status = notification.StatusTechnicalFailure
	r.byID[id] = n
	return nil
}

func (r *fakeNotificationRepo) SweepStuckSending(ctx context.Context, cutoff time.Time) (int64, error) {
	var swept int64
	for id, n := range r.byID {
		if n.Status == notification.StatusSending && n.SentAt.Valid && n.SentAt.Time.Before(cutoff) {
			n.Status = notification.StatusTechnicalFailure
			r.byID[id] = n
			swept++
		}
	}
	return swept, nil
}

type fakeProviderRepo struct {
	providers []provider.ProviderDetails
}

func (r *fakeProviderRepo) GetByChannel(ctx context.Context, channel notification.Channel) ([]provider.ProviderDetails, error) {
	var out []provider.ProviderDetails
	for _, p := range r.providers {
		if p.Channel == channel {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProviderRepo) GetByIdentifier(ctx context.Context, identifier string) (provider.ProviderDetails, error) {
	for _, p := range r.providers {
		if p.Identifier == identifier {
			return p, nil
		}
	}
	return provider.ProviderDetails{}, govalert_errors.ErrNotFound
}

func (r *fakeProviderRepo) Update(ctx context.Context, p provider.ProviderDetails) error {
	for i := range r.providers {
		if r.providers[i].Identifier == p.Identifier {
			r.providers[i] = p
			return nil
		}
	}
	return govalert_errors.ErrNotFound
}

func (r *fakeProviderRepo) GetAll(ctx context.Context) ([]provider.ProviderDetails, error) {
	return r.providers, nil
}

type memberKey struct {
	serviceID uuid.UUID
	userID    uuid.UUID
}

type fakeServiceRepo struct {
	services map[uuid.UUID]service.Service
	users    map[uuid.UUID]service.User
	members  map[memberKey]bool
}

func newFakeServiceRepo() *fakeServiceRepo {
	return &fakeServiceRepo{
		services: make(map[uuid.UUID]service.Service),
		users:    make(map[uuid.UUID]service.User),
		members:  make(map[memberKey]bool),
	}
}

func (r *fakeServiceRepo) GetByID(ctx context.Context, id uuid.UUID) (service.Service, error) {
	svc, ok := r.services[id]
	if !ok {
		return service.Service{}, govalert_errors.ErrNotFound
	}
	return svc, nil
}

func (r *fakeServiceRepo) GetUserByID(ctx context.Context, id uuid.UUID) (service.User, error) {
	u, ok := r.users[id]
	if !ok {
		return service.User{}, govalert_errors.ErrNotFound
	}
	return u, nil
}

func (r *fakeServiceRepo) IsMember(ctx context.Context, serviceID, userID uuid.UUID) (bool, error) {
	return r.members[memberKey{serviceID, userID}], nil
}

type enqueued struct {
	task  queue.Task
	delay time.Duration
}

type fakeEnqueuer struct {
	enqueued []enqueued
}

func (e *fakeEnqueuer) Enqueue(ctx context.Context, task queue.Task, delay time.Duration) error {
	e.enqueued = append(e.enqueued, enqueued{task: task, delay: delay})
	return nil
}

type fakeTransmitter struct {
	err   error
	calls int
}

func (t *fakeTransmitter) Transmit(ctx context.Context, event broadcast.BroadcastEvent) error {
	t.calls++
	return t.err
}

type fakeSMSClient struct {
	err   error
	calls int
}

func (c *fakeSMSClient) Name() string { return "fake-sms" }

func (c *fakeSMSClient) SendSMS(ctx context.Context, req clients.SMSRequest) error {
	c.calls++
	return c.err
}

type fakeEmailClient struct {
	err   error
	calls int
}

func (c *fakeEmailClient) Name() string { return "fake-email" }

func (c *fakeEmailClient) SendEmail(ctx context.Context, req clients.EmailRequest) error {
	c.calls++
	return c.err
}
