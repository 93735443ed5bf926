package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"govalert/internal/domain/notification"
	"govalert/internal/domain/service"
	"govalert/internal/queue"
	"govalert/internal/repository"
	govalert_errors "govalert/pkg/errors"
)

type notificationEnv struct {
	notifications *fakeNotificationRepo
	serviceRepo   *fakeServiceRepo
	enqueuer      *fakeEnqueuer
	svc           *NotificationService

	serviceID uuid.UUID
}

func newNotificationEnv() *notificationEnv {
	env := &notificationEnv{
		notifications: newFakeNotificationRepo(),
		serviceRepo:   newFakeServiceRepo(),
		enqueuer:      &fakeEnqueuer{},
		serviceID:     uuid.New(),
	}
	env.serviceRepo.services[env.serviceID] = service.Service{
		ID:     env.serviceID,
		Name:   "Test Service",
		Active: true,
	}
	repos := &repository.Repositories{
		Notifications: env.notifications,
		Services:      env.serviceRepo,
	}
	env.svc = NewNotificationService(repos, env.enqueuer, testLogger())
	return env
}

func TestSendCreatesAndEnqueues(t *testing.T) {
	env := newNotificationEnv()

	n, err := env.svc.Send(context.Background(), SendParams{
		ServiceID: env.serviceID,
		Channel:   notification.ChannelSMS,
		Recipient: "+447700900123",
		Content:   "your code is 1234",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n.Status != notification.StatusCreated {
		t.Errorf("status = %s, want created", n.Status)
	}
	if len(env.enqueuer.enqueued) != 1 {
		t.Fatalf("enqueued %d tasks, want 1", len(env.enqueuer.enqueued))
	}
	got := env.enqueuer.enqueued[0]
	if got.task.Kind != queue.KindDeliverSMS {
		t.Errorf("task kind = %s, want %s", got.task.Kind, queue.KindDeliverSMS)
	}
	if got.delay != 0 {
		t.Errorf("delay = %v, want immediate dispatch", got.delay)
	}
}

func TestSendEmailUsesEmailKind(t *testing.T) {
	env := newNotificationEnv()

	_, err := env.svc.Send(context.Background(), SendParams{
		ServiceID: env.serviceID,
		Channel:   notification.ChannelEmail,
		Recipient: "someone@example.gov.uk",
		Content:   "hello",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if env.enqueuer.enqueued[0].task.Kind != queue.KindDeliverEmail {
		t.Errorf("task kind = %s, want %s", env.enqueuer.enqueued[0].task.Kind, queue.KindDeliverEmail)
	}
}

func TestSendRejectsInactiveService(t *testing.T) {
	env := newNotificationEnv()
	svc := env.serviceRepo.services[env.serviceID]
	svc.Active = false
	env.serviceRepo.services[env.serviceID] = svc

	_, err := env.svc.Send(context.Background(), SendParams{
		ServiceID: env.serviceID,
		Channel:   notification.ChannelSMS,
		Recipient: "+447700900123",
		Content:   "hello",
	})
	if !errors.Is(err, govalert_errors.ErrServiceInactive) {
		t.Errorf("Send() error = %v, want ErrServiceInactive", err)
	}
	if len(env.enqueuer.enqueued) != 0 {
		t.Errorf("enqueued %d tasks for a rejected send, want 0", len(env.enqueuer.enqueued))
	}
}

func TestSendValidatesInput(t *testing.T) {
	env := newNotificationEnv()
	cases := []struct {
		name   string
		params SendParams
	}{
		{"missing recipient", SendParams{ServiceID: env.serviceID, Channel: notification.ChannelSMS, Content: "hello"}},
		{"missing content", SendParams{ServiceID: env.serviceID, Channel: notification.ChannelSMS, Recipient: "+447700900123"}},
		{"unknown channel", SendParams{ServiceID: env.serviceID, Channel: notification.Channel("fax"), Recipient: "+447700900123", Content: "hello"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Send(context.Background(), tc.params)
			if !errors.Is(err, govalert_errors.ErrInvalidInput) {
				t.Errorf("Send() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}
