package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"govalert/internal/domain/notification"
	"govalert/internal/queue"
	"govalert/internal/repository"
	govalert_errors "govalert/pkg/errors"
	"govalert/pkg/logger"
)

// NotificationService persists inbound sms/email requests and enqueues their
// dispatch. The request path never blocks on a provider call: it returns as
// soon as the task is queued.
type NotificationService struct {
	notifications repository.NotificationRepository
	services      repository.ServiceRepository
	enqueuer      queue.Enqueuer
	log           *logger.Logger
	clock         func() time.Time
}

func NewNotificationService(repos *repository.Repositories, enqueuer queue.Enqueuer, log *logger.Logger) *NotificationService {
	return &NotificationService{
		notifications: repos.Notifications,
		services:      repos.Services,
		enqueuer:      enqueuer,
		log:           log,
		clock:         time.Now,
	}
}

type SendParams struct {
	ServiceID uuid.UUID
	Channel   notification.Channel
	Recipient string
	Content   string
	Reference string
}

func (s *NotificationService) Send(ctx context.Context, params SendParams) (notification.Notification, error) {
	svc, err := s.services.GetByID(ctx, params.ServiceID)
	if err != nil {
		return notification.Notification{}, err
	}
	if !svc.Active {
		return notification.Notification{}, govalert_errors.ErrServiceInactive
	}
	if params.Recipient == "" || params.Content == "" {
		return notification.Notification{}, fmt.Errorf("%w: recipient and content are required", govalert_errors.ErrInvalidInput)
	}
	if params.Channel != notification.ChannelSMS && params.Channel != notification.ChannelEmail {
		return notification.Notification{}, fmt.Errorf("%w: unknown channel %q", govalert_errors.ErrInvalidInput, params.Channel)
	}

	n := notification.Notification{
		ID:        uuid.New(),
		ServiceID: svc.ID,
		Channel:   params.Channel,
		Recipient: params.Recipient,
		Content:   params.Content,
		Status:    notification.StatusCreated,
		CreatedAt: s.clock().UTC(),
	}
	if params.Reference != "" {
		n.Reference = sql.NullString{String: params.Reference, Valid: true}
	}

	if err := s.notifications.Create(ctx, &n); err != nil {
		return notification.Notification{}, err
	}

	kind := queue.KindDeliverSMS
	if n.Channel == notification.ChannelEmail {
		kind = queue.KindDeliverEmail
	}
	payload, err := json.Marshal(DeliverPayload{NotificationID: n.ID})
	if err != nil {
		return notification.Notification{}, err
	}
	if err := s.enqueuer.Enqueue(ctx, queue.Task{Kind: kind, Payload: payload}, 0); err != nil {
		return notification.Notification{}, err
	}
	return n, nil
}

func (s *NotificationService) GetByID(ctx context.Context, id uuid.UUID) (notification.Notification, error) {
	return s.notifications.GetByID(ctx, id)
}
