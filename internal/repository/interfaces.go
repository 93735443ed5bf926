package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"govalert/internal/domain/broadcast"
	"govalert/internal/domain/notification"
	"govalert/internal/domain/provider"
	"govalert/internal/domain/service"
)

type BroadcastRepository interface {
	Create(ctx context.Context, b *broadcast.BroadcastMessage) error
	// GetByIDAndServiceID returns ErrNotFound both for unknown ids and for
	// ids owned by another service; callers cannot tell the two apart.
	GetByIDAndServiceID(ctx context.Context, id, serviceID uuid.UUID) (broadcast.BroadcastMessage, error)
	GetForService(ctx context.Context, serviceID uuid.UUID) ([]broadcast.BroadcastMessage, error)
	Update(ctx context.Context, b broadcast.BroadcastMessage) error
	// UpdateStatus applies the whole transition (status plus approval or
	// cancellation stamps) as a compare-and-swap on the previous status.
	// A concurrent transition makes the swap miss and returns ErrConflict.
	UpdateStatus(ctx context.Context, b broadcast.BroadcastMessage, from broadcast.Status) error
}

type EventRepository interface {
	Create(ctx context.Context, e *broadcast.BroadcastEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (broadcast.BroadcastEvent, error)
	GetForBroadcastMessage(ctx context.Context, broadcastMessageID uuid.UUID) ([]broadcast.BroadcastEvent, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *notification.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (notification.Notification, error)
	Update(ctx context.Context, n notification.Notification) error
	// MarkSending stamps sent_at/sent_by/billable_units and moves the row
	// from created to sending. The created precondition is the pipeline's
	// cooperative lock against concurrent dispatch attempts.
	MarkSending(ctx context.Context, id uuid.UUID, sentBy string, sentAt time.Time, billableUnits int) error
	SetTechnicalFailure(ctx context.Context, id uuid.UUID) error
	// SweepStuckSending fails every notification sitting in sending since
	// before the cutoff, returning how many rows were swept.
	SweepStuckSending(ctx context.Context, cutoff time.Time) (int64, error)
}

type ProviderRepository interface {
	GetByChannel(ctx context.Context, channel notification.Channel) ([]provider.ProviderDetails, error)
	GetByIdentifier(ctx context.Context, identifier string) (provider.ProviderDetails, error)
	Update(ctx context.Context, p provider.ProviderDetails) error
	GetAll(ctx context.Context) ([]provider.ProviderDetails, error)
}

type ServiceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (service.Service, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (service.User, error)
	IsMember(ctx context.Context, serviceID, userID uuid.UUID) (bool, error)
}

// Repositories bundles the concrete gorm implementations for wiring.
type Repositories struct {
	Broadcasts    BroadcastRepository
	Events        EventRepository
	Notifications NotificationRepository
	Providers     ProviderRepository
	Services      ServiceRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Broadcasts:    NewBroadcastRepository(db),
		Events:        NewEventRepository(db),
		Notifications: NewNotificationRepository(db),
		Providers:     NewProviderRepository(db),
		Services:      NewServiceRepository(db),
	}
}
