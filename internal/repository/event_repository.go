package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"govalert/internal/domain/broadcast"
	govalert_errors "govalert/pkg/errors"
)

// PostgresEventRepository is append-only: broadcast events are transmission
// snapshots and are never updated or deleted.
type PostgresEventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &PostgresEventRepository{db: db}
}

func (r *PostgresEventRepository) Create(ctx context.Context, e *broadcast.BroadcastEvent) error {
	res := r.db.WithContext(ctx).Create(e)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return govalert_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresEventRepository) GetByID(ctx context.Context, id uuid.UUID) (broadcast.BroadcastEvent, error) {
	var e broadcast.BroadcastEvent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return broadcast.BroadcastEvent{}, govalert_errors.ErrNotFound
		}
		return broadcast.BroadcastEvent{}, err
	}
	return e, nil
}

func (r *PostgresEventRepository) GetForBroadcastMessage(ctx context.Context, broadcastMessageID uuid.UUID) ([]broadcast.BroadcastEvent, error) {
	var events []broadcast.BroadcastEvent
	err := r.db.WithContext(ctx).
		Where("broadcast_message_id = ?", broadcastMessageID).
		Order("sent_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
