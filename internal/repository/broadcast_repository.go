package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"govalert/internal/domain/broadcast"
	govalert_errors "govalert/pkg/errors"
)

type PostgresBroadcastRepository struct {
	db *gorm.DB
}

func NewBroadcastRepository(db *gorm.DB) BroadcastRepository {
	return &PostgresBroadcastRepository{db: db}
}

func (r *PostgresBroadcastRepository) Create(ctx context.Context, b *broadcast.BroadcastMessage) error {
	res := r.db.WithContext(ctx).Create(b)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return govalert_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresBroadcastRepository) GetByIDAndServiceID(ctx context.Context, id, serviceID uuid.UUID) (broadcast.BroadcastMessage, error) {
	var b broadcast.BroadcastMessage
	err := r.db.WithContext(ctx).
		Where("id = ? AND service_id = ?", id, serviceID).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return broadcast.BroadcastMessage{}, govalert_errors.ErrNotFound
		}
		return broadcast.BroadcastMessage{}, err
	}
	return b, nil
}

func (r *PostgresBroadcastRepository) GetForService(ctx context.Context, serviceID uuid.UUID) ([]broadcast.BroadcastMessage, error) {
	var msgs []broadcast.BroadcastMessage
	err := r.db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Order("created_at DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *PostgresBroadcastRepository) Update(ctx context.Context, b broadcast.BroadcastMessage) error {
	res := r.db.WithContext(ctx).Save(&b)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return govalert_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresBroadcastRepository) UpdateStatus(ctx context.Context, b broadcast.BroadcastMessage, from broadcast.Status) error {
	res := r.db.WithContext(ctx).
		Model(&broadcast.BroadcastMessage{}).
		Where("id = ? AND status = ?", b.ID, from).
		Updates(map[string]interface{}{
			"status":          b.Status,
			"approved_at":     b.ApprovedAt,
			"approved_by_id":  b.ApprovedByID,
			"cancelled_at":    b.CancelledAt,
			"cancelled_by_id": b.CancelledByID,
		})
	if res.Error != nil {
		return res.Error
	}
	// A missed swap means another transition won the race; the caller
	// re-reads and rejects against the post-transition status.
	if res.RowsAffected == 0 {
		return govalert_errors.ErrConflict
	}
	return nil
}
