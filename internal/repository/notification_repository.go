package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"govalert/internal/domain/notification"
	govalert_errors "govalert/pkg/errors"
)

type PostgresNotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	res := r.db.WithContext(ctx).Create(n)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return govalert_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresNotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (notification.Notification, error) {
	var n notification.Notification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notification.Notification{}, govalert_errors.ErrNotFound
		}
		return notification.Notification{}, err
	}
	return n, nil
}

func (r *PostgresNotificationRepository) Update(ctx context.Context, n notification.Notification) error {
	res := r.db.WithContext(ctx).Save(&n)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return govalert_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresNotificationRepository) MarkSending(ctx context.Context, id uuid.UUID, sentBy string, sentAt time.Time, billableUnits int) error {
	res := r.db.WithContext(ctx).
		Model(&notification.Notification{}).
		Where("id = ? AND status = ?", id, notification.StatusCreated).
		Updates(map[string]interface{}{
			"status":         notification.StatusSending,
			"sent_by":        sentBy,
			"sent_at":        sentAt,
			"billable_units": billableUnits,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return govalert_errors.ErrConflict
	}
	return nil
}

func (r *PostgresNotificationRepository) SetTechnicalFailure(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&notification.Notification{}).
		Where("id = ?", id).
		Update("status", notification.StatusTechnicalFailure)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return govalert_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresNotificationRepository) SweepStuckSending(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&notification.Notification{}).
		Where("status = ? AND sent_at < ?", notification.StatusSending, cutoff).
		Update("status", notification.StatusTechnicalFailure)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
