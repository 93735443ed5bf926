package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"govalert/internal/domain/service"
	govalert_errors "govalert/pkg/errors"
)

type PostgresServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &PostgresServiceRepository{db: db}
}

func (r *PostgresServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (service.Service, error) {
	var s service.Service
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return service.Service{}, govalert_errors.ErrNotFound
		}
		return service.Service{}, err
	}
	return s, nil
}

func (r *PostgresServiceRepository) GetUserByID(ctx context.Context, id uuid.UUID) (service.User, error) {
	var u service.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return service.User{}, govalert_errors.ErrNotFound
		}
		return service.User{}, err
	}
	return u, nil
}

func (r *PostgresServiceRepository) IsMember(ctx context.Context, serviceID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&service.ServiceUser{}).
		Where("service_id = ? AND user_id = ?", serviceID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
