package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"govalert/internal/domain/notification"
	"govalert/internal/domain/provider"
	govalert_errors "govalert/pkg/errors"
)

type PostgresProviderRepository struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) ProviderRepository {
	return &PostgresProviderRepository{db: db}
}

func (r *PostgresProviderRepository) GetByChannel(ctx context.Context, channel notification.Channel) ([]provider.ProviderDetails, error) {
	var providers []provider.ProviderDetails
	err := r.db.WithContext(ctx).
		Where("channel = ?", channel).
		Order("priority DESC, identifier ASC").
		Find(&providers).Error
	if err != nil {
		return nil, err
	}
	return providers, nil
}

func (r *PostgresProviderRepository) GetByIdentifier(ctx context.Context, identifier string) (provider.ProviderDetails, error) {
	var p provider.ProviderDetails
	err := r.db.WithContext(ctx).Where("identifier = ?", identifier).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return provider.ProviderDetails{}, govalert_errors.ErrNotFound
		}
		return provider.ProviderDetails{}, err
	}
	return p, nil
}

func (r *PostgresProviderRepository) Update(ctx context.Context, p provider.ProviderDetails) error {
	p.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).Save(&p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return govalert_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresProviderRepository) GetAll(ctx context.Context) ([]provider.ProviderDetails, error) {
	var providers []provider.ProviderDetails
	err := r.db.WithContext(ctx).
		Order("channel ASC, priority DESC, identifier ASC").
		Find(&providers).Error
	if err != nil {
		return nil, err
	}
	return providers, nil
}
