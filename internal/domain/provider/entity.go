package provider

import (
	"time"

	"github.com/google/uuid"

	"govalert/internal/domain/notification"
)

// ProviderDetails represents provider_details: one row per configured
// delivery provider. Read-mostly at dispatch time; priority and active are
// rare administrative writes.
type ProviderDetails struct {
	ID         uuid.UUID            `gorm:"type:uuid;primaryKey"`
	Identifier string               `gorm:"uniqueIndex;not null"`
	Channel    notification.Channel `gorm:"not null;index"`

	// Priority ranks competing providers for a channel; the numerically
	// highest priority wins, ties broken by identifier.
	Priority              int  `gorm:"default:10"`
	Active                bool `gorm:"default:true"`
	SupportsInternational bool `gorm:"default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProviderDetails) TableName() string {
	return "provider_details"
}
