package database

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"govalert/internal/domain/notification"
	"govalert/internal/domain/provider"
)

// EnsureDefaultProviders inserts the baseline provider rows when they are
// missing, so a fresh database can dispatch without manual setup. Existing
// rows (including admin-tuned priorities) are left alone.
func EnsureDefaultProviders(db *gorm.DB) error {
	defaults := []provider.ProviderDetails{
		{
			Identifier:            "twilio",
			Channel:               notification.ChannelSMS,
			Priority:              10,
			Active:                true,
			SupportsInternational: true,
		},
		{
			Identifier: "sendgrid",
			Channel:    notification.ChannelEmail,
			Priority:   10,
			Active:     true,
		},
	}

	for _, p := range defaults {
		var existing provider.ProviderDetails
		err := db.Where("identifier = ?", p.Identifier).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		p.ID = uuid.New()
		p.CreatedAt = time.Now().UTC()
		p.UpdatedAt = p.CreatedAt
		if err := db.Create(&p).Error; err != nil {
			return err
		}
	}
	return nil
}
