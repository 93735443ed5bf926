package notification

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Channel is the delivery channel of a notification.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Status values for a notification send record. The "created" status doubles
// as the dispatch pipeline's cooperative lock: only a notification still in
// "created" may be handed to a provider.
type Status string

const (
	StatusCreated          Status = "created"
	StatusSending          Status = "sending"
	StatusDelivered        Status = "delivered"
	StatusTechnicalFailure Status = "technical-failure"
)

// Notification represents notifications
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ServiceID uuid.UUID `gorm:"type:uuid;not null;index"`

	Channel   Channel `gorm:"not null"`
	Recipient string  `gorm:"column:recipient;not null"`
	Content   string  `gorm:"not null"`
	Reference sql.NullString

	Status        Status `gorm:"not null;default:created;index"`
	BillableUnits int    `gorm:"default:0"`
	SentBy        sql.NullString
	SentAt        sql.NullTime

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Notification) TableName() string {
	return "notifications"
}
