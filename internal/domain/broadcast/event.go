package broadcast

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// MessageType distinguishes the two kinds of transmitted broadcast events.
type MessageType string

const (
	MessageTypeAlert  MessageType = "alert"
	MessageTypeCancel MessageType = "cancel"
)

// TransmittedContent is the snapshot of the message body at transmission
// time.
type TransmittedContent struct {
	Body string `json:"body"`
}

// BroadcastEvent represents broadcast_events: an append-only record of every
// alert or cancel handed to the transmission transport. Rows are immutable
// once created; the transport re-reads them by id.
type BroadcastEvent struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	BroadcastMessageID uuid.UUID `gorm:"type:uuid;not null;index"`
	ServiceID          uuid.UUID `gorm:"type:uuid;not null"`

	MessageType MessageType `gorm:"not null"`

	TransmittedContent    TransmittedContent `gorm:"serializer:json"`
	TransmittedAreas      Areas              `gorm:"serializer:json"`
	TransmittedSender     string             `gorm:"not null"`
	TransmittedStartsAt   sql.NullTime
	TransmittedFinishesAt sql.NullTime

	SentAt time.Time
}

func (BroadcastEvent) TableName() string {
	return "broadcast_events"
}
