package broadcast

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Polygon is an ordered ring of [lat, lng] coordinate pairs, already
// simplified upstream.
type Polygon [][]float64

// Areas pairs the named area list with its simplified polygons. The two
// lists are always replaced together.
type Areas struct {
	AreaNames      []string  `json:"areas"`
	SimplePolygons []Polygon `json:"simple_polygons"`
}

// BroadcastMessage represents broadcast_messages. Rows are never deleted;
// finished broadcasts remain as a historical record.
type BroadcastMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ServiceID uuid.UUID `gorm:"type:uuid;not null;index"`

	// Exactly one of TemplateID or (Reference, Content-from-request) is
	// populated at creation time.
	TemplateID      *uuid.UUID `gorm:"type:uuid"`
	TemplateVersion *int
	Reference       sql.NullString

	Content         string            `gorm:"not null"`
	Personalisation map[string]string `gorm:"serializer:json"`
	Areas           Areas             `gorm:"serializer:json"`

	Status Status `gorm:"not null;default:draft"`

	StartsAt   sql.NullTime
	FinishesAt sql.NullTime

	// Stubbed is copied from the owning service's restricted flag at
	// creation. Stubbed broadcasts never transmit externally.
	Stubbed bool `gorm:"default:false"`

	CreatedAt     time.Time
	CreatedByID   uuid.UUID `gorm:"type:uuid;not null"`
	ApprovedAt    sql.NullTime
	ApprovedByID  *uuid.UUID `gorm:"type:uuid"`
	CancelledAt   sql.NullTime
	CancelledByID *uuid.UUID `gorm:"type:uuid"`
}

func (BroadcastMessage) TableName() string {
	return "broadcast_messages"
}
