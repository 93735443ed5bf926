package service

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Service represents services
type Service struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"not null"`
	// Active gates every mutation: updating a broadcast owned by an
	// inactive service is rejected outright.
	Active bool `gorm:"default:true"`
	// Restricted marks a trial/training service. Restricted services never
	// transmit externally and may self-approve their own broadcasts.
	Restricted   bool `gorm:"default:false"`
	ResearchMode bool `gorm:"default:false"`
	SMSSender    sql.NullString
	ReplyToEmail sql.NullString
	CreatedAt    time.Time
}

// User represents users
type User struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"not null"`
	PlatformAdmin bool      `gorm:"default:false"`
	CreatedAt     time.Time
}

// ServiceUser represents service_users, the membership join table
type ServiceUser struct {
	ServiceID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	AddedAt   time.Time
}

func (Service) TableName() string {
	return "services"
}

func (User) TableName() string {
	return "users"
}

func (ServiceUser) TableName() string {
	return "service_users"
}
