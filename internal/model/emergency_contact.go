package model

import (
	"time"

	"github.com/google/uuid"
)

const ContactTypeFamily = "family"

// EmergencyContact is a denormalized contact row filed under the user whose
// emergency-contact list it belongs to, so the contact UI never joins across
// invite tables.
type EmergencyContact struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Phone        string    `gorm:"type:varchar(64);not null" json:"phone"`
	Email        string    `gorm:"type:varchar(255);not null" json:"email"`
	Type         string    `gorm:"type:varchar(32);not null;default:'family'" json:"type"`
	Relationship string    `gorm:"type:varchar(64);not null" json:"relationship"`
	Priority     int       `gorm:"not null;default:1" json:"priority"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (EmergencyContact) TableName() string { return "emergency_contacts" }
