package model

import (
	"time"

	"github.com/google/uuid"
)

// FamilyGroup holds one subscription owner's group and the number of
// family-member seats the owner has committed to pay for.
type FamilyGroup struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OwnerUserID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"owner_user_id"`
	OwnerSeatQuota int       `gorm:"not null;default:0" json:"owner_seat_quota"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (FamilyGroup) TableName() string { return "family_groups" }
