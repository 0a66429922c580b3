package model

import (
	"time"

	"github.com/google/uuid"
)

type MembershipStatus string

const (
	MembershipStatusActive  MembershipStatus = "active"
	MembershipStatusPending MembershipStatus = "pending"
)

// Membership records an accepted family relationship. Owner-billed members
// are active immediately; self-billed members stay pending until their
// payment completes out of band.
type Membership struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	GroupID     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_group_user" json:"group_id"`
	UserID      uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_group_user" json:"user_id"`
	BillingType BillingType      `gorm:"type:varchar(16);not null" json:"billing_type"`
	Status      MembershipStatus `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (Membership) TableName() string { return "family_memberships" }
