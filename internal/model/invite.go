package model

import (
	"time"

	"github.com/google/uuid"
)

type BillingType string

const (
	BillingTypeOwner BillingType = "owner"
	BillingTypeSelf  BillingType = "self"
)

func (b BillingType) Valid() bool {
	return b == BillingTypeOwner || b == BillingTypeSelf
}

// Invite is a pending family invitation. The token is single-use: acceptance
// deletes the row, so a token can never be replayed.
type Invite struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	GroupID       uuid.UUID   `gorm:"type:uuid;index;not null" json:"group_id"`
	InviterUserID uuid.UUID   `gorm:"type:uuid;not null" json:"inviter_user_id"`
	InviteeEmail  string      `gorm:"type:varchar(255);index;not null" json:"invitee_email"`
	InviteeName   string      `gorm:"type:varchar(255);not null" json:"invitee_name"`
	Phone         string      `gorm:"type:varchar(64);not null" json:"phone"`
	Relationship  string      `gorm:"type:varchar(64);not null" json:"relationship"`
	InviteToken   string      `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	ExpiresAt     time.Time   `gorm:"index;not null" json:"expires_at"`
	BillingType   BillingType `gorm:"type:varchar(16);not null" json:"billing_type"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (Invite) TableName() string { return "family_invites" }

func (i *Invite) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}
