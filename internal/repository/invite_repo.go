package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"icesos/familyhub/internal/model"
)

type InviteRepository interface {
	// Create inserts the invite and, when chargeSeat is set, bumps the
	// group's seat quota in the same transaction.
	Create(ctx context.Context, invite *model.Invite, chargeSeat bool) error
	// GetForGroup returns the invite only if it belongs to the given group.
	GetForGroup(ctx context.Context, inviteID, groupID uuid.UUID) (*model.Invite, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]model.Invite, error)
	// RotateToken replaces the token and expiry in place, preserving the row.
	RotateToken(ctx context.Context, inviteID uuid.UUID, token string, expiresAt time.Time) error
	Delete(ctx context.Context, inviteID uuid.UUID) error
	// Redeem consumes an unexpired invite by token in one transaction: it
	// locks the row, calls build to obtain the owner-side contact mirror and
	// the membership for the accepting user, rejects a duplicate membership
	// with ErrDuplicate, and deletes the invite. The invite stays untouched
	// on any error. An unknown, expired, or already-consumed token yields
	// ErrNotFound.
	Redeem(ctx context.Context, token string, build func(invite *model.Invite) (*model.EmergencyContact, *model.Membership)) (*model.Membership, error)
}
