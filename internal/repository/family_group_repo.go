package repository

import (
	"context"

	"github.com/google/uuid"

	"icesos/familyhub/internal/model"
)

type FamilyGroupRepository interface {
	// EnsureForOwner returns the owner's group, creating it if absent.
	// Safe under concurrent first-time creates.
	EnsureForOwner(ctx context.Context, ownerUserID uuid.UUID) (*model.FamilyGroup, error)
	GetByOwner(ctx context.Context, ownerUserID uuid.UUID) (*model.FamilyGroup, error)
	// AddSeat atomically increments the owner's seat quota by one.
	AddSeat(ctx context.Context, groupID uuid.UUID) error
	// ReleaseSeat atomically decrements the owner's seat quota, floored at zero.
	ReleaseSeat(ctx context.Context, groupID uuid.UUID) error
}
