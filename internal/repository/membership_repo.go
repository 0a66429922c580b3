package repository

import (
	"context"

	"github.com/google/uuid"

	"icesos/familyhub/internal/model"
)

type MembershipRepository interface {
	Exists(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]model.Membership, error)
}
