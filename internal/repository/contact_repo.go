package repository

import (
	"context"

	"github.com/google/uuid"

	"icesos/familyhub/internal/model"
)

type ContactRepository interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Create(ctx context.Context, contact *model.EmergencyContact) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.EmergencyContact, error)
}
