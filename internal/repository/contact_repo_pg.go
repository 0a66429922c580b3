package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"icesos/familyhub/internal/model"
)

type pgContactRepository struct {
	db *gorm.DB
}

func NewPGContactRepository(db *gorm.DB) ContactRepository {
	return &pgContactRepository{db: db}
}

func (r *pgContactRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.EmergencyContact{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *pgContactRepository) Create(ctx context.Context, contact *model.EmergencyContact) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(contact).Error
}

func (r *pgContactRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.EmergencyContact, error) {
	var contacts []model.EmergencyContact
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("priority ASC, created_at ASC").
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}
