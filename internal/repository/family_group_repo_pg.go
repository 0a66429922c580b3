package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"icesos/familyhub/internal/model"
)

type pgFamilyGroupRepository struct {
	db *gorm.DB
}

func NewPGFamilyGroupRepository(db *gorm.DB) FamilyGroupRepository {
	return &pgFamilyGroupRepository{db: db}
}

func (r *pgFamilyGroupRepository) EnsureForOwner(ctx context.Context, ownerUserID uuid.UUID) (*model.FamilyGroup, error) {
	// Conflict-tolerant insert against the unique owner index, then re-read:
	// two concurrent first-time creates converge on the same row.
	group := &model.FamilyGroup{OwnerUserID: ownerUserID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_user_id"}},
			DoNothing: true,
		}).
		Create(group).Error; err != nil {
		return nil, err
	}
	return r.GetByOwner(ctx, ownerUserID)
}

func (r *pgFamilyGroupRepository) GetByOwner(ctx context.Context, ownerUserID uuid.UUID) (*model.FamilyGroup, error) {
	var group model.FamilyGroup
	if err := r.db.WithContext(ctx).Where("owner_user_id = ?", ownerUserID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (r *pgFamilyGroupRepository) AddSeat(ctx context.Context, groupID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.FamilyGroup{}).
		Where("id = ?", groupID).
		UpdateColumn("owner_seat_quota", gorm.Expr("owner_seat_quota + 1")).
		Error
}

func (r *pgFamilyGroupRepository) ReleaseSeat(ctx context.Context, groupID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.FamilyGroup{}).
		Where("id = ?", groupID).
		UpdateColumn("owner_seat_quota", gorm.Expr("GREATEST(owner_seat_quota - 1, 0)")).
		Error
}
