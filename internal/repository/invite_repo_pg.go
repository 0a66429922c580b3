package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"icesos/familyhub/internal/model"
)

type pgInviteRepository struct {
	db *gorm.DB
}

func NewPGInviteRepository(db *gorm.DB) InviteRepository {
	return &pgInviteRepository{db: db}
}

func (r *pgInviteRepository) Create(ctx context.Context, invite *model.Invite, chargeSeat bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(invite).Error; err != nil {
			return err
		}
		if !chargeSeat {
			return nil
		}
		return tx.Model(&model.FamilyGroup{}).
			Where("id = ?", invite.GroupID).
			UpdateColumn("owner_seat_quota", gorm.Expr("owner_seat_quota + 1")).
			Error
	})
}

func (r *pgInviteRepository) GetForGroup(ctx context.Context, inviteID, groupID uuid.UUID) (*model.Invite, error) {
	var invite model.Invite
	err := r.db.WithContext(ctx).
		Where("id = ? AND group_id = ?", inviteID, groupID).
		First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &invite, nil
}

func (r *pgInviteRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]model.Invite, error) {
	var invites []model.Invite
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, err
	}
	return invites, nil
}

func (r *pgInviteRepository) RotateToken(ctx context.Context, inviteID uuid.UUID, token string, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Invite{}).
		Where("id = ?", inviteID).
		Updates(map[string]interface{}{
			"invite_token": token,
			"expires_at":   expiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgInviteRepository) Delete(ctx context.Context, inviteID uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Invite{}, "id = ?", inviteID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgInviteRepository) Redeem(ctx context.Context, token string, build func(invite *model.Invite) (*model.EmergencyContact, *model.Membership)) (*model.Membership, error) {
	var membership *model.Membership
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invite model.Invite
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("invite_token = ? AND expires_at > ?", token, time.Now()).
			First(&invite).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		contact, m := build(&invite)

		var count int64
		if err := tx.Model(&model.Membership{}).
			Where("group_id = ? AND user_id = ?", m.GroupID, m.UserID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}

		if contact != nil {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(contact).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(m).Error; err != nil {
			return err
		}

		// Scoped on the token as well as the id; a zero row count means a
		// concurrent accept consumed it first.
		res := tx.Delete(&model.Invite{}, "id = ? AND invite_token = ?", invite.ID, token)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrNotFound
		}
		membership = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}
