package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"icesos/familyhub/internal/model"
	"icesos/familyhub/internal/repository"
	"icesos/familyhub/pkg/crypto"
)

const (
	acceptPath  = "/family-invite-accept"
	paymentPath = "/family-invite-payment"
)

// FamilyOptions carries workflow tunables resolved from config.
type FamilyOptions struct {
	LinkBaseURL    string
	InviteTTL      time.Duration
	ContactLimit   int
	ResendCooldown time.Duration
}

func (o *FamilyOptions) applyDefaults() {
	if o.InviteTTL <= 0 {
		o.InviteTTL = 72 * time.Hour
	}
	if o.ContactLimit <= 0 {
		o.ContactLimit = 5
	}
	if o.ResendCooldown <= 0 {
		o.ResendCooldown = time.Minute
	}
}

type CreateInviteInput struct {
	Name         string
	Email        string
	Phone        string
	Relationship string
	BillingType  model.BillingType
}

type CreateInviteResult struct {
	InviteID  uuid.UUID `json:"invite_id"`
	Token     string    `json:"token"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AcceptInviteResult struct {
	MembershipID    uuid.UUID              `json:"membership_id"`
	BillingType     model.BillingType      `json:"billing_type"`
	Status          model.MembershipStatus `json:"status"`
	RequiresPayment bool                   `json:"requires_payment"`
}

type FamilyService interface {
	CreateInvite(ctx context.Context, ownerUserID uuid.UUID, in CreateInviteInput) (*CreateInviteResult, error)
	AcceptInvite(ctx context.Context, userID uuid.UUID, token string) (*AcceptInviteResult, error)
	RevokeInvite(ctx context.Context, ownerUserID, inviteID uuid.UUID) error
	ResendInvite(ctx context.Context, ownerUserID, inviteID uuid.UUID) (*CreateInviteResult, error)
	ListInvites(ctx context.Context, ownerUserID uuid.UUID) ([]model.Invite, error)
	ListMembers(ctx context.Context, ownerUserID uuid.UUID) ([]model.Membership, error)
}

type familyService struct {
	groupRepo      repository.FamilyGroupRepository
	inviteRepo     repository.InviteRepository
	contactRepo    repository.ContactRepository
	membershipRepo repository.MembershipRepository
	stateStore     repository.StateStore
	mail           MailSender
	logger         *zap.Logger
	opts           FamilyOptions
}

func NewFamilyService(
	groupRepo repository.FamilyGroupRepository,
	inviteRepo repository.InviteRepository,
	contactRepo repository.ContactRepository,
	membershipRepo repository.MembershipRepository,
	stateStore repository.StateStore,
	mail MailSender,
	logger *zap.Logger,
	opts FamilyOptions,
) FamilyService {
	opts.applyDefaults()
	return &familyService{
		groupRepo:      groupRepo,
		inviteRepo:     inviteRepo,
		contactRepo:    contactRepo,
		membershipRepo: membershipRepo,
		stateStore:     stateStore,
		mail:           mail,
		logger:         logger,
		opts:           opts,
	}
}

func (s *familyService) CreateInvite(ctx context.Context, ownerUserID uuid.UUID, in CreateInviteInput) (*CreateInviteResult, error) {
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", in.Name},
		{"email", in.Email},
		{"phone", in.Phone},
		{"relationship", in.Relationship},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, fmt.Errorf("%w: %s", ErrFieldRequired, f.name)
		}
	}
	if !in.BillingType.Valid() {
		return nil, ErrInvalidBillingType
	}

	count, err := s.contactRepo.CountByUser(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("count emergency contacts: %w", err)
	}
	if count >= int64(s.opts.ContactLimit) {
		return nil, ErrContactLimitReached
	}

	group, err := s.groupRepo.EnsureForOwner(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("ensure family group: %w", err)
	}

	token, err := crypto.GenerateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("generate invite token: %w", err)
	}

	invite := &model.Invite{
		GroupID:       group.ID,
		InviterUserID: ownerUserID,
		InviteeEmail:  in.Email,
		InviteeName:   in.Name,
		Phone:         in.Phone,
		Relationship:  in.Relationship,
		InviteToken:   token,
		ExpiresAt:     time.Now().Add(s.opts.InviteTTL),
		BillingType:   in.BillingType,
	}
	chargeSeat := in.BillingType == model.BillingTypeOwner
	if err := s.inviteRepo.Create(ctx, invite, chargeSeat); err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}

	// The mirror row keeps the inviter's contact list usable before the
	// invitee accepts. Its failure never aborts the invite.
	contact := &model.EmergencyContact{
		UserID:       ownerUserID,
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.Email,
		Type:         model.ContactTypeFamily,
		Relationship: in.Relationship,
	}
	if err := s.contactRepo.Create(ctx, contact); err != nil {
		s.logger.Warn("contact mirror insert failed",
			zap.String("invite_id", invite.ID.String()),
			zap.Error(err))
	}

	link := s.inviteLink(invite.BillingType, token)
	s.notify(ctx, invite, link)

	return &CreateInviteResult{
		InviteID:  invite.ID,
		Token:     token,
		Link:      link,
		ExpiresAt: invite.ExpiresAt,
	}, nil
}

func (s *familyService) AcceptInvite(ctx context.Context, userID uuid.UUID, token string) (*AcceptInviteResult, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: token", ErrFieldRequired)
	}

	membership, err := s.inviteRepo.Redeem(ctx, token, func(invite *model.Invite) (*model.EmergencyContact, *model.Membership) {
		status := model.MembershipStatusActive
		if invite.BillingType == model.BillingTypeSelf {
			status = model.MembershipStatusPending
		}
		contact := &model.EmergencyContact{
			UserID:       invite.InviterUserID,
			Name:         invite.InviteeName,
			Phone:        invite.Phone,
			Email:        invite.InviteeEmail,
			Type:         model.ContactTypeFamily,
			Relationship: invite.Relationship,
		}
		return contact, &model.Membership{
			GroupID:     invite.GroupID,
			UserID:      userID,
			BillingType: invite.BillingType,
			Status:      status,
		}
	})
	if err != nil {
		switch {
		case isNotFound(err):
			return nil, ErrInviteInvalid
		case isDuplicate(err):
			return nil, ErrMembershipExists
		}
		return nil, fmt.Errorf("redeem invite: %w", err)
	}

	return &AcceptInviteResult{
		MembershipID:    membership.ID,
		BillingType:     membership.BillingType,
		Status:          membership.Status,
		RequiresPayment: membership.BillingType == model.BillingTypeSelf,
	}, nil
}

func (s *familyService) RevokeInvite(ctx context.Context, ownerUserID, inviteID uuid.UUID) error {
	invite, _, err := s.inviteForOwner(ctx, ownerUserID, inviteID)
	if err != nil {
		return err
	}

	if err := s.inviteRepo.Delete(ctx, invite.ID); err != nil {
		if isNotFound(err) {
			return ErrInviteNotFound
		}
		return fmt.Errorf("delete invite: %w", err)
	}

	if invite.BillingType == model.BillingTypeOwner {
		if err := s.groupRepo.ReleaseSeat(ctx, invite.GroupID); err != nil {
			return fmt.Errorf("release seat: %w", err)
		}
	}
	return nil
}

func (s *familyService) ResendInvite(ctx context.Context, ownerUserID, inviteID uuid.UUID) (*CreateInviteResult, error) {
	// Ownership is verified before any write is applied.
	invite, _, err := s.inviteForOwner(ctx, ownerUserID, inviteID)
	if err != nil {
		return nil, err
	}

	throttleKey := "invite:resend:" + invite.ID.String()
	ok, err := s.stateStore.SetNX(ctx, throttleKey, []byte("1"), s.opts.ResendCooldown)
	if err != nil {
		return nil, fmt.Errorf("resend throttle: %w", err)
	}
	if !ok {
		return nil, ErrResendThrottled
	}

	token, err := crypto.GenerateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("generate invite token: %w", err)
	}
	expiresAt := time.Now().Add(s.opts.InviteTTL)
	if err := s.inviteRepo.RotateToken(ctx, invite.ID, token, expiresAt); err != nil {
		if isNotFound(err) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("rotate invite token: %w", err)
	}

	invite.InviteToken = token
	invite.ExpiresAt = expiresAt
	link := s.inviteLink(invite.BillingType, token)
	s.notify(ctx, invite, link)

	return &CreateInviteResult{
		InviteID:  invite.ID,
		Token:     token,
		Link:      link,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *familyService) ListInvites(ctx context.Context, ownerUserID uuid.UUID) ([]model.Invite, error) {
	group, err := s.groupRepo.GetByOwner(ctx, ownerUserID)
	if err != nil {
		if isNotFound(err) {
			return []model.Invite{}, nil
		}
		return nil, fmt.Errorf("load family group: %w", err)
	}
	return s.inviteRepo.ListByGroup(ctx, group.ID)
}

func (s *familyService) ListMembers(ctx context.Context, ownerUserID uuid.UUID) ([]model.Membership, error) {
	group, err := s.groupRepo.GetByOwner(ctx, ownerUserID)
	if err != nil {
		if isNotFound(err) {
			return []model.Membership{}, nil
		}
		return nil, fmt.Errorf("load family group: %w", err)
	}
	return s.membershipRepo.ListByGroup(ctx, group.ID)
}

// inviteForOwner resolves the caller's group and the invite scoped under it.
func (s *familyService) inviteForOwner(ctx context.Context, ownerUserID, inviteID uuid.UUID) (*model.Invite, *model.FamilyGroup, error) {
	group, err := s.groupRepo.GetByOwner(ctx, ownerUserID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrInviteNotFound
		}
		return nil, nil, fmt.Errorf("load family group: %w", err)
	}
	invite, err := s.inviteRepo.GetForGroup(ctx, inviteID, group.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrInviteNotFound
		}
		return nil, nil, fmt.Errorf("load invite: %w", err)
	}
	return invite, group, nil
}

func (s *familyService) inviteLink(billing model.BillingType, token string) string {
	path := acceptPath
	if billing == model.BillingTypeSelf {
		path = paymentPath
	}
	return strings.TrimRight(s.opts.LinkBaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// notify sends the invitation email. Failures are logged and swallowed; the
// workflow outcome never depends on the mail provider.
func (s *familyService) notify(ctx context.Context, invite *model.Invite, link string) {
	if s.mail == nil {
		return
	}
	subject, body := composeInviteEmail(invite, link)
	if err := s.mail.Send(ctx, invite.InviteeEmail, subject, body); err != nil {
		s.logger.Warn("invite email failed",
			zap.String("invite_id", invite.ID.String()),
			zap.String("invitee_email", invite.InviteeEmail),
			zap.Error(err))
	}
}

func isNotFound(err error) bool  { return errors.Is(err, repository.ErrNotFound) }
func isDuplicate(err error) bool { return errors.Is(err, repository.ErrDuplicate) }
