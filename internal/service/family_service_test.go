package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"icesos/familyhub/internal/model"
	"icesos/familyhub/internal/repository"
)

// fakeStore implements the four repository interfaces in memory, mirroring
// the semantics of the Postgres implementations closely enough to drive the
// orchestrator through every workflow path.
type fakeStore struct {
	groups      map[uuid.UUID]*model.FamilyGroup // keyed by owner user id
	invites     map[uuid.UUID]*model.Invite
	contacts    []*model.EmergencyContact
	memberships []*model.Membership

	failContactCreate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups:  make(map[uuid.UUID]*model.FamilyGroup),
		invites: make(map[uuid.UUID]*model.Invite),
	}
}

func (f *fakeStore) EnsureForOwner(_ context.Context, owner uuid.UUID) (*model.FamilyGroup, error) {
	if g, ok := f.groups[owner]; ok {
		return g, nil
	}
	g := &model.FamilyGroup{ID: uuid.New(), OwnerUserID: owner}
	f.groups[owner] = g
	return g, nil
}

func (f *fakeStore) GetByOwner(_ context.Context, owner uuid.UUID) (*model.FamilyGroup, error) {
	if g, ok := f.groups[owner]; ok {
		return g, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) groupByID(id uuid.UUID) *model.FamilyGroup {
	for _, g := range f.groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func (f *fakeStore) AddSeat(_ context.Context, groupID uuid.UUID) error {
	if g := f.groupByID(groupID); g != nil {
		g.OwnerSeatQuota++
	}
	return nil
}

func (f *fakeStore) ReleaseSeat(_ context.Context, groupID uuid.UUID) error {
	if g := f.groupByID(groupID); g != nil && g.OwnerSeatQuota > 0 {
		g.OwnerSeatQuota--
	}
	return nil
}

func (f *fakeStore) Create(ctx context.Context, invite *model.Invite, chargeSeat bool) error {
	if invite.ID == uuid.Nil {
		invite.ID = uuid.New()
	}
	invite.CreatedAt = time.Now()
	f.invites[invite.ID] = invite
	if chargeSeat {
		return f.AddSeat(ctx, invite.GroupID)
	}
	return nil
}

func (f *fakeStore) GetForGroup(_ context.Context, inviteID, groupID uuid.UUID) (*model.Invite, error) {
	inv, ok := f.invites[inviteID]
	if !ok || inv.GroupID != groupID {
		return nil, repository.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeStore) ListByGroup(_ context.Context, groupID uuid.UUID) ([]model.Invite, error) {
	var out []model.Invite
	for _, inv := range f.invites {
		if inv.GroupID == groupID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeStore) RotateToken(_ context.Context, inviteID uuid.UUID, token string, expiresAt time.Time) error {
	inv, ok := f.invites[inviteID]
	if !ok {
		return repository.ErrNotFound
	}
	inv.InviteToken = token
	inv.ExpiresAt = expiresAt
	return nil
}

func (f *fakeStore) Delete(_ context.Context, inviteID uuid.UUID) error {
	if _, ok := f.invites[inviteID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.invites, inviteID)
	return nil
}

func (f *fakeStore) Redeem(_ context.Context, token string, build func(*model.Invite) (*model.EmergencyContact, *model.Membership)) (*model.Membership, error) {
	var invite *model.Invite
	for _, inv := range f.invites {
		if inv.InviteToken == token && !inv.IsExpired() {
			invite = inv
			break
		}
	}
	if invite == nil {
		return nil, repository.ErrNotFound
	}

	contact, m := build(invite)
	for _, existing := range f.memberships {
		if existing.GroupID == m.GroupID && existing.UserID == m.UserID {
			return nil, repository.ErrDuplicate
		}
	}
	f.upsertContact(contact)
	m.ID = uuid.New()
	f.memberships = append(f.memberships, m)
	delete(f.invites, invite.ID)
	return m, nil
}

func (f *fakeStore) CountByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	for _, c := range f.contacts {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateContact(_ context.Context, contact *model.EmergencyContact) error {
	if f.failContactCreate {
		return errors.New("contact insert failed")
	}
	f.upsertContact(contact)
	return nil
}

func (f *fakeStore) upsertContact(contact *model.EmergencyContact) {
	for _, c := range f.contacts {
		if c.UserID == contact.UserID && strings.EqualFold(c.Email, contact.Email) {
			return
		}
	}
	contact.ID = uuid.New()
	f.contacts = append(f.contacts, contact)
}

func (f *fakeStore) ListByUser(_ context.Context, userID uuid.UUID) ([]model.EmergencyContact, error) {
	var out []model.EmergencyContact
	for _, c := range f.contacts {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) Exists(_ context.Context, groupID, userID uuid.UUID) (bool, error) {
	for _, m := range f.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListMembershipsByGroup(_ context.Context, groupID uuid.UUID) ([]model.Membership, error) {
	var out []model.Membership
	for _, m := range f.memberships {
		if m.GroupID == groupID {
			out = append(out, *m)
		}
	}
	return out, nil
}

// contactRepoView and membershipRepoView adapt fakeStore to the interfaces
// whose method names collide with InviteRepository.
type contactRepoView struct{ *fakeStore }

func (v contactRepoView) Create(ctx context.Context, c *model.EmergencyContact) error {
	return v.fakeStore.CreateContact(ctx, c)
}

type membershipRepoView struct{ *fakeStore }

func (v membershipRepoView) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]model.Membership, error) {
	return v.fakeStore.ListMembershipsByGroup(ctx, groupID)
}

type fakeMailSender struct {
	sent []sentMail
	fail bool
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (f *fakeMailSender) Send(_ context.Context, to, subject, body string) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func newTestService(t *testing.T) (FamilyService, *fakeStore, *fakeMailSender) {
	t.Helper()
	store := newFakeStore()
	mail := &fakeMailSender{}
	svc := NewFamilyService(
		store,
		store,
		contactRepoView{store},
		membershipRepoView{store},
		repository.NewMemoryStateStore(),
		mail,
		zap.NewNop(),
		FamilyOptions{LinkBaseURL: "https://app.example.com"},
	)
	return svc, store, mail
}

func validInput(billing model.BillingType) CreateInviteInput {
	return CreateInviteInput{
		Name:         "Alice Example",
		Email:        "alice@example.com",
		Phone:        "+34600111222",
		Relationship: "spouse",
		BillingType:  billing,
	}
}

func TestCreateInvite_OwnerBilled(t *testing.T) {
	svc, store, mail := newTestService(t)
	owner := uuid.New()

	result, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)

	assert.Contains(t, result.Link, "/family-invite-accept?token=")
	assert.NotEmpty(t, result.Token)
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), result.ExpiresAt, time.Minute)

	group := store.groups[owner]
	require.NotNil(t, group)
	assert.Equal(t, 1, group.OwnerSeatQuota)

	require.Len(t, store.invites, 1)
	invite := store.invites[result.InviteID]
	require.NotNil(t, invite)
	assert.Equal(t, "alice@example.com", invite.InviteeEmail)
	assert.Equal(t, model.BillingTypeOwner, invite.BillingType)

	contacts, _ := store.ListByUser(context.Background(), owner)
	require.Len(t, contacts, 1)
	assert.Equal(t, model.ContactTypeFamily, contacts[0].Type)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "alice@example.com", mail.sent[0].to)
	assert.Contains(t, mail.sent[0].body, "covered by the person who invited you")
}

func TestCreateInvite_SelfBilled(t *testing.T) {
	svc, store, mail := newTestService(t)
	owner := uuid.New()

	result, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeSelf))
	require.NoError(t, err)

	assert.Contains(t, result.Link, "/family-invite-payment?token=")
	assert.Equal(t, 0, store.groups[owner].OwnerSeatQuota)

	require.Len(t, mail.sent, 1)
	assert.Contains(t, mail.sent[0].body, "set up your own payment")
}

func TestCreateInvite_Validation(t *testing.T) {
	svc, store, _ := newTestService(t)
	owner := uuid.New()

	tests := []struct {
		name    string
		mutate  func(*CreateInviteInput)
		wantErr error
	}{
		{"missing name", func(in *CreateInviteInput) { in.Name = "" }, ErrFieldRequired},
		{"missing email", func(in *CreateInviteInput) { in.Email = " " }, ErrFieldRequired},
		{"missing phone", func(in *CreateInviteInput) { in.Phone = "" }, ErrFieldRequired},
		{"missing relationship", func(in *CreateInviteInput) { in.Relationship = "" }, ErrFieldRequired},
		{"bad billing type", func(in *CreateInviteInput) { in.BillingType = "company" }, ErrInvalidBillingType},
		{"empty billing type", func(in *CreateInviteInput) { in.BillingType = "" }, ErrInvalidBillingType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(model.BillingTypeOwner)
			tt.mutate(&in)
			_, err := svc.CreateInvite(context.Background(), owner, in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// No partial effects from rejected inputs.
	assert.Empty(t, store.invites)
	assert.Empty(t, store.groups)
}

func TestCreateInvite_ContactCapReached(t *testing.T) {
	svc, store, _ := newTestService(t)
	owner := uuid.New()
	for i := 0; i < 5; i++ {
		store.contacts = append(store.contacts, &model.EmergencyContact{
			ID: uuid.New(), UserID: owner, Email: uuid.NewString() + "@example.com",
		})
	}

	_, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	assert.ErrorIs(t, err, ErrContactLimitReached)
	assert.Empty(t, store.invites)
	assert.Empty(t, store.groups)
}

func TestCreateInvite_ContactMirrorFailureIsNonFatal(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.failContactCreate = true
	owner := uuid.New()

	result, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)
	assert.NotNil(t, store.invites[result.InviteID])
	assert.Empty(t, store.contacts)
}

func TestCreateInvite_MailFailureIsNonFatal(t *testing.T) {
	svc, store, mail := newTestService(t)
	mail.fail = true
	owner := uuid.New()

	result, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)
	assert.NotNil(t, store.invites[result.InviteID])
}

func TestAcceptInvite_OwnerBilled(t *testing.T) {
	svc, store, _ := newTestService(t)
	owner := uuid.New()
	invitee := uuid.New()

	created, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)

	accepted, err := svc.AcceptInvite(context.Background(), invitee, created.Token)
	require.NoError(t, err)

	assert.Equal(t, model.MembershipStatusActive, accepted.Status)
	assert.Equal(t, model.BillingTypeOwner, accepted.BillingType)
	assert.False(t, accepted.RequiresPayment)

	// Token is consumed.
	assert.Empty(t, store.invites)

	members, _ := store.ListMembershipsByGroup(context.Background(), store.groups[owner].ID)
	require.Len(t, members, 1)
	assert.Equal(t, invitee, members[0].UserID)

	// Mirror stays deduplicated on (owner, email): the create-time row and
	// the accept-time row collapse into one.
	contacts, _ := store.ListByUser(context.Background(), owner)
	assert.Len(t, contacts, 1)
}

func TestAcceptInvite_SelfBilled(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := uuid.New()
	invitee := uuid.New()

	created, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeSelf))
	require.NoError(t, err)

	accepted, err := svc.AcceptInvite(context.Background(), invitee, created.Token)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipStatusPending, accepted.Status)
	assert.True(t, accepted.RequiresPayment)
}

func TestAcceptInvite_UnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.AcceptInvite(context.Background(), uuid.New(), "no-such-token")
	assert.ErrorIs(t, err, ErrInviteInvalid)
}

func TestAcceptInvite_MissingToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.AcceptInvite(context.Background(), uuid.New(), "  ")
	assert.ErrorIs(t, err, ErrFieldRequired)
}

func TestAcceptInvite_ExpiredToken(t *testing.T) {
	svc, store, _ := newTestService(t)
	owner := uuid.New()

	created, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)
	store.invites[created.InviteID].ExpiresAt = time.Now().Add(-time.Hour)

	_, err = svc.AcceptInvite(context.Background(), uuid.New(), created.Token)
	assert.ErrorIs(t, err, ErrInviteInvalid)
	assert.Empty(t, store.memberships)
	// The expired row is not consumed.
	assert.Len(t, store.invites, 1)
}

func TestAcceptInvite_TokenIsSingleUse(t *testing.T) {
	svc, store, _ := newTestService(t)
	owner := uuid.New()

	created, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)

	_, err = svc.AcceptInvite(context.Background(), uuid.New(), created.Token)
	require.NoError(t, err)

	_, err = svc.AcceptInvite(context.Background(), uuid.New(), created.Token)
	assert.ErrorIs(t, err, ErrInviteInvalid)
	assert.Len(t, store.memberships, 1)
}

func TestAcceptInvite_DuplicateMembership(t *testing.T) {
	svc, store, _ := newTestService(t)
	owner := uuid.New()
	invitee := uuid.New()

	first, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)
	_, err = svc.AcceptInvite(context.Background(), invitee, first.Token)
	require.NoError(t, err)

	second := validInput(model.BillingTypeOwner)
	second.Email = "alice+again@example.com"
	resend, err := svc.CreateInvite(context.Background(), owner, second)
	require.NoError(t, err)

	_, err = svc.AcceptInvite(context.Background(), invitee, resend.Token)
	assert.ErrorIs(t, err, ErrMembershipExists)
	assert.Len(t, store.memberships, 1)
	// The rejected invite is not consumed.
	assert.NotNil(t, store.invites[resend.InviteID])
}

func TestRevokeInvite_OwnerBilled(t *testing.T) {
	svc, store, _ := newTestService(t)
	owner := uuid.New()

	created, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)
	require.Equal(t, 1, store.groups[owner].OwnerSeatQuota)

	require.NoError(t, svc.RevokeInvite(context.Background(), owner, created.InviteID))
	assert.Equal(t, 0, store.groups[owner].OwnerSeatQuota)
	assert.Empty(t, store.invites)
}

func TestRevokeInvite_SelfBilledLeavesQuota(t *testing.T) {
	svc, store, _ := newTestService(t)
	owner := uuid.New()

	_, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)

	selfBilled := validInput(model.BillingTypeSelf)
	selfBilled.Email = "bob@example.com"
	created, err := svc.CreateInvite(context.Background(), owner, selfBilled)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeInvite(context.Background(), owner, created.InviteID))
	assert.Equal(t, 1, store.groups[owner].OwnerSeatQuota)
}

func TestRevokeInvite_QuotaNeverNegative(t *testing.T) {
	svc, store, _ := newTestService(t)
	owner := uuid.New()

	group, err := store.EnsureForOwner(context.Background(), owner)
	require.NoError(t, err)

	// Owner-billed invite seeded without a seat charge, e.g. after a crash
	// between the two writes in an older deployment.
	invite := &model.Invite{
		GroupID: group.ID, InviterUserID: owner,
		InviteeEmail: "c@example.com", InviteeName: "C", Phone: "1", Relationship: "parent",
		InviteToken: "tok", ExpiresAt: time.Now().Add(time.Hour),
		BillingType: model.BillingTypeOwner,
	}
	require.NoError(t, store.Create(context.Background(), invite, false))

	require.NoError(t, svc.RevokeInvite(context.Background(), owner, invite.ID))
	assert.Equal(t, 0, store.groups[owner].OwnerSeatQuota)
}

func TestRevokeInvite_NotOwned(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := uuid.New()
	stranger := uuid.New()

	created, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)

	err = svc.RevokeInvite(context.Background(), stranger, created.InviteID)
	assert.ErrorIs(t, err, ErrInviteNotFound)
}

func TestResendInvite(t *testing.T) {
	svc, store, mail := newTestService(t)
	owner := uuid.New()

	created, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)
	before := *store.invites[created.InviteID]

	resent, err := svc.ResendInvite(context.Background(), owner, created.InviteID)
	require.NoError(t, err)

	assert.Equal(t, created.InviteID, resent.InviteID)
	assert.NotEqual(t, created.Token, resent.Token)
	assert.True(t, resent.ExpiresAt.After(before.ExpiresAt))
	assert.Contains(t, resent.Link, "/family-invite-accept?token=")

	after := store.invites[created.InviteID]
	assert.Equal(t, before.InviteeEmail, after.InviteeEmail)
	assert.Equal(t, before.BillingType, after.BillingType)
	assert.Equal(t, before.GroupID, after.GroupID)

	// One mail at create, one at resend.
	assert.Len(t, mail.sent, 2)
}

func TestResendInvite_Throttled(t *testing.T) {
	svc, store, _ := newTestService(t)
	owner := uuid.New()

	created, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)

	resent, err := svc.ResendInvite(context.Background(), owner, created.InviteID)
	require.NoError(t, err)

	_, err = svc.ResendInvite(context.Background(), owner, created.InviteID)
	assert.ErrorIs(t, err, ErrResendThrottled)
	// The throttled call mutates nothing.
	assert.Equal(t, resent.Token, store.invites[created.InviteID].InviteToken)
}

func TestResendInvite_NotOwned(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := uuid.New()

	created, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)

	_, err = svc.ResendInvite(context.Background(), uuid.New(), created.InviteID)
	assert.ErrorIs(t, err, ErrInviteNotFound)
}

func TestListInvitesAndMembers(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := uuid.New()
	invitee := uuid.New()

	// Empty before any group exists.
	invites, err := svc.ListInvites(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, invites)

	created, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)

	invites, err = svc.ListInvites(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, created.InviteID, invites[0].ID)

	_, err = svc.AcceptInvite(context.Background(), invitee, created.Token)
	require.NoError(t, err)

	members, err := svc.ListMembers(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, invitee, members[0].UserID)
}

// Full owner-billed then self-billed walkthrough: quota moves only with
// owner-billed invites, and revoking a pending self-billed invite leaves it
// untouched.
func TestWorkflow_EndToEnd(t *testing.T) {
	svc, store, _ := newTestService(t)
	owner := uuid.New()
	alice := uuid.New()

	created, err := svc.CreateInvite(context.Background(), owner, validInput(model.BillingTypeOwner))
	require.NoError(t, err)
	assert.Equal(t, 1, store.groups[owner].OwnerSeatQuota)
	assert.Contains(t, created.Link, "/family-invite-accept?token=")

	accepted, err := svc.AcceptInvite(context.Background(), alice, created.Token)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipStatusActive, accepted.Status)
	assert.False(t, accepted.RequiresPayment)
	assert.Nil(t, store.invites[created.InviteID])

	selfBilled := validInput(model.BillingTypeSelf)
	selfBilled.Email = "bob@example.com"
	pending, err := svc.CreateInvite(context.Background(), owner, selfBilled)
	require.NoError(t, err)
	assert.Contains(t, pending.Link, "/family-invite-payment?token=")

	require.NoError(t, svc.RevokeInvite(context.Background(), owner, pending.InviteID))
	assert.Equal(t, 1, store.groups[owner].OwnerSeatQuota)
	assert.Nil(t, store.invites[pending.InviteID])
}
