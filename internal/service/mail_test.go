package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"icesos/familyhub/internal/model"
)

func TestComposeInviteEmail_EscapesUserContent(t *testing.T) {
	invite := &model.Invite{
		InviteeName:  `Alice <script>alert("x")</script>`,
		Relationship: "spouse",
		BillingType:  model.BillingTypeOwner,
		ExpiresAt:    time.Now().Add(72 * time.Hour),
	}

	_, body := composeInviteEmail(invite, "https://app.example.com/family-invite-accept?token=abc")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "Accept the invitation")
}

func TestComposeInviteEmail_SelfBilledWording(t *testing.T) {
	invite := &model.Invite{
		InviteeName:  "Bob",
		Relationship: "parent",
		BillingType:  model.BillingTypeSelf,
		ExpiresAt:    time.Now().Add(72 * time.Hour),
	}

	_, body := composeInviteEmail(invite, "https://app.example.com/family-invite-payment?token=abc")
	assert.Contains(t, body, "set up your own payment")
	assert.Contains(t, body, "Set up your membership")
	assert.Contains(t, body, "family-invite-payment")
}
