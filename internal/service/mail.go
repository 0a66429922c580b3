package service

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"

	"icesos/familyhub/internal/model"
)

type MailSender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

// logSender is wired when SMTP is not configured: it records the send and
// succeeds, keeping the notification path observable in local setups.
type logSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) MailSender {
	return &logSender{logger: logger}
}

func (s *logSender) Send(_ context.Context, to string, subject string, _ string) error {
	s.logger.Info("mail delivery skipped (smtp not configured)",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}

// composeInviteEmail builds the invitation mail. The wording differs by
// billing type: self-billed recipients are asked to set up their own payment,
// owner-billed recipients are told the inviter covers the cost.
func composeInviteEmail(invite *model.Invite, link string) (subject string, body string) {
	name := html.EscapeString(invite.InviteeName)
	relationship := html.EscapeString(invite.Relationship)
	escapedLink := html.EscapeString(link)

	subject = "You have been invited to join a family protection group"

	var billingNote, action string
	if invite.BillingType == model.BillingTypeSelf {
		billingNote = "You will be asked to set up your own payment to activate your protection plan."
		action = "Set up your membership"
	} else {
		billingNote = "The cost of your membership is covered by the person who invited you."
		action = "Accept the invitation"
	}

	body = fmt.Sprintf(`<html>
<body>
<p>Hi %s,</p>
<p>You have been invited to join a family emergency protection group as their %s.</p>
<p>%s</p>
<p><a href="%s">%s</a></p>
<p>This invitation link is valid until %s and can be used only once.</p>
</body>
</html>`,
		name, relationship, billingNote, escapedLink, action,
		invite.ExpiresAt.UTC().Format("2 Jan 2006 15:04 MST"))
	return subject, body
}
