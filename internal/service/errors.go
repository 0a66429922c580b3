package service

import "errors"

var (
	ErrFieldRequired       = errors.New("required field missing")
	ErrInvalidBillingType  = errors.New("billing_type must be \"owner\" or \"self\"")
	ErrContactLimitReached = errors.New("emergency contact limit reached")
	ErrInviteInvalid       = errors.New("invite token invalid or expired")
	ErrMembershipExists    = errors.New("membership already exists for this group")
	ErrInviteNotFound      = errors.New("invite not found")
	ErrResendThrottled     = errors.New("invite was recently resent, try again later")
)
