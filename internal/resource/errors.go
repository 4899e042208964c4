package resource

import "errors"

var (
	ErrNotFound              = errors.New("resource: not found")
	ErrAccessDenied          = errors.New("resource: access denied")
	ErrRecipientNotFound     = errors.New("resource: recipient not found")
	ErrRecipientInactive     = errors.New("resource: recipient inactive")
	ErrDeleteWindowExpired   = errors.New("resource: delete window expired")
	ErrInsufficientClearance = errors.New("resource: insufficient clearance")
	ErrInvalidInput          = errors.New("resource: invalid input")
)
