package errors

import "errors"

var (
	ErrInvalidSocietyID   = errors.New("society id is required")
	ErrInvalidUserID      = errors.New("user id is required")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrForbidden          = errors.New("caller is not allowed to manage memberships")
)
