package auth

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrAlreadyExists      = errors.New("auth: already exists")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountLocked      = errors.New("auth: account locked")
	ErrAccountDeactivated = errors.New("auth: account deactivated")

	ErrTokenInvalid   = errors.New("auth: invalid token")
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenRevoked   = errors.New("auth: token revoked")
	ErrWrongTokenType = errors.New("auth: wrong token type")
	ErrMalformedToken = errors.New("auth: malformed token")

	ErrInsufficientRole      = errors.New("auth: insufficient role")
	ErrInsufficientClearance = errors.New("auth: insufficient clearance")
	ErrDepartmentRestricted  = errors.New("auth: department restricted")
)

// RoleError reports a role check failure with the values involved.
type RoleError struct {
	Allowed []Role
	Actual  Role
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("auth: role %q not in allowed set %v", e.Actual, e.Allowed)
}

func (e *RoleError) Unwrap() error { return ErrInsufficientRole }

// ClearanceError reports a clearance check failure with required vs actual levels.
type ClearanceError struct {
	Required int
	Actual   int
}

func (e *ClearanceError) Error() string {
	return fmt.Sprintf("auth: clearance %d below required %d", e.Actual, e.Required)
}

func (e *ClearanceError) Unwrap() error { return ErrInsufficientClearance }

// DepartmentError reports a department restriction with the values involved.
type DepartmentError struct {
	Allowed []Department
	Actual  Department
}

func (e *DepartmentError) Error() string {
	return fmt.Sprintf("auth: department %q not in allowed set %v", e.Actual, e.Allowed)
}

func (e *DepartmentError) Unwrap() error { return ErrDepartmentRestricted }
