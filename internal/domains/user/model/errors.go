package model

import (
	"errors"
	"fmt"
)

// =====================================================
// ERROR CODES
// =====================================================

const (
	ErrCodeUserNotFound       = "USR001"
	ErrCodeEmailTaken         = "USR002"
	ErrCodeAddressTaken       = "USR003"
	ErrCodeInvalidCredentials = "USR004"
	ErrCodeAccountDisabled    = "USR005"
)

// =====================================================
// PREDEFINED ERRORS
// =====================================================

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrAddressTaken       = errors.New("ledger address already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
)

// =====================================================
// CUSTOM USER ERROR
// =====================================================

type UserError struct {
	Code    string
	Message string
	Err     error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func NewUserError(code, message string, err error) *UserError {
	return &UserError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// =====================================================
// ERROR CONSTRUCTORS
// =====================================================

func NewEmailTakenError(email string) *UserError {
	return NewUserError(
		ErrCodeEmailTaken,
		fmt.Sprintf("Email %s is already registered", email),
		ErrEmailTaken,
	)
}

func NewAddressTakenError(addr string) *UserError {
	return NewUserError(
		ErrCodeAddressTaken,
		fmt.Sprintf("Ledger address %s is already registered", addr),
		ErrAddressTaken,
	)
}

func NewInvalidCredentialsError() *UserError {
	return NewUserError(
		ErrCodeInvalidCredentials,
		"Invalid email or password",
		ErrInvalidCredentials,
	)
}
