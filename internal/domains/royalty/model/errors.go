package model

import (
	"errors"
	"fmt"
)

// =====================================================
// ERROR CODES
// =====================================================
const (
	ErrCodeRoyaltyNotFound = "ROY001"
	ErrCodeAlreadyDerived  = "ROY002"
	ErrCodeNotUnpaid       = "ROY003"
)

// =====================================================
// PREDEFINED ERRORS
// =====================================================

var (
	ErrRoyaltyNotFound = errors.New("royalty record not found")
	ErrAlreadyDerived  = errors.New("royalty already derived for purchase")
	ErrNotUnpaid       = errors.New("royalty payout is not in unpaid status")
)

// =====================================================
// CUSTOM ROYALTY ERROR
// =====================================================

type RoyaltyError struct {
	Code    string
	Message string
	Err     error
}

func (e *RoyaltyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RoyaltyError) Unwrap() error {
	return e.Err
}

func NewRoyaltyError(code, message string, err error) *RoyaltyError {
	return &RoyaltyError{Code: code, Message: message, Err: err}
}

func NewAlreadyDerivedError(purchaseID string) *RoyaltyError {
	return NewRoyaltyError(
		ErrCodeAlreadyDerived,
		fmt.Sprintf("Purchase %s already has a royalty record", purchaseID),
		ErrAlreadyDerived,
	)
}
