package model

import (
	"errors"
	"fmt"
)

// =====================================================
// ERROR CODES
// =====================================================
const (
	ErrCodeInvalidRoyalty      = "CAT001"
	ErrCodeInvalidPrice        = "CAT002"
	ErrCodeMissingContent      = "CAT003"
	ErrCodeAlreadyAssigned     = "CAT004"
	ErrCodeBookNotFound        = "CAT005"
	ErrCodeNoOwner             = "CAT006"
	ErrCodePriceChangePending  = "CAT007"
	ErrCodePendingPurchases    = "CAT008"
	ErrCodeForbidden           = "CAT009"
)

// =====================================================
// PREDEFINED ERRORS
// =====================================================

var (
	ErrInvalidRoyalty     = errors.New("royalty percentage must be between 0 and 100")
	ErrInvalidPrice       = errors.New("price must not be negative")
	ErrMissingContent     = errors.New("content hash not present in blob cache")
	ErrAlreadyAssigned    = errors.New("ledger id already assigned")
	ErrBookNotFound       = errors.New("book not found")
	ErrNoOwner            = errors.New("book needs an author or a seller")
	ErrPriceChangePending = errors.New("a ledger price change is already in flight")
	ErrPendingPurchases   = errors.New("book has pending purchases at the current price")
	ErrForbidden          = errors.New("role is not allowed to manage listings")
)

// =====================================================
// CUSTOM CATALOG ERROR
// =====================================================

type CatalogError struct {
	Code    string
	Message string
	Err     error
}

func (e *CatalogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

func NewCatalogError(code, message string, err error) *CatalogError {
	return &CatalogError{Code: code, Message: message, Err: err}
}

// =====================================================
// ERROR CONSTRUCTORS
// =====================================================

func NewInvalidRoyaltyError(royalty string) *CatalogError {
	return NewCatalogError(
		ErrCodeInvalidRoyalty,
		fmt.Sprintf("Royalty percentage %s is outside [0, 100]", royalty),
		ErrInvalidRoyalty,
	)
}

func NewInvalidPriceError(price string) *CatalogError {
	return NewCatalogError(
		ErrCodeInvalidPrice,
		fmt.Sprintf("Price %s is negative", price),
		ErrInvalidPrice,
	)
}

func NewMissingContentError(hash string) *CatalogError {
	return NewCatalogError(
		ErrCodeMissingContent,
		fmt.Sprintf("Content hash %s cannot be resolved", hash),
		ErrMissingContent,
	)
}

func NewAlreadyAssignedError(bookID string) *CatalogError {
	return NewCatalogError(
		ErrCodeAlreadyAssigned,
		fmt.Sprintf("Book %s already carries a ledger id", bookID),
		ErrAlreadyAssigned,
	)
}

func NewBookNotFoundError(bookID string) *CatalogError {
	return NewCatalogError(
		ErrCodeBookNotFound,
		fmt.Sprintf("Book not found: %s", bookID),
		ErrBookNotFound,
	)
}
