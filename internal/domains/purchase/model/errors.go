package model

import (
	"errors"
	"fmt"
)

// =====================================================
// PREDEFINED ERRORS
// =====================================================

var (
	ErrBookNotFound       = errors.New("book not found")
	ErrBookInactive       = errors.New("book is not active")
	ErrDuplicatePurchase  = errors.New("book already purchased by this buyer")
	ErrUnknownTransaction = errors.New("no pending purchase matches transaction")
	ErrPurchaseNotPending = errors.New("purchase is not in pending status")
	ErrLedgerUnavailable  = errors.New("ledger unavailable after retries")
	ErrLedgerRejected     = errors.New("transaction rejected by ledger execution")
	ErrInconsistency      = errors.New("local state and ledger disagree")
)

// =====================================================
// CUSTOM PURCHASE ERROR
// =====================================================

type PurchaseError struct {
	Code    string
	Message string
	Err     error
}

func (e *PurchaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PurchaseError) Unwrap() error {
	return e.Err
}

// NewPurchaseError creates a new purchase error
func NewPurchaseError(code, message string, err error) *PurchaseError {
	return &PurchaseError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// =====================================================
// ERROR CONSTRUCTORS
// =====================================================

func NewBookNotFoundError(bookID string) *PurchaseError {
	return NewPurchaseError(
		ErrCodeBookNotFound,
		fmt.Sprintf("Book not found: %s", bookID),
		ErrBookNotFound,
	)
}

func NewBookInactiveError(bookID string) *PurchaseError {
	return NewPurchaseError(
		ErrCodeBookInactive,
		fmt.Sprintf("Book %s is no longer for sale", bookID),
		ErrBookInactive,
	)
}

func NewDuplicatePurchaseError(buyerID, bookID string) *PurchaseError {
	return NewPurchaseError(
		ErrCodeDuplicatePurchase,
		fmt.Sprintf("Buyer %s already holds a purchase for book %s", buyerID, bookID),
		ErrDuplicatePurchase,
	)
}

func NewUnknownTransactionError(txHash string) *PurchaseError {
	return NewPurchaseError(
		ErrCodeUnknownTransaction,
		fmt.Sprintf("No pending purchase for transaction %s", txHash),
		ErrUnknownTransaction,
	)
}

func NewLedgerUnavailableError(err error) *PurchaseError {
	return NewPurchaseError(
		ErrCodeLedgerUnavailable,
		"Ledger did not respond within the retry budget",
		errors.Join(ErrLedgerUnavailable, err),
	)
}

func NewLedgerRejectedError(txHash string) *PurchaseError {
	return NewPurchaseError(
		ErrCodeLedgerRejected,
		fmt.Sprintf("Transaction %s was mined but failed execution", txHash),
		ErrLedgerRejected,
	)
}

func NewInconsistencyError(detail string) *PurchaseError {
	return NewPurchaseError(
		ErrCodeInconsistency,
		detail,
		ErrInconsistency,
	)
}
