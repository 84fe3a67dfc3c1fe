package model

import (
	"time"

	"github.com/google/uuid"

	"bookchain-backend/internal/shared"
)

// User is the identity collaborator's account record. The settlement core
// only consumes it as a Principal; password and token handling stay here.
type User struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	Email        string      `json:"email" db:"email"`
	PasswordHash string      `json:"-" db:"password_hash"`
	FullName     string      `json:"full_name" db:"full_name"`
	Role         shared.Role `json:"role" db:"role"`

	// LedgerAddr is the account's on-chain address. Purchases and payouts
	// are signed against it.
	LedgerAddr string `json:"ledger_addr" db:"ledger_addr"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Principal projects the account into the identity the core trusts
func (u *User) Principal() shared.Principal {
	return shared.Principal{
		UserID:     u.ID,
		Role:       u.Role,
		LedgerAddr: u.LedgerAddr,
	}
}
