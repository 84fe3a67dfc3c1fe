package repository

import (
	"context"

	"github.com/google/uuid"

	"bookchain-backend/internal/domains/user/model"
)

// UserRepoInterface persists identity accounts
type UserRepoInterface interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// GetByLedgerAddress resolves the account behind an on-chain address
	GetByLedgerAddress(ctx context.Context, addr string) (*model.User, error)

	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
