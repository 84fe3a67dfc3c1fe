package service

import (
	"context"

	"github.com/google/uuid"

	"bookchain-backend/internal/domains/user/model"
)

// UserService is the identity collaborator. The settlement core trusts the
// principals it issues; nothing here touches ledger or settlement state.
type UserService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*model.User, error)

	// ResolveLedgerAddress maps an on-chain address back to the owning
	// account id. The sync sweep uses it for foreign purchase events.
	ResolveLedgerAddress(ctx context.Context, addr string) (uuid.UUID, error)
}
