package shared

import "github.com/google/uuid"

// =====================================================
// USER ROLES
// =====================================================
type Role string

const (
	RoleUser   Role = "user"
	RoleAuthor Role = "author"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Principal is the authenticated identity handed to the core by the
// identity collaborator. The core trusts it as given.
type Principal struct {
	UserID     uuid.UUID
	Role       Role
	LedgerAddr string
}

// CanListBooks reports whether the role may create listings
func (p Principal) CanListBooks() bool {
	return p.Role == RoleAuthor || p.Role == RoleSeller || p.Role == RoleAdmin
}

// =====================================================
// ASYNC TASK TYPES
// =====================================================
const (
	TypeSyncSweep        = "sync:sweep"
	TypeReapExpired      = "purchase:reap_expired"
	TypeSubmitPayouts    = "royalty:submit_payouts"
	TypeBlobEvictionScan = "blob:eviction_scan"
)

// =====================================================
// QUEUES
// =====================================================
const (
	QueueSync    = "sync"
	QueueDefault = "default"
)

// SyncSweepPayload selects which cursor category a sweep task drives
type SyncSweepPayload struct {
	Category string `json:"category"`
}

// ReapExpiredPayload bounds one reap batch
type ReapExpiredPayload struct {
	Limit int `json:"limit"`
}

// SubmitPayoutsPayload bounds one payout submission batch
type SubmitPayoutsPayload struct {
	Limit int `json:"limit"`
}

// BlobEvictionScanPayload bounds one eviction ranking
type BlobEvictionScanPayload struct {
	Limit int `json:"limit"`
}
