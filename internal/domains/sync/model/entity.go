package model

import (
	"errors"
	"fmt"
	"time"
)

// =====================================================
// SYNC CATEGORIES
// =====================================================
// Each category sweeps independently with its own cursor.
const (
	CategoryBooks     = "books"
	CategoryPurchases = "purchases"
	CategoryRoyalties = "royalties"
)

var Categories = []string{
	CategoryBooks,
	CategoryPurchases,
	CategoryRoyalties,
}

// =====================================================
// CURSOR STATUS
// =====================================================
const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusFailed  = "failed"
)

// StaleRunningThreshold is how long a running cursor may sit before a new
// sweep treats its owner as crashed and takes over. Downstream operations
// are idempotent, so at-least-once is safe.
const StaleRunningThreshold = 10 * time.Minute

// =====================================================
// SYNC CURSOR ENTITY
// =====================================================
// Per-category bookmark of how far local state has been reconciled against
// the ledger. LastSyncedBlock only ever moves forward, including on partial
// failures.
type SyncCursor struct {
	Category        string     `json:"category" db:"category"`
	LastSyncedBlock int64      `json:"last_synced_block" db:"last_synced_block"`
	Status          string     `json:"status" db:"status"`
	LastError       *string    `json:"last_error,omitempty" db:"last_error"`
	StartedAt       *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// IsStale reports whether a running cursor looks abandoned by a crashed sweep
func (c *SyncCursor) IsStale() bool {
	if c.Status != StatusRunning || c.StartedAt == nil {
		return false
	}
	return time.Since(*c.StartedAt) > StaleRunningThreshold
}

// =====================================================
// ERRORS
// =====================================================
var (
	ErrUnknownCategory = errors.New("unknown sync category")

	// ErrSweepInProgress means another live sweep holds the cursor.
	// Not a failure; the caller just yields.
	ErrSweepInProgress = errors.New("sweep already running for category")
)

// SweepResult summarizes one completed sweep
type SweepResult struct {
	Category   string `json:"category"`
	FromBlock  int64  `json:"from_block"`
	ToBlock    int64  `json:"to_block"`
	Events     int    `json:"events"`
	Reconciled int    `json:"reconciled"`
	Conflicts  int    `json:"conflicts"`
}

func (r SweepResult) String() string {
	return fmt.Sprintf("%s sweep blocks %d-%d: %d events, %d reconciled, %d conflicts",
		r.Category, r.FromBlock, r.ToBlock, r.Events, r.Reconciled, r.Conflicts)
}
