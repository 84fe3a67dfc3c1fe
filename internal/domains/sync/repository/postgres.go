package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookchain-backend/internal/domains/sync/model"
	"bookchain-backend/pkg/database"
)

type SyncRepository struct {
	db *pgxpool.Pool
}

func NewSyncRepository(db *pgxpool.Pool) SyncRepoInterface {
	return &SyncRepository{db: db}
}

const cursorColumns = `category, last_synced_block, status, last_error, started_at, completed_at`

func scanCursor(row pgx.Row) (*model.SyncCursor, error) {
	var c model.SyncCursor
	err := row.Scan(
		&c.Category, &c.LastSyncedBlock, &c.Status,
		&c.LastError, &c.StartedAt, &c.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// EnsureCursors seeds a cursor row per category. All categories are seeded
// in one transaction so a partially initialized cursor set never exists.
func (r *SyncRepository) EnsureCursors(ctx context.Context) error {
	return database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		for _, category := range model.Categories {
			query := `
				INSERT INTO sync_cursors (category, last_synced_block, status)
				VALUES ($1, 0, $2)
				ON CONFLICT (category) DO NOTHING`

			if _, err := tx.Exec(ctx, query, category, model.StatusIdle); err != nil {
				return fmt.Errorf("failed to seed sync cursor %s: %w", category, err)
			}
		}
		return nil
	})
}

func (r *SyncRepository) GetCursor(ctx context.Context, category string) (*model.SyncCursor, error) {
	query := `SELECT ` + cursorColumns + ` FROM sync_cursors WHERE category = $1`

	cursor, err := scanCursor(r.db.QueryRow(ctx, query, category))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.ErrUnknownCategory
		}
		return nil, fmt.Errorf("failed to get sync cursor: %w", err)
	}
	return cursor, nil
}

func (r *SyncRepository) ListCursors(ctx context.Context) ([]*model.SyncCursor, error) {
	query := `SELECT ` + cursorColumns + ` FROM sync_cursors ORDER BY category`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync cursors: %w", err)
	}
	defer rows.Close()

	var cursors []*model.SyncCursor
	for rows.Next() {
		cursor, err := scanCursor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync cursor: %w", err)
		}
		cursors = append(cursors, cursor)
	}
	return cursors, rows.Err()
}

// AcquireSweep claims the cursor in a single guarded UPDATE. The interval
// clause lets a new sweep take over a running cursor whose owner died.
func (r *SyncRepository) AcquireSweep(ctx context.Context, category string) (*model.SyncCursor, error) {
	query := `
		UPDATE sync_cursors
		SET status = $1, started_at = NOW(), completed_at = NULL, last_error = NULL
		WHERE category = $2
		  AND (status <> $1 OR started_at IS NULL OR started_at < NOW() - $3::interval)
		RETURNING ` + cursorColumns

	interval := fmt.Sprintf("%d seconds", int(model.StaleRunningThreshold.Seconds()))

	cursor, err := scanCursor(r.db.QueryRow(ctx, query, model.StatusRunning, category, interval))
	if err != nil {
		if err == pgx.ErrNoRows {
			// Distinguish a held cursor from a category that does not exist
			if _, getErr := r.GetCursor(ctx, category); getErr != nil {
				return nil, getErr
			}
			return nil, model.ErrSweepInProgress
		}
		return nil, fmt.Errorf("failed to acquire sync cursor: %w", err)
	}
	return cursor, nil
}

func (r *SyncRepository) AdvanceBlock(ctx context.Context, category string, block int64) error {
	query := `
		UPDATE sync_cursors
		SET last_synced_block = GREATEST(last_synced_block, $1)
		WHERE category = $2`

	if _, err := r.db.Exec(ctx, query, block, category); err != nil {
		return fmt.Errorf("failed to advance sync cursor: %w", err)
	}
	return nil
}

func (r *SyncRepository) CompleteSweep(ctx context.Context, category string) error {
	query := `
		UPDATE sync_cursors
		SET status = $1, completed_at = NOW(), last_error = NULL
		WHERE category = $2`

	if _, err := r.db.Exec(ctx, query, model.StatusIdle, category); err != nil {
		return fmt.Errorf("failed to release sync cursor: %w", err)
	}
	return nil
}

func (r *SyncRepository) FailSweep(ctx context.Context, category string, cause string) error {
	query := `
		UPDATE sync_cursors
		SET status = $1, completed_at = NOW(), last_error = $2
		WHERE category = $3`

	if _, err := r.db.Exec(ctx, query, model.StatusFailed, cause, category); err != nil {
		return fmt.Errorf("failed to mark sync cursor failed: %w", err)
	}
	return nil
}
