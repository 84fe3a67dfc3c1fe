package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookchain-backend/internal/domains/royalty/model"
)

// =====================================================
// ROYALTY REPOSITORY IMPLEMENTATION
// =====================================================
type royaltyRepository struct {
	pool *pgxpool.Pool
}

func NewRoyaltyRepository(pool *pgxpool.Pool) RoyaltyRepoInterface {
	return &royaltyRepository{pool: pool}
}

const royaltyColumns = `
	id, author_id, book_id, purchase_id, amount,
	payout_tx_hash, payout_status, block_height, paid_at, created_at, updated_at
`

func scanRoyalty(row pgx.Row) (*model.RoyaltyRecord, error) {
	var r model.RoyaltyRecord
	err := row.Scan(
		&r.ID,
		&r.AuthorID,
		&r.BookID,
		&r.PurchaseID,
		&r.Amount,
		&r.PayoutTxHash,
		&r.PayoutStatus,
		&r.BlockHeight,
		&r.PaidAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// =====================================================
// TRANSACTION-AWARE METHODS
// =====================================================

func (r *royaltyRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, royalty *model.RoyaltyRecord) error {
	query := `
		INSERT INTO royalties (
			id, author_id, book_id, purchase_id, amount, payout_status
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		royalty.ID,
		royalty.AuthorID,
		royalty.BookID,
		royalty.PurchaseID,
		royalty.Amount,
		royalty.PayoutStatus,
	).Scan(&royalty.CreatedAt, &royalty.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.ErrAlreadyDerived
		}
		return fmt.Errorf("failed to create royalty: %w", err)
	}

	return nil
}

// =====================================================
// STANDALONE METHODS
// =====================================================

func (r *royaltyRepository) GetByPurchaseID(ctx context.Context, purchaseID uuid.UUID) (*model.RoyaltyRecord, error) {
	query := `SELECT ` + royaltyColumns + ` FROM royalties WHERE purchase_id = $1`

	rec, err := scanRoyalty(r.pool.QueryRow(ctx, query, purchaseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRoyaltyNotFound
		}
		return nil, fmt.Errorf("failed to get royalty by purchase: %w", err)
	}

	return rec, nil
}

func (r *royaltyRepository) GetByPayoutTxHash(ctx context.Context, txHash string) (*model.RoyaltyRecord, error) {
	query := `SELECT ` + royaltyColumns + ` FROM royalties WHERE payout_tx_hash = $1`

	rec, err := scanRoyalty(r.pool.QueryRow(ctx, query, txHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRoyaltyNotFound
		}
		return nil, fmt.Errorf("failed to get royalty by payout tx: %w", err)
	}

	return rec, nil
}

func (r *royaltyRepository) ListUnpaid(ctx context.Context, limit int) ([]*model.RoyaltyRecord, error) {
	return r.listByStatus(ctx, model.PayoutStatusUnpaid, limit)
}

func (r *royaltyRepository) ListSubmitted(ctx context.Context, limit int) ([]*model.RoyaltyRecord, error) {
	return r.listByStatus(ctx, model.PayoutStatusSubmitted, limit)
}

func (r *royaltyRepository) listByStatus(ctx context.Context, status string, limit int) ([]*model.RoyaltyRecord, error) {
	query := `
		SELECT ` + royaltyColumns + `
		FROM royalties
		WHERE payout_status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list royalties: %w", err)
	}
	defer rows.Close()

	var royalties []*model.RoyaltyRecord
	for rows.Next() {
		rec, err := scanRoyalty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan royalty row: %w", err)
		}
		royalties = append(royalties, rec)
	}

	return royalties, rows.Err()
}

func (r *royaltyRepository) MarkPayoutSubmitted(ctx context.Context, id uuid.UUID, txHash string) error {
	query := `
		UPDATE royalties
		SET payout_tx_hash = $1, payout_status = $2, updated_at = NOW()
		WHERE id = $3 AND payout_status = $4
	`

	result, err := r.pool.Exec(ctx, query, txHash, model.PayoutStatusSubmitted, id, model.PayoutStatusUnpaid)
	if err != nil {
		return fmt.Errorf("failed to mark payout submitted: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrNotUnpaid
	}

	return nil
}

func (r *royaltyRepository) MarkPaid(ctx context.Context, id uuid.UUID, blockHeight int64) error {
	query := `
		UPDATE royalties
		SET payout_status = $1, block_height = $2, paid_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND payout_status = $4
	`

	result, err := r.pool.Exec(ctx, query, model.PayoutStatusPaid, blockHeight, id, model.PayoutStatusSubmitted)
	if err != nil {
		return fmt.Errorf("failed to mark royalty paid: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrRoyaltyNotFound
	}

	return nil
}

func (r *royaltyRepository) ResetPayout(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE royalties
		SET payout_tx_hash = NULL, payout_status = $1, updated_at = NOW()
		WHERE id = $2 AND payout_status = $3
	`

	result, err := r.pool.Exec(ctx, query, model.PayoutStatusUnpaid, id, model.PayoutStatusSubmitted)
	if err != nil {
		return fmt.Errorf("failed to reset payout: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrRoyaltyNotFound
	}

	return nil
}

func (r *royaltyRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID, page, limit int) ([]*model.RoyaltyRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	var total int
	countQuery := `SELECT COUNT(*) FROM royalties WHERE author_id = $1`
	if err := r.pool.QueryRow(ctx, countQuery, authorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count royalties: %w", err)
	}

	query := `
		SELECT ` + royaltyColumns + `
		FROM royalties
		WHERE author_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, authorID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list author royalties: %w", err)
	}
	defer rows.Close()

	var royalties []*model.RoyaltyRecord
	for rows.Next() {
		rec, err := scanRoyalty(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan royalty row: %w", err)
		}
		royalties = append(royalties, rec)
	}

	return royalties, total, rows.Err()
}

func (r *royaltyRepository) GetAuthorEarnings(ctx context.Context, authorID uuid.UUID) (*model.AuthorEarnings, error) {
	query := `
		SELECT
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(amount) FILTER (WHERE payout_status = $2), 0),
			COUNT(*)
		FROM royalties
		WHERE author_id = $1
	`

	earnings := &model.AuthorEarnings{AuthorID: authorID}
	err := r.pool.QueryRow(ctx, query, authorID, model.PayoutStatusPaid).Scan(
		&earnings.TotalEarned,
		&earnings.TotalPaid,
		&earnings.SaleCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate author earnings: %w", err)
	}

	earnings.Outstanding = earnings.TotalEarned.Sub(earnings.TotalPaid)
	return earnings, nil
}
