package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookchain-backend/internal/domains/purchase/model"
)

// =====================================================
// PURCHASE REPOSITORY IMPLEMENTATION
// =====================================================
type purchaseRepository struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepository(pool *pgxpool.Pool) PurchaseRepoInterface {
	return &purchaseRepository{pool: pool}
}

const purchaseColumns = `
	id, buyer_id, book_id, price_paid, tx_hash, status, block_height,
	royalty_exempt, abandon_reason, initiated_at, verified_at, created_at, updated_at
`

func scanPurchase(row pgx.Row) (*model.PurchaseRecord, error) {
	var p model.PurchaseRecord
	err := row.Scan(
		&p.ID,
		&p.BuyerID,
		&p.BookID,
		&p.PricePaid,
		&p.TxHash,
		&p.Status,
		&p.BlockHeight,
		&p.RoyaltyExempt,
		&p.AbandonReason,
		&p.InitiatedAt,
		&p.VerifiedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// =====================================================
// TRANSACTION-AWARE METHODS
// =====================================================

// MarkVerifiedWithTx promotes PENDING -> VERIFIED. The status guard in the
// WHERE clause makes confirmation race-free: a second confirmation for the
// same row affects zero rows and surfaces as ErrPurchaseNotPending.
func (r *purchaseRepository) MarkVerifiedWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, blockHeight int64) error {
	query := `
		UPDATE purchases
		SET status = $1,
			block_height = $2,
			verified_at = NOW(),
			updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := tx.Exec(ctx, query, model.StatusVerified, blockHeight, id, model.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark purchase verified: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrPurchaseNotPending
	}

	return nil
}

func (r *purchaseRepository) SetRoyaltyExemptWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `
		UPDATE purchases
		SET royalty_exempt = TRUE, updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to set royalty exempt: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrUnknownTransaction
	}

	return nil
}

// =====================================================
// STANDALONE METHODS
// =====================================================

// CreatePending inserts the PENDING row. The partial unique index
// uq_purchases_buyer_book (WHERE status <> 'abandoned') is the authoritative
// duplicate guard — two concurrent initiations cannot both pass.
func (r *purchaseRepository) CreatePending(ctx context.Context, p *model.PurchaseRecord) error {
	query := `
		INSERT INTO purchases (
			id, buyer_id, book_id, price_paid, tx_hash, status, initiated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		p.ID,
		p.BuyerID,
		p.BookID,
		p.PricePaid,
		p.TxHash,
		p.Status,
		p.InitiatedAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.ErrDuplicatePurchase
		}
		return fmt.Errorf("failed to create pending purchase: %w", err)
	}

	return nil
}

func (r *purchaseRepository) SetTxHash(ctx context.Context, id uuid.UUID, txHash string) error {
	query := `
		UPDATE purchases
		SET tx_hash = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.pool.Exec(ctx, query, txHash, id, model.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to set purchase tx hash: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrPurchaseNotPending
	}

	return nil
}

func (r *purchaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PurchaseRecord, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1`

	p, err := scanPurchase(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUnknownTransaction
		}
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}

	return p, nil
}

func (r *purchaseRepository) GetByTxHash(ctx context.Context, txHash string) (*model.PurchaseRecord, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE tx_hash = $1`

	p, err := scanPurchase(r.pool.QueryRow(ctx, query, txHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUnknownTransaction
		}
		return nil, fmt.Errorf("failed to get purchase by tx hash: %w", err)
	}

	return p, nil
}

func (r *purchaseRepository) GetActiveByPair(ctx context.Context, buyerID, bookID uuid.UUID) (*model.PurchaseRecord, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE buyer_id = $1 AND book_id = $2 AND status <> $3
	`

	p, err := scanPurchase(r.pool.QueryRow(ctx, query, buyerID, bookID, model.StatusAbandoned))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get purchase by pair: %w", err)
	}

	return p, nil
}

func (r *purchaseRepository) MarkAbandoned(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE purchases
		SET status = $1, abandon_reason = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := r.pool.Exec(ctx, query, model.StatusAbandoned, reason, id, model.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to abandon purchase: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrPurchaseNotPending
	}

	return nil
}

func (r *purchaseRepository) ListPending(ctx context.Context, limit int) ([]*model.PurchaseRecord, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE status = $1
		ORDER BY initiated_at ASC
		LIMIT $2
	`

	return r.listPurchases(ctx, query, model.StatusPending, limit)
}

func (r *purchaseRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*model.PurchaseRecord, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE status = $1 AND initiated_at < $2
		ORDER BY initiated_at ASC
		LIMIT $3
	`

	return r.listPurchases(ctx, query, model.StatusPending, cutoff, limit)
}

func (r *purchaseRepository) listPurchases(ctx context.Context, query string, args ...interface{}) ([]*model.PurchaseRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*model.PurchaseRecord
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase row: %w", err)
		}
		purchases = append(purchases, p)
	}

	return purchases, rows.Err()
}

func (r *purchaseRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, page, limit int) ([]*model.PurchaseRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	var total int
	countQuery := `SELECT COUNT(*) FROM purchases WHERE buyer_id = $1`
	if err := r.pool.QueryRow(ctx, countQuery, buyerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE buyer_id = $1
		ORDER BY initiated_at DESC
		LIMIT $2 OFFSET $3
	`

	purchases, err := r.listPurchases(ctx, query, buyerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return purchases, total, nil
}

func (r *purchaseRepository) HasVerified(ctx context.Context, buyerID, bookID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM purchases
			WHERE buyer_id = $1 AND book_id = $2 AND status = $3
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, buyerID, bookID, model.StatusVerified).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check verified purchase: %w", err)
	}

	return exists, nil
}

func (r *purchaseRepository) HasPendingForBook(ctx context.Context, bookID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM purchases
			WHERE book_id = $1 AND status = $2
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, bookID, model.StatusPending).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending purchases: %w", err)
	}

	return exists, nil
}

func (r *purchaseRepository) RecordConflict(ctx context.Context, conflict *model.PurchaseConflict) error {
	query := `
		INSERT INTO purchase_conflicts (id, purchase_id, tx_hash, detail)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		conflict.ID,
		conflict.PurchaseID,
		conflict.TxHash,
		conflict.Detail,
	).Scan(&conflict.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record purchase conflict: %w", err)
	}

	return nil
}
