package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"bookchain-backend/internal/domains/catalog/model"
)

// =====================================================
// CATALOG REPOSITORY IMPLEMENTATION
// =====================================================
type catalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepoInterface {
	return &catalogRepository{pool: pool}
}

const bookColumns = `
	id, title, description, price, royalty_percentage, pdf_hash, cover_hash,
	ledger_id, submit_tx_hash, pending_price, price_tx_hash,
	author_id, seller_id, is_active, total_sales, created_at, updated_at
`

func scanBook(row pgx.Row) (*model.Book, error) {
	var b model.Book
	err := row.Scan(
		&b.ID,
		&b.Title,
		&b.Description,
		&b.Price,
		&b.RoyaltyPercentage,
		&b.PDFHash,
		&b.CoverHash,
		&b.LedgerID,
		&b.SubmitTxHash,
		&b.PendingPrice,
		&b.PriceTxHash,
		&b.AuthorID,
		&b.SellerID,
		&b.IsActive,
		&b.TotalSales,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// =====================================================
// TRANSACTION-AWARE METHODS
// =====================================================

func (r *catalogRepository) IncrementSalesWithTx(ctx context.Context, tx pgx.Tx, bookID uuid.UUID) error {
	query := `
		UPDATE books
		SET total_sales = total_sales + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, bookID)
	if err != nil {
		return fmt.Errorf("failed to increment sales: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrBookNotFound
	}

	return nil
}

// =====================================================
// STANDALONE METHODS
// =====================================================

func (r *catalogRepository) Create(ctx context.Context, book *model.Book) error {
	query := `
		INSERT INTO books (
			id, title, description, price, royalty_percentage,
			pdf_hash, cover_hash, submit_tx_hash, author_id, seller_id, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		book.ID,
		book.Title,
		book.Description,
		book.Price,
		book.RoyaltyPercentage,
		book.PDFHash,
		book.CoverHash,
		book.SubmitTxHash,
		book.AuthorID,
		book.SellerID,
		book.IsActive,
	).Scan(&book.CreatedAt, &book.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}

	return nil
}

func (r *catalogRepository) SetSubmitTxHash(ctx context.Context, bookID uuid.UUID, txHash string) error {
	query := `
		UPDATE books
		SET submit_tx_hash = $1, updated_at = NOW()
		WHERE id = $2 AND submit_tx_hash IS NULL
	`

	result, err := r.pool.Exec(ctx, query, txHash, bookID)
	if err != nil {
		return fmt.Errorf("failed to record submit tx: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrBookNotFound
	}

	return nil
}

func (r *catalogRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	b, err := scanBook(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	return b, nil
}

func (r *catalogRepository) GetByLedgerID(ctx context.Context, ledgerID int64) (*model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE ledger_id = $1`

	b, err := scanBook(r.pool.QueryRow(ctx, query, ledgerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book by ledger id: %w", err)
	}

	return b, nil
}

func (r *catalogRepository) GetBySubmitTxHash(ctx context.Context, txHash string) (*model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE submit_tx_hash = $1`

	b, err := scanBook(r.pool.QueryRow(ctx, query, txHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book by submit tx: %w", err)
	}

	return b, nil
}

func (r *catalogRepository) List(ctx context.Context, activeOnly bool, page, limit int) ([]*model.Book, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	where := ""
	if activeOnly {
		where = "WHERE is_active = TRUE"
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM books %s`, where)
	if err := r.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM books %s
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, bookColumns, where)

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan book row: %w", err)
		}
		books = append(books, b)
	}

	return books, total, rows.Err()
}

// AssignLedgerID is the one-time irreversible binding. The IS NULL guard in
// the WHERE clause enforces it at the storage layer, not just in code.
func (r *catalogRepository) AssignLedgerID(ctx context.Context, bookID uuid.UUID, ledgerID int64) error {
	query := `
		UPDATE books
		SET ledger_id = $1, updated_at = NOW()
		WHERE id = $2 AND ledger_id IS NULL
	`

	result, err := r.pool.Exec(ctx, query, ledgerID, bookID)
	if err != nil {
		return fmt.Errorf("failed to assign ledger id: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Either the book is missing or the binding already happened.
		if _, getErr := r.GetByID(ctx, bookID); getErr != nil {
			return getErr
		}
		return model.ErrAlreadyAssigned
	}

	return nil
}

// SetPendingPrice re-checks the pending-purchase guard inside the UPDATE: a
// purchase initiated after the service-level check would otherwise settle at
// a price the chain no longer carries.
func (r *catalogRepository) SetPendingPrice(ctx context.Context, bookID uuid.UUID, price decimal.Decimal, txHash string) error {
	query := `
		UPDATE books
		SET pending_price = $1, price_tx_hash = $2, updated_at = NOW()
		WHERE id = $3
		  AND price_tx_hash IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM purchases WHERE book_id = $3 AND status = 'pending'
		  )
	`

	result, err := r.pool.Exec(ctx, query, price, txHash, bookID)
	if err != nil {
		return fmt.Errorf("failed to set pending price: %w", err)
	}

	if result.RowsAffected() == 0 {
		var inFlight bool
		check := `SELECT price_tx_hash IS NOT NULL FROM books WHERE id = $1`
		if err := r.pool.QueryRow(ctx, check, bookID).Scan(&inFlight); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrBookNotFound
			}
			return fmt.Errorf("failed to set pending price: %w", err)
		}
		if inFlight {
			return model.ErrPriceChangePending
		}
		return model.ErrPendingPurchases
	}

	return nil
}

func (r *catalogRepository) ApplyPendingPrice(ctx context.Context, txHash string) error {
	query := `
		UPDATE books
		SET price = pending_price,
			pending_price = NULL,
			price_tx_hash = NULL,
			updated_at = NOW()
		WHERE price_tx_hash = $1 AND pending_price IS NOT NULL
	`

	result, err := r.pool.Exec(ctx, query, txHash)
	if err != nil {
		return fmt.Errorf("failed to apply pending price: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrBookNotFound
	}

	return nil
}

func (r *catalogRepository) ClearPendingPrice(ctx context.Context, txHash string) error {
	query := `
		UPDATE books
		SET pending_price = NULL, price_tx_hash = NULL, updated_at = NOW()
		WHERE price_tx_hash = $1
	`

	if _, err := r.pool.Exec(ctx, query, txHash); err != nil {
		return fmt.Errorf("failed to clear pending price: %w", err)
	}

	return nil
}

func (r *catalogRepository) ListPendingPriceChanges(ctx context.Context, limit int) ([]*model.Book, error) {
	query := `
		SELECT ` + bookColumns + `
		FROM books
		WHERE price_tx_hash IS NOT NULL
		ORDER BY updated_at ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending price changes: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (r *catalogRepository) SetActive(ctx context.Context, bookID uuid.UUID, active bool) error {
	query := `
		UPDATE books
		SET is_active = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, active, bookID)
	if err != nil {
		return fmt.Errorf("failed to set book active flag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrBookNotFound
	}

	return nil
}

func (r *catalogRepository) IsContentReferenced(ctx context.Context, contentHash string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM books
			WHERE is_active = TRUE AND (pdf_hash = $1 OR cover_hash = $1)
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, contentHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check content references: %w", err)
	}

	return exists, nil
}
