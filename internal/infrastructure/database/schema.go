package database

import (
	"context"
	"fmt"
)

// Schema DDL, applied idempotently at startup. The uniqueness rules that the
// settlement engine's correctness rests on live here, not in application
// code: a crashed process or a concurrent writer cannot bypass them.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name     TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'user',
		ledger_addr   TEXT NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT users_ledger_addr_key UNIQUE (ledger_addr),
		CONSTRAINT users_role_check CHECK (role IN ('user', 'author', 'seller', 'admin'))
	)`,

	`CREATE TABLE IF NOT EXISTS books (
		id                 UUID PRIMARY KEY,
		title              TEXT NOT NULL,
		description        TEXT NOT NULL DEFAULT '',
		price              NUMERIC(12,2) NOT NULL,
		royalty_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
		pdf_hash           TEXT NOT NULL,
		cover_hash         TEXT NOT NULL DEFAULT '',
		ledger_id          BIGINT,
		submit_tx_hash     TEXT,
		pending_price      NUMERIC(12,2),
		price_tx_hash      TEXT,
		author_id          UUID REFERENCES users(id),
		seller_id          UUID REFERENCES users(id),
		is_active          BOOLEAN NOT NULL DEFAULT TRUE,
		total_sales        BIGINT NOT NULL DEFAULT 0,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT books_price_check CHECK (price >= 0),
		CONSTRAINT books_royalty_check CHECK (royalty_percentage >= 0 AND royalty_percentage <= 100),
		CONSTRAINT books_owner_check CHECK (author_id IS NOT NULL OR seller_id IS NOT NULL)
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS books_ledger_id_key
		ON books (ledger_id) WHERE ledger_id IS NOT NULL`,

	`CREATE UNIQUE INDEX IF NOT EXISTS books_submit_tx_hash_key
		ON books (submit_tx_hash) WHERE submit_tx_hash IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS purchases (
		id             UUID PRIMARY KEY,
		buyer_id       UUID NOT NULL REFERENCES users(id),
		book_id        UUID NOT NULL REFERENCES books(id),
		price_paid     NUMERIC(12,2) NOT NULL,
		tx_hash        TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL,
		block_height   BIGINT,
		royalty_exempt BOOLEAN NOT NULL DEFAULT FALSE,
		abandon_reason TEXT,
		initiated_at   TIMESTAMPTZ NOT NULL,
		verified_at    TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT purchases_status_check CHECK (status IN ('pending', 'verified', 'abandoned'))
	)`,

	// One live purchase per (buyer, book). Abandoned rows stay for audit
	// without blocking a re-purchase.
	`CREATE UNIQUE INDEX IF NOT EXISTS purchases_buyer_book_active_key
		ON purchases (buyer_id, book_id) WHERE status <> 'abandoned'`,

	// The empty string is the reserved-but-unsubmitted marker.
	`CREATE UNIQUE INDEX IF NOT EXISTS purchases_tx_hash_key
		ON purchases (tx_hash) WHERE tx_hash <> ''`,

	`CREATE INDEX IF NOT EXISTS purchases_pending_initiated_idx
		ON purchases (initiated_at) WHERE status = 'pending'`,

	`CREATE TABLE IF NOT EXISTS royalties (
		id             UUID PRIMARY KEY,
		author_id      UUID NOT NULL REFERENCES users(id),
		book_id        UUID NOT NULL REFERENCES books(id),
		purchase_id    UUID NOT NULL UNIQUE REFERENCES purchases(id),
		amount         NUMERIC(12,2) NOT NULL,
		payout_tx_hash TEXT,
		payout_status  TEXT NOT NULL DEFAULT 'unpaid',
		block_height   BIGINT,
		paid_at        TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT royalties_amount_check CHECK (amount >= 0),
		CONSTRAINT royalties_status_check CHECK (payout_status IN ('unpaid', 'submitted', 'paid'))
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS royalties_payout_tx_hash_key
		ON royalties (payout_tx_hash) WHERE payout_tx_hash IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS sync_cursors (
		category          TEXT PRIMARY KEY,
		last_synced_block BIGINT NOT NULL DEFAULT 0,
		status            TEXT NOT NULL DEFAULT 'idle',
		last_error        TEXT,
		started_at        TIMESTAMPTZ,
		completed_at      TIMESTAMPTZ,
		CONSTRAINT sync_cursors_status_check CHECK (status IN ('idle', 'running', 'failed')),
		CONSTRAINT sync_cursors_block_check CHECK (last_synced_block >= 0)
	)`,

	`CREATE TABLE IF NOT EXISTS cached_blobs (
		content_hash  TEXT PRIMARY KEY,
		kind          TEXT NOT NULL,
		original_name TEXT NOT NULL DEFAULT '',
		size_bytes    BIGINT NOT NULL,
		media_type    TEXT NOT NULL DEFAULT '',
		uploaded_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_accessed TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		access_count  BIGINT NOT NULL DEFAULT 0,
		CONSTRAINT cached_blobs_kind_check CHECK (kind IN ('primary', 'cover'))
	)`,

	`CREATE TABLE IF NOT EXISTS purchase_conflicts (
		id          UUID PRIMARY KEY,
		purchase_id UUID REFERENCES purchases(id),
		tx_hash     TEXT NOT NULL,
		detail      TEXT NOT NULL,
		resolved_at TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema. Every statement is IF NOT EXISTS so repeated
// startups are no-ops.
func (db *PostgresDB) Migrate(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	return nil
}
