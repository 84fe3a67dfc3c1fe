package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// =====================================================
// REQUEST DTOs
// =====================================================

// CreateListingRequest carries a new listing. Content must already live in
// the blob cache; the request references it by hash only.
type CreateListingRequest struct {
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	RoyaltyPercentage decimal.Decimal `json:"royalty_percentage"`
	PDFHash           string          `json:"pdf_hash"`
	CoverHash         string          `json:"cover_hash"`
}

func (r CreateListingRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Description, validation.Length(0, 5000)),
		validation.Field(&r.PDFHash, validation.Required),
		validation.Field(&r.CoverHash, validation.Required),
	)
}

// UpdatePriceRequest asks for a ledger-first price change
type UpdatePriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

// =====================================================
// RESPONSE DTOs
// =====================================================

type BookResponse struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	RoyaltyPercentage decimal.Decimal `json:"royalty_percentage"`
	CoverHash         string          `json:"cover_hash"`
	LedgerID          *int64          `json:"ledger_id,omitempty"`
	IsActive          bool            `json:"is_active"`
	TotalSales        int             `json:"total_sales"`
}

func (b *Book) ToResponse() BookResponse {
	return BookResponse{
		ID:                b.ID.String(),
		Title:             b.Title,
		Description:       b.Description,
		Price:             b.Price,
		RoyaltyPercentage: b.RoyaltyPercentage,
		CoverHash:         b.CoverHash,
		LedgerID:          b.LedgerID,
		IsActive:          b.IsActive,
		TotalSales:        b.TotalSales,
	}
}
