package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// REQUEST DTOs
// =====================================================

// InitiatePurchaseRequest is the inbound purchase intent
type InitiatePurchaseRequest struct {
	BookID string `json:"book_id"`
}

func (r InitiatePurchaseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BookID, validation.Required, validation.By(validUUID)),
	)
}

func validUUID(value interface{}) error {
	s, _ := value.(string)
	_, err := uuid.Parse(s)
	return err
}

// =====================================================
// RESPONSE DTOs
// =====================================================

type PurchaseResponse struct {
	ID          uuid.UUID       `json:"id"`
	BookID      uuid.UUID       `json:"book_id"`
	PricePaid   decimal.Decimal `json:"price_paid"`
	TxHash      string          `json:"tx_hash"`
	Status      string          `json:"status"`
	BlockHeight *int64          `json:"block_height,omitempty"`
}

// ToResponse maps the entity to its API shape
func (p *PurchaseRecord) ToResponse() PurchaseResponse {
	return PurchaseResponse{
		ID:          p.ID,
		BookID:      p.BookID,
		PricePaid:   p.PricePaid,
		TxHash:      p.TxHash,
		Status:      p.Status,
		BlockHeight: p.BlockHeight,
	}
}
