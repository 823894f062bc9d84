package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/teahaven/teahaven-backend/pkg/db/models"
	"github.com/teahaven/teahaven-backend/pkg/enums"
)

// ProductDTO is the public transport shape of a listing.
type ProductDTO struct {
	ID           uuid.UUID         `json:"id"`
	SellerID     uuid.UUID         `json:"seller_id"`
	Name         string            `json:"name"`
	Description  *string           `json:"description,omitempty"`
	Category     enums.TeaCategory `json:"category"`
	TastingNotes []string          `json:"tasting_notes"`
	Price        decimal.Decimal   `json:"price"`
	Stock        int               `json:"stock"`
	IsActive     bool              `json:"is_active"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// CreateProductDTO holds seller-provided data for a new listing.
type CreateProductDTO struct {
	Name         string
	Description  *string
	Category     enums.TeaCategory
	TastingNotes []string
	Price        decimal.Decimal
	Stock        int
}

// UpdateProductDTO holds partial updates to an existing listing. Nil fields
// are left untouched.
type UpdateProductDTO struct {
	Name         *string
	Description  *string
	Category     *enums.TeaCategory
	TastingNotes *[]string
	Price        *decimal.Decimal
}

// ListFilter narrows the public catalog listing.
type ListFilter struct {
	Category *enums.TeaCategory
	SellerID *uuid.UUID
}

func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}

	notes := p.TastingNotes
	if notes == nil {
		notes = []string{}
	}

	return &ProductDTO{
		ID:           p.ID,
		SellerID:     p.SellerID,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		TastingNotes: notes,
		Price:        p.Price,
		Stock:        p.Stock,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func FromModels(items []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(items))
	for i := range items {
		out = append(out, *FromModel(&items[i]))
	}
	return out
}
