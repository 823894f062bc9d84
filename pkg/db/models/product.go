package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/teahaven/teahaven-backend/pkg/enums"
)

// Product represents a seller's tea listing. After any stock-changing
// operation the steady state is is_active == (stock > 0).
type Product struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	SellerID     uuid.UUID         `gorm:"column:seller_id;type:uuid;not null"`
	Name         string            `gorm:"column:name;not null"`
	Description  *string           `gorm:"column:description"`
	Category     enums.TeaCategory `gorm:"column:category;type:tea_category;not null"`
	TastingNotes []string          `gorm:"column:tasting_notes;type:jsonb;serializer:json"`
	Price        decimal.Decimal   `gorm:"column:price;type:numeric(10,2);not null"`
	Stock        int               `gorm:"column:stock;not null;default:0"`
	IsActive     bool              `gorm:"column:is_active;not null"`
	Seller       *User             `gorm:"foreignKey:SellerID"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
