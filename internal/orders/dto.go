package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/teahaven/teahaven-backend/pkg/db/models"
	"github.com/teahaven/teahaven-backend/pkg/enums"
)

// OrderDTO is the transport shape of an order with its frozen line items.
type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	CustomerID      uuid.UUID         `json:"customer_id"`
	ShippingAddress string            `json:"shipping_address"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	Status          enums.OrderStatus `json:"status"`
	Items           []OrderItemDTO    `json:"items"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// OrderItemDTO is one purchased line inside an OrderDTO.
type OrderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}

	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	return &OrderDTO{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		ShippingAddress: o.ShippingAddress,
		TotalAmount:     o.TotalAmount,
		Status:          o.Status,
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func FromModels(items []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(items))
	for i := range items {
		out = append(out, *FromModel(&items[i]))
	}
	return out
}
