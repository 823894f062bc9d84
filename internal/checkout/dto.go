package checkout

import (
	"github.com/google/uuid"

	pkgerrors "github.com/teahaven/teahaven-backend/pkg/errors"
)

// CheckoutInput is everything a customer submits to place an order.
type CheckoutInput struct {
	ShippingAddress string
	Items           []ItemInput
}

// ItemInput requests a quantity of one product. The same product may appear
// more than once; duplicates are aggregated before any stock check.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type aggregatedItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// aggregateItems validates the raw lines and merges duplicate product ids by
// summing their quantities, preserving first-occurrence order.
func aggregateItems(items []ItemInput) ([]aggregatedItem, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}

	index := make(map[uuid.UUID]int, len(items))
	aggregated := make([]aggregatedItem, 0, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		if i, ok := index[item.ProductID]; ok {
			aggregated[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(aggregated)
		aggregated = append(aggregated, aggregatedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return aggregated, nil
}
