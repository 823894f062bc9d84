package notifications

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/teahaven/teahaven-backend/pkg/enums"
)

// OrderSummary is the post-commit snapshot handed to the dispatcher. It
// carries everything needed to build messages so the dispatcher never reads
// order rows back.
type OrderSummary struct {
	OrderID         uuid.UUID
	CustomerID      uuid.UUID
	Status          enums.OrderStatus
	TotalAmount     decimal.Decimal
	ShippingAddress string
	Items           []OrderItemSummary
}

// OrderItemSummary is one purchased line within an OrderSummary.
type OrderItemSummary struct {
	ProductID   uuid.UUID
	ProductName string
	SellerID    uuid.UUID
	Quantity    int
	UnitPrice   decimal.Decimal
}

// SellerOrderSummary aggregates the lines of one order that belong to a
// single seller.
type SellerOrderSummary struct {
	OrderID  uuid.UUID
	SellerID uuid.UUID
	Items    []OrderItemSummary
	Subtotal decimal.Decimal
}

// BySeller groups the summary's items per distinct seller, ordered by seller
// id so dispatch order is stable.
func (s OrderSummary) BySeller() []SellerOrderSummary {
	grouped := map[uuid.UUID][]OrderItemSummary{}
	for _, item := range s.Items {
		grouped[item.SellerID] = append(grouped[item.SellerID], item)
	}

	sellerIDs := make([]uuid.UUID, 0, len(grouped))
	for sellerID := range grouped {
		sellerIDs = append(sellerIDs, sellerID)
	}
	sort.Slice(sellerIDs, func(i, j int) bool {
		return sellerIDs[i].String() < sellerIDs[j].String()
	})

	out := make([]SellerOrderSummary, 0, len(sellerIDs))
	for _, sellerID := range sellerIDs {
		items := grouped[sellerID]
		subtotal := decimal.Zero
		for _, item := range items {
			subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		out = append(out, SellerOrderSummary{
			OrderID:  s.OrderID,
			SellerID: sellerID,
			Items:    items,
			Subtotal: subtotal,
		})
	}
	return out
}
