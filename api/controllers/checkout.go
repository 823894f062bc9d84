package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/teahaven/teahaven-backend/api/responses"
	"github.com/teahaven/teahaven-backend/api/validators"
	checkoutsvc "github.com/teahaven/teahaven-backend/internal/checkout"
	pkgerrors "github.com/teahaven/teahaven-backend/pkg/errors"
	"github.com/teahaven/teahaven-backend/pkg/logger"
)

type checkoutRequest struct {
	ShippingAddress string              `json:"shipping_address" validate:"required"`
	Items           []checkoutItemInput `json:"items" validate:"required,min=1,dive"`
}

type checkoutItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// Checkout places an order for the authenticated customer.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		customerID, role, err := actorIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]checkoutsvc.ItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, checkoutsvc.ItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		order, err := svc.Execute(r.Context(), customerID, role, checkoutsvc.CheckoutInput{
			ShippingAddress: payload.ShippingAddress,
			Items:           items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
