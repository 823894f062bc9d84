package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/teahaven/teahaven-backend/internal/notifications"
	"github.com/teahaven/teahaven-backend/internal/orders"
	"github.com/teahaven/teahaven-backend/internal/products"
	"github.com/teahaven/teahaven-backend/pkg/db/models"
	"github.com/teahaven/teahaven-backend/pkg/enums"
	pkgerrors "github.com/teahaven/teahaven-backend/pkg/errors"
	"github.com/teahaven/teahaven-backend/pkg/logger"
	"github.com/teahaven/teahaven-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderNotifier interface {
	OrderPlaced(summary notifications.OrderSummary) bool
}

// Service executes the checkout transaction.
type Service interface {
	Execute(ctx context.Context, customerID uuid.UUID, role enums.UserRole, input CheckoutInput) (*orders.OrderDTO, error)
}

type service struct {
	tx       txRunner
	products products.Repository
	orders   orders.Repository
	notifier orderNotifier
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	productsRepo products.Repository,
	ordersRepo orders.Repository,
	notifier orderNotifier,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("order notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       tx,
		products: productsRepo,
		orders:   ordersRepo,
		notifier: notifier,
		metrics:  m,
		logg:     logg,
	}, nil
}

// Execute runs the whole checkout in one transaction: load active products,
// verify stock against the aggregated quantities, materialize the order with
// frozen unit prices, and decrement stock with guarded updates. Either every
// step commits or none does. Notifications go out only after the commit.
func (s *service) Execute(ctx context.Context, customerID uuid.UUID, role enums.UserRole, input CheckoutInput) (*orders.OrderDTO, error) {
	started := time.Now()

	order, summary, err := s.execute(ctx, customerID, role, input)
	if err != nil {
		reason := "internal"
		if typed := pkgerrors.As(err); typed != nil {
			reason = strings.ToLower(string(typed.Code()))
		}
		s.metrics.IncFailure(reason)
		s.metrics.ObserveDuration("failure", time.Since(started))
		return nil, err
	}

	s.metrics.IncSuccess()
	s.metrics.ObserveDuration("success", time.Since(started))

	if !s.notifier.OrderPlaced(summary) {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "order notifications dropped")
	}

	return orders.FromModel(order), nil
}

func (s *service) execute(ctx context.Context, customerID uuid.UUID, role enums.UserRole, input CheckoutInput) (*models.Order, notifications.OrderSummary, error) {
	var summary notifications.OrderSummary

	// The role gate comes before any validation or storage access.
	if role != enums.UserRoleCustomer {
		return nil, summary, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can place orders")
	}
	if customerID == uuid.Nil {
		return nil, summary, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		return nil, summary, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}

	aggregated, err := aggregateItems(input.Items)
	if err != nil {
		return nil, summary, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		productsRepo := s.products.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		byID, err := s.loadProducts(ctx, productsRepo, aggregated)
		if err != nil {
			return err
		}

		// Availability is judged against the aggregated quantities so the
		// same product split across lines cannot slip past the check.
		for _, line := range aggregated {
			product := byID[line.ProductID]
			if product.Stock < line.Quantity {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock,
					fmt.Sprintf("insufficient stock for %s", product.Name)).
					WithDetails(map[string]any{
						"product_id": product.ID,
						"requested":  line.Quantity,
						"available":  product.Stock,
					})
			}
		}

		// Line items mirror the request as submitted, one row per input line.
		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(input.Items))
		summaryItems := make([]notifications.OrderItemSummary, 0, len(input.Items))
		for _, requested := range input.Items {
			product := byID[requested.ProductID]

			// Unit price is frozen here; later product edits never touch the order.
			items = append(items, models.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    requested.Quantity,
				UnitPrice:   product.Price,
			})
			summaryItems = append(summaryItems, notifications.OrderItemSummary{
				ProductID:   product.ID,
				ProductName: product.Name,
				SellerID:    product.SellerID,
				Quantity:    requested.Quantity,
				UnitPrice:   product.Price,
			})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(requested.Quantity))))
		}

		order = &models.Order{
			CustomerID:      customerID,
			ShippingAddress: input.ShippingAddress,
			TotalAmount:     total,
			Status:          enums.OrderStatusPending,
			Items:           items,
		}
		if err := ordersRepo.Create(ctx, order); err != nil {
			return err
		}

		for _, line := range aggregated {
			ok, err := productsRepo.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				// A concurrent checkout consumed the stock between our read
				// and this guarded update.
				return pkgerrors.New(pkgerrors.CodeConflict, "stock changed concurrently, retry checkout").
					WithDetails(map[string]any{"product_id": line.ProductID})
			}
		}

		summary = notifications.OrderSummary{
			OrderID:         order.ID,
			CustomerID:      customerID,
			Status:          order.Status,
			TotalAmount:     total,
			ShippingAddress: order.ShippingAddress,
			Items:           summaryItems,
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, summary, typed
		}
		if pkgerrors.IsSerializationFailure(err) {
			return nil, summary, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "checkout could not commit, retry")
		}
		return nil, summary, err
	}

	return order, summary, nil
}

func (s *service) loadProducts(ctx context.Context, repo products.Repository, aggregated []aggregatedItem) (map[uuid.UUID]*models.Product, error) {
	ids := make([]uuid.UUID, 0, len(aggregated))
	for _, line := range aggregated {
		ids = append(ids, line.ProductID)
	}

	loaded, err := repo.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*models.Product, len(loaded))
	for i := range loaded {
		byID[loaded[i].ID] = &loaded[i]
	}
	for _, line := range aggregated {
		if _, ok := byID[line.ProductID]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found or unavailable").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
	}
	return byID, nil
}
