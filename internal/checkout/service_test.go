package checkout

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/teahaven/teahaven-backend/internal/notifications"
	"github.com/teahaven/teahaven-backend/internal/orders"
	"github.com/teahaven/teahaven-backend/internal/products"
	"github.com/teahaven/teahaven-backend/pkg/db"
	"github.com/teahaven/teahaven-backend/pkg/db/models"
	"github.com/teahaven/teahaven-backend/pkg/enums"
	pkgerrors "github.com/teahaven/teahaven-backend/pkg/errors"
	"github.com/teahaven/teahaven-backend/pkg/logger"
)

type capturingNotifier struct {
	summaries []notifications.OrderSummary
}

func (c *capturingNotifier) OrderPlaced(summary notifications.OrderSummary) bool {
	c.summaries = append(c.summaries, summary)
	return true
}

type checkoutEnv struct {
	db       *gorm.DB
	svc      Service
	notifier *capturingNotifier
}

func newCheckoutEnv(t *testing.T) *checkoutEnv {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	notifier := &capturingNotifier{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(
		db.NewWithConn(conn),
		products.NewRepository(conn),
		orders.NewRepository(conn),
		notifier,
		nil,
		logg,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &checkoutEnv{db: conn, svc: svc, notifier: notifier}
}

func (e *checkoutEnv) seedProduct(t *testing.T, sellerID uuid.UUID, name, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID: sellerID,
		Name:     name,
		Category: enums.TeaCategoryGreen,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: stock > 0,
	}
	if err := e.db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func (e *checkoutEnv) reloadProduct(t *testing.T, id uuid.UUID) *models.Product {
	t.Helper()
	var product models.Product
	if err := e.db.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return &product
}

func (e *checkoutEnv) countOrders(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := e.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return count
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error with code %s, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s", code, typed.Code())
	}
}

func TestCheckoutWorkedExample(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t)
	sellerID := uuid.New()
	customerID := uuid.New()
	product := env.seedProduct(t, sellerID, "Jade Spring Dragonwell", "12.50", 10)

	order, err := env.svc.Execute(context.Background(), customerID, enums.UserRoleCustomer, CheckoutInput{
		ShippingAddress: "12 Camellia Lane",
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected total 25.00, got %s", order.TotalAmount)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(order.Items))
	}
	item := order.Items[0]
	if item.Quantity != 2 || !item.UnitPrice.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("unexpected line item %+v", item)
	}
	if item.ProductName != "Jade Spring Dragonwell" {
		t.Fatalf("product name must be frozen on the item, got %q", item.ProductName)
	}

	reloaded := env.reloadProduct(t, product.ID)
	if reloaded.Stock != 8 || !reloaded.IsActive {
		t.Fatalf("expected stock 8 active, got %+v", reloaded)
	}

	if len(env.notifier.summaries) != 1 {
		t.Fatalf("expected 1 dispatched summary, got %d", len(env.notifier.summaries))
	}
	summary := env.notifier.summaries[0]
	if summary.OrderID != order.ID || summary.CustomerID != customerID {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.Items) != 1 || summary.Items[0].SellerID != sellerID {
		t.Fatalf("summary must carry seller ids, got %+v", summary.Items)
	}
}

func TestCheckoutAggregatesDuplicateLines(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t)
	product := env.seedProduct(t, uuid.New(), "Misty Peak Oolong", "12.50", 5)

	order, err := env.svc.Execute(context.Background(), uuid.New(), enums.UserRoleCustomer, CheckoutInput{
		ShippingAddress: "12 Camellia Lane",
		Items: []ItemInput{
			{ProductID: product.ID, Quantity: 1},
			{ProductID: product.ID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// The order keeps the lines as submitted; only the stock check and the
	// decrement see the summed quantity.
	if len(order.Items) != 2 {
		t.Fatalf("expected one line item per requested line, got %d", len(order.Items))
	}
	if order.Items[0].Quantity != 1 || order.Items[1].Quantity != 2 {
		t.Fatalf("expected quantities 1 and 2, got %d and %d", order.Items[0].Quantity, order.Items[1].Quantity)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("37.50")) {
		t.Fatalf("expected total 37.50, got %s", order.TotalAmount)
	}

	reloaded := env.reloadProduct(t, product.ID)
	if reloaded.Stock != 2 || !reloaded.IsActive {
		t.Fatalf("expected stock 2 active, got %+v", reloaded)
	}

	// Splitting one oversized request across lines must not slip past the
	// availability check: each line alone fits the remaining stock of 2,
	// their sum does not.
	_, err = env.svc.Execute(context.Background(), uuid.New(), enums.UserRoleCustomer, CheckoutInput{
		ShippingAddress: "12 Camellia Lane",
		Items: []ItemInput{
			{ProductID: product.ID, Quantity: 2},
			{ProductID: product.ID, Quantity: 1},
		},
	})
	expectCode(t, err, pkgerrors.CodeInsufficientStock)
	if reloaded := env.reloadProduct(t, product.ID); reloaded.Stock != 2 {
		t.Fatalf("rejected checkout must not touch stock, got %d", reloaded.Stock)
	}
}

func TestCheckoutAllOrNothing(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t)
	plentiful := env.seedProduct(t, uuid.New(), "Amber Twist Keemun", "9.00", 10)
	scarce := env.seedProduct(t, uuid.New(), "Reserve Puerh Brick", "42.00", 1)

	_, err := env.svc.Execute(context.Background(), uuid.New(), enums.UserRoleCustomer, CheckoutInput{
		ShippingAddress: "12 Camellia Lane",
		Items: []ItemInput{
			{ProductID: plentiful.ID, Quantity: 2},
			{ProductID: scarce.ID, Quantity: 3},
		},
	})
	expectCode(t, err, pkgerrors.CodeInsufficientStock)

	if got := env.countOrders(t); got != 0 {
		t.Fatalf("failed checkout must persist nothing, found %d orders", got)
	}
	if reloaded := env.reloadProduct(t, plentiful.ID); reloaded.Stock != 10 {
		t.Fatalf("sibling line stock must be untouched, got %d", reloaded.Stock)
	}
	if len(env.notifier.summaries) != 0 {
		t.Fatal("failed checkout must not notify")
	}
}

func TestCheckoutExhaustionDeactivatesProduct(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t)
	product := env.seedProduct(t, uuid.New(), "Hearth Smoked Lapsang", "15.00", 3)

	_, err := env.svc.Execute(context.Background(), uuid.New(), enums.UserRoleCustomer, CheckoutInput{
		ShippingAddress: "12 Camellia Lane",
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	reloaded := env.reloadProduct(t, product.ID)
	if reloaded.Stock != 0 {
		t.Fatalf("expected stock 0, got %d", reloaded.Stock)
	}
	if reloaded.IsActive {
		t.Fatal("exhausted product must be deactivated")
	}
}

func TestCheckoutMissingOrInactiveProduct(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t)
	inactive := env.seedProduct(t, uuid.New(), "Sold Out Sencha", "11.00", 0)

	_, err := env.svc.Execute(context.Background(), uuid.New(), enums.UserRoleCustomer, CheckoutInput{
		ShippingAddress: "12 Camellia Lane",
		Items:           []ItemInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	expectCode(t, err, pkgerrors.CodeNotFound)

	_, err = env.svc.Execute(context.Background(), uuid.New(), enums.UserRoleCustomer, CheckoutInput{
		ShippingAddress: "12 Camellia Lane",
		Items:           []ItemInput{{ProductID: inactive.ID, Quantity: 1}},
	})
	expectCode(t, err, pkgerrors.CodeNotFound)

	if got := env.countOrders(t); got != 0 {
		t.Fatalf("expected no orders, found %d", got)
	}
}

func TestCheckoutRoleAndValidationGates(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t)
	product := env.seedProduct(t, uuid.New(), "Jade Spring Dragonwell", "12.50", 10)
	ctx := context.Background()

	_, err := env.svc.Execute(ctx, uuid.New(), enums.UserRoleSeller, CheckoutInput{
		ShippingAddress: "12 Camellia Lane",
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	expectCode(t, err, pkgerrors.CodeForbidden)

	cases := []struct {
		name  string
		input CheckoutInput
	}{
		{"no items", CheckoutInput{ShippingAddress: "12 Camellia Lane"}},
		{"zero quantity", CheckoutInput{ShippingAddress: "12 Camellia Lane", Items: []ItemInput{{ProductID: product.ID, Quantity: 0}}}},
		{"negative quantity", CheckoutInput{ShippingAddress: "12 Camellia Lane", Items: []ItemInput{{ProductID: product.ID, Quantity: -2}}}},
		{"nil product id", CheckoutInput{ShippingAddress: "12 Camellia Lane", Items: []ItemInput{{Quantity: 1}}}},
		{"blank address", CheckoutInput{ShippingAddress: "   ", Items: []ItemInput{{ProductID: product.ID, Quantity: 1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Execute(ctx, uuid.New(), enums.UserRoleCustomer, tc.input)
			expectCode(t, err, pkgerrors.CodeValidation)
		})
	}

	if reloaded := env.reloadProduct(t, product.ID); reloaded.Stock != 10 {
		t.Fatalf("rejected checkouts must not touch stock, got %d", reloaded.Stock)
	}
}

func TestCheckoutRaceLeavesConsistentStock(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t)
	product := env.seedProduct(t, uuid.New(), "Harvest Moon White", "20.00", 5)
	ctx := context.Background()

	input := CheckoutInput{
		ShippingAddress: "12 Camellia Lane",
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 3}},
	}

	if _, err := env.svc.Execute(ctx, uuid.New(), enums.UserRoleCustomer, input); err != nil {
		t.Fatalf("first checkout: %v", err)
	}

	_, err := env.svc.Execute(ctx, uuid.New(), enums.UserRoleCustomer, input)
	expectCode(t, err, pkgerrors.CodeInsufficientStock)

	reloaded := env.reloadProduct(t, product.ID)
	if reloaded.Stock != 2 {
		t.Fatalf("expected final stock 2, got %d", reloaded.Stock)
	}
	if reloaded.Stock < 0 {
		t.Fatal("stock must never go negative")
	}
	if got := env.countOrders(t); got != 1 {
		t.Fatalf("expected exactly one committed order, got %d", got)
	}
}

// stolenStockRepo reports every guarded decrement as losing to a concurrent
// writer, regardless of what the earlier read saw.
type stolenStockRepo struct {
	products.Repository
}

func (s *stolenStockRepo) WithTx(tx *gorm.DB) products.Repository {
	return &stolenStockRepo{Repository: s.Repository.WithTx(tx)}
}

func (s *stolenStockRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	return false, nil
}

func TestCheckoutConcurrentDecrementRollsBack(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t)
	product := env.seedProduct(t, uuid.New(), "Harvest Moon White", "20.00", 5)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	svc, err := NewService(
		db.NewWithConn(env.db),
		&stolenStockRepo{Repository: products.NewRepository(env.db)},
		orders.NewRepository(env.db),
		env.notifier,
		nil,
		logg,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Execute(context.Background(), uuid.New(), enums.UserRoleCustomer, CheckoutInput{
		ShippingAddress: "12 Camellia Lane",
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 3}},
	})
	expectCode(t, err, pkgerrors.CodeConflict)

	if got := env.countOrders(t); got != 0 {
		t.Fatalf("losing checkout must roll back its order, found %d", got)
	}
	if reloaded := env.reloadProduct(t, product.ID); reloaded.Stock != 5 {
		t.Fatalf("expected stock untouched at 5, got %d", reloaded.Stock)
	}
	if len(env.notifier.summaries) != 0 {
		t.Fatal("losing checkout must not notify")
	}
}

func TestCheckoutSummaryCarriesEachSeller(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t)
	sellerA := uuid.New()
	sellerB := uuid.New()
	teaA := env.seedProduct(t, sellerA, "Jade Spring Dragonwell", "12.50", 10)
	teaB := env.seedProduct(t, sellerA, "Amber Twist Keemun", "9.00", 10)
	teaC := env.seedProduct(t, sellerB, "Misty Peak Oolong", "18.00", 10)

	_, err := env.svc.Execute(context.Background(), uuid.New(), enums.UserRoleCustomer, CheckoutInput{
		ShippingAddress: "12 Camellia Lane",
		Items: []ItemInput{
			{ProductID: teaA.ID, Quantity: 1},
			{ProductID: teaB.ID, Quantity: 1},
			{ProductID: teaC.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if len(env.notifier.summaries) != 1 {
		t.Fatalf("expected a single dispatch per checkout, got %d", len(env.notifier.summaries))
	}
	bySeller := env.notifier.summaries[0].BySeller()
	if len(bySeller) != 2 {
		t.Fatalf("expected one group per distinct seller, got %d", len(bySeller))
	}
	seen := map[uuid.UUID]int{}
	for _, group := range bySeller {
		seen[group.SellerID]++
	}
	if seen[sellerA] != 1 || seen[sellerB] != 1 {
		t.Fatalf("each seller must appear exactly once: %v", seen)
	}
}

func TestCheckoutFreezesUnitPrice(t *testing.T) {
	t.Parallel()

	env := newCheckoutEnv(t)
	product := env.seedProduct(t, uuid.New(), "Jade Spring Dragonwell", "12.50", 10)
	ctx := context.Background()

	order, err := env.svc.Execute(ctx, uuid.New(), enums.UserRoleCustomer, CheckoutInput{
		ShippingAddress: "12 Camellia Lane",
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// Reprice the listing after the sale.
	if err := env.db.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("price", decimal.RequireFromString("99.99")).Error; err != nil {
		t.Fatalf("reprice: %v", err)
	}

	var item models.OrderItem
	if err := env.db.First(&item, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if !item.UnitPrice.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("unit price must stay frozen at 12.50, got %s", item.UnitPrice)
	}
}
