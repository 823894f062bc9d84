package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/teahaven/teahaven-backend/pkg/config"
	"github.com/teahaven/teahaven-backend/pkg/db/models"
	"github.com/teahaven/teahaven-backend/pkg/enums"
	"github.com/teahaven/teahaven-backend/pkg/logger"
	"github.com/teahaven/teahaven-backend/pkg/metrics"
)

const deliveryTimeout = 30 * time.Second

// StatusUpdate notifies a customer that their order moved to a new status.
type StatusUpdate struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Status     enums.OrderStatus
}

type emailLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type event struct {
	placed *OrderSummary
	status *StatusUpdate
}

// Dispatcher fans order events out to in-app notifications and the mailer.
// Dispatch is fire-and-forget: enqueue never blocks the caller, and delivery
// failures are logged, never returned.
type Dispatcher struct {
	repo    Repository
	mailer  Mailer
	users   emailLoader
	logg    *logger.Logger
	metrics *metrics.NotificationMetrics

	queue chan event
	wg    sync.WaitGroup
	once  sync.Once
}

// NewDispatcher builds the dispatcher and starts its worker pool.
func NewDispatcher(
	repo Repository,
	mailer Mailer,
	users emailLoader,
	logg *logger.Logger,
	m *metrics.NotificationMetrics,
	cfg config.NotificationsConfig,
) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	d := &Dispatcher{
		repo:    repo,
		mailer:  mailer,
		users:   users,
		logg:    logg,
		metrics: m,
		queue:   make(chan event, queueSize),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d, nil
}

// OrderPlaced enqueues the post-checkout fan-out. Returns false when the
// queue is full and the event was dropped.
func (d *Dispatcher) OrderPlaced(summary OrderSummary) bool {
	return d.enqueue(event{placed: &summary})
}

// OrderStatusChanged enqueues a status-change notice for the customer.
func (d *Dispatcher) OrderStatusChanged(update StatusUpdate) bool {
	return d.enqueue(event{status: &update})
}

// Close drains the queue and stops the workers.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) enqueue(ev event) bool {
	select {
	case d.queue <- ev:
		return true
	default:
		d.metrics.IncDropped()
		d.logg.Warn(context.Background(), "notification queue full, event dropped")
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		switch {
		case ev.placed != nil:
			d.handleOrderPlaced(ctx, *ev.placed)
		case ev.status != nil:
			d.handleStatusUpdate(ctx, *ev.status)
		}
		cancel()
	}
}

func (d *Dispatcher) handleOrderPlaced(ctx context.Context, summary OrderSummary) {
	ctx = d.logg.WithOrderID(ctx, summary.OrderID.String())

	bySeller := summary.BySeller()

	// The confirmation and every seller alert land in one insert.
	rows := make([]models.Notification, 0, len(bySeller)+1)
	rows = append(rows, models.Notification{
		UserID:  summary.CustomerID,
		Type:    enums.NotificationTypeOrderConfirmation,
		Title:   "Order confirmed",
		Message: fmt.Sprintf("Your order has been placed. Total: $%s.", summary.TotalAmount.StringFixed(2)),
	})
	for _, sellerSummary := range bySeller {
		units := 0
		for _, item := range sellerSummary.Items {
			units += item.Quantity
		}
		rows = append(rows, models.Notification{
			UserID:  sellerSummary.SellerID,
			Type:    enums.NotificationTypeSellerOrderAlert,
			Title:   "New order received",
			Message: fmt.Sprintf("You sold %d unit(s) across %d listing(s) for $%s.", units, len(sellerSummary.Items), sellerSummary.Subtotal.StringFixed(2)),
		})
	}
	if err := d.repo.CreateBatch(ctx, rows); err != nil {
		d.metrics.IncFailed(enums.NotificationTypeOrderConfirmation.String())
		for range bySeller {
			d.metrics.IncFailed(enums.NotificationTypeSellerOrderAlert.String())
		}
		d.logg.Error(ctx, "persist order notifications", err)
		return
	}

	var errs error
	errs = multierr.Append(errs, d.emailCustomer(ctx, summary))
	for _, sellerSummary := range bySeller {
		errs = multierr.Append(errs, d.emailSeller(ctx, sellerSummary))
	}
	if errs != nil {
		d.logg.Error(ctx, "order notification fan-out incomplete", errs)
	}
}

func (d *Dispatcher) emailCustomer(ctx context.Context, summary OrderSummary) error {
	if err := d.deliver(ctx, summary.CustomerID, func(email string) error {
		return d.mailer.SendOrderConfirmation(ctx, email, summary)
	}); err != nil {
		d.metrics.IncFailed(enums.NotificationTypeOrderConfirmation.String())
		return fmt.Errorf("deliver customer confirmation: %w", err)
	}

	d.metrics.IncDispatched(enums.NotificationTypeOrderConfirmation.String())
	return nil
}

func (d *Dispatcher) emailSeller(ctx context.Context, summary SellerOrderSummary) error {
	if err := d.deliver(ctx, summary.SellerID, func(email string) error {
		return d.mailer.SendSellerOrderAlert(ctx, email, summary)
	}); err != nil {
		d.metrics.IncFailed(enums.NotificationTypeSellerOrderAlert.String())
		return fmt.Errorf("deliver seller alert: %w", err)
	}

	d.metrics.IncDispatched(enums.NotificationTypeSellerOrderAlert.String())
	return nil
}

func (d *Dispatcher) handleStatusUpdate(ctx context.Context, update StatusUpdate) {
	ctx = d.logg.WithOrderID(ctx, update.OrderID.String())

	notification := &models.Notification{
		UserID:  update.CustomerID,
		Type:    enums.NotificationTypeOrderStatusUpdate,
		Title:   "Order update",
		Message: fmt.Sprintf("Your order is now %s.", update.Status),
	}
	if err := d.repo.Create(ctx, notification); err != nil {
		d.metrics.IncFailed(enums.NotificationTypeOrderStatusUpdate.String())
		d.logg.Error(ctx, "persist status update notification", err)
		return
	}
	d.metrics.IncDispatched(enums.NotificationTypeOrderStatusUpdate.String())
}

func (d *Dispatcher) deliver(ctx context.Context, userID uuid.UUID, send func(email string) error) error {
	user, err := d.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load recipient %s: %w", userID, err)
	}
	return send(user.Email)
}
