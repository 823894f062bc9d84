package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teahaven/teahaven-backend/internal/notifications"
	"github.com/teahaven/teahaven-backend/pkg/db/models"
	"github.com/teahaven/teahaven-backend/pkg/enums"
	pkgerrors "github.com/teahaven/teahaven-backend/pkg/errors"
	"github.com/teahaven/teahaven-backend/pkg/pagination"
)

type statusNotifier interface {
	OrderStatusChanged(update notifications.StatusUpdate) bool
}

// Service owns order reads and the seller-driven status lifecycle.
type Service interface {
	Get(ctx context.Context, actorID uuid.UUID, role enums.UserRole, orderID uuid.UUID) (*OrderDTO, error)
	ListMine(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]OrderDTO, string, error)
	ListSelling(ctx context.Context, sellerID uuid.UUID, role enums.UserRole, params pagination.Params) ([]OrderDTO, string, error)
	AdvanceStatus(ctx context.Context, sellerID uuid.UUID, role enums.UserRole, orderID uuid.UUID, to enums.OrderStatus) (*OrderDTO, error)
}

type service struct {
	repo     Repository
	notifier statusNotifier
}

// NewService builds the orders service. The notifier may be nil when status
// change notices are not wanted (tests, tooling).
func NewService(repo Repository, notifier statusNotifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo, notifier: notifier}, nil
}

// Get returns the order to its customer, or to a seller with at least one
// line item in it.
func (s *service) Get(ctx context.Context, actorID uuid.UUID, role enums.UserRole, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch role {
	case enums.UserRoleCustomer:
		if order.CustomerID != actorID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
		}
	case enums.UserRoleSeller:
		ok, err := s.repo.SellerHasItems(ctx, orderID, actorID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order contains none of your products")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}

	return FromModel(order), nil
}

func (s *service) ListMine(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]OrderDTO, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	items, err := s.repo.ListByCustomer(ctx, customerID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, "", err
	}

	pageSize := pagination.NormalizeLimit(params.Limit)
	nextCursor := ""
	if len(items) > pageSize {
		items = items[:pageSize]
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return FromModels(items), nextCursor, nil
}

// ListSelling returns orders containing the seller's products, newest first.
func (s *service) ListSelling(ctx context.Context, sellerID uuid.UUID, role enums.UserRole, params pagination.Params) ([]OrderDTO, string, error) {
	if role != enums.UserRoleSeller {
		return nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	items, err := s.repo.ListBySeller(ctx, sellerID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, "", err
	}

	pageSize := pagination.NormalizeLimit(params.Limit)
	nextCursor := ""
	if len(items) > pageSize {
		items = items[:pageSize]
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return FromModels(items), nextCursor, nil
}

// AdvanceStatus moves an order to a later lifecycle status. Transitions are
// forward-only: skipping ahead is allowed, moving backward is rejected.
func (s *service) AdvanceStatus(ctx context.Context, sellerID uuid.UUID, role enums.UserRole, orderID uuid.UUID, to enums.OrderStatus) (*OrderDTO, error) {
	if role != enums.UserRoleSeller {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.SellerHasItems(ctx, orderID, sellerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order contains none of your products")
	}

	if !order.Status.CanAdvanceTo(to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, to))
	}

	updated, err := s.repo.UpdateStatus(ctx, orderID, order.Status, to)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently")
	}

	if s.notifier != nil {
		s.notifier.OrderStatusChanged(notifications.StatusUpdate{
			OrderID:    orderID,
			CustomerID: order.CustomerID,
			Status:     to,
		})
	}

	order.Status = to
	return FromModel(order), nil
}

func (s *service) findOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}
