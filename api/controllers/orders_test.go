package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	ordersvc "github.com/teahaven/teahaven-backend/internal/orders"
	"github.com/teahaven/teahaven-backend/pkg/enums"
	pkgerrors "github.com/teahaven/teahaven-backend/pkg/errors"
	"github.com/teahaven/teahaven-backend/pkg/pagination"
)

type stubOrdersService struct {
	getErr       error
	advanceTo    enums.OrderStatus
	advanceErr   error
	listCustomer uuid.UUID
	listSeller   uuid.UUID
	listRole     enums.UserRole
	listParams   *pagination.Params
	items        []ordersvc.OrderDTO
	cursor       string
}

func (s *stubOrdersService) Get(_ context.Context, actorID uuid.UUID, _ enums.UserRole, orderID uuid.UUID) (*ordersvc.OrderDTO, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &ordersvc.OrderDTO{ID: orderID, CustomerID: actorID, Status: enums.OrderStatusPending}, nil
}

func (s *stubOrdersService) ListMine(_ context.Context, customerID uuid.UUID, params pagination.Params) ([]ordersvc.OrderDTO, string, error) {
	s.listCustomer = customerID
	s.listParams = &params
	return s.items, s.cursor, nil
}

func (s *stubOrdersService) ListSelling(_ context.Context, sellerID uuid.UUID, role enums.UserRole, params pagination.Params) ([]ordersvc.OrderDTO, string, error) {
	s.listSeller = sellerID
	s.listRole = role
	s.listParams = &params
	return s.items, s.cursor, nil
}

func (s *stubOrdersService) AdvanceStatus(_ context.Context, _ uuid.UUID, _ enums.UserRole, orderID uuid.UUID, to enums.OrderStatus) (*ordersvc.OrderDTO, error) {
	if s.advanceErr != nil {
		return nil, s.advanceErr
	}
	s.advanceTo = to
	return &ordersvc.OrderDTO{ID: orderID, Status: to}, nil
}

func TestListMyOrdersUsesCallerIdentity(t *testing.T) {
	customerID := uuid.New()
	svc := &stubOrdersService{items: []ordersvc.OrderDTO{{ID: uuid.New()}}, cursor: "more"}
	handler := ListMyOrders(svc, testLogger())

	req := newAuthedRequest(t, http.MethodGet, "/api/v1/orders?limit=10", nil, customerID, enums.UserRoleCustomer)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.listCustomer != customerID {
		t.Fatalf("expected customer %s, got %s", customerID, svc.listCustomer)
	}
	if svc.listParams.Limit != 10 {
		t.Fatalf("expected limit 10, got %d", svc.listParams.Limit)
	}

	var resp orderListResponse
	decodeSuccess(t, rec, &resp)
	if len(resp.Items) != 1 || resp.Cursor != "more" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestListSellerOrdersForwardsIdentity(t *testing.T) {
	sellerID := uuid.New()
	svc := &stubOrdersService{items: []ordersvc.OrderDTO{{ID: uuid.New()}}}
	handler := ListSellerOrders(svc, testLogger())

	req := newAuthedRequest(t, http.MethodGet, "/api/v1/orders/selling?limit=5", nil, sellerID, enums.UserRoleSeller)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.listSeller != sellerID || svc.listRole != enums.UserRoleSeller {
		t.Fatalf("expected seller identity forwarded, got %s role %s", svc.listSeller, svc.listRole)
	}
	if svc.listParams.Limit != 5 {
		t.Fatalf("expected limit 5, got %d", svc.listParams.Limit)
	}
}

func TestGetOrderForbiddenForStranger(t *testing.T) {
	svc := &stubOrdersService{getErr: pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")}
	handler := GetOrder(svc, testLogger())

	orderID := uuid.New()
	req := newAuthedRequest(t, http.MethodGet, "/api/v1/orders/"+orderID.String(), nil, uuid.New(), enums.UserRoleCustomer)
	req = withPathParam(req, "orderId", orderID.String())
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestGetOrderReturnsOrder(t *testing.T) {
	svc := &stubOrdersService{}
	handler := GetOrder(svc, testLogger())

	customerID := uuid.New()
	orderID := uuid.New()
	req := newAuthedRequest(t, http.MethodGet, "/api/v1/orders/"+orderID.String(), nil, customerID, enums.UserRoleCustomer)
	req = withPathParam(req, "orderId", orderID.String())
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var order ordersvc.OrderDTO
	decodeSuccess(t, rec, &order)
	if order.ID != orderID || order.CustomerID != customerID {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestAdvanceOrderStatusParsesTarget(t *testing.T) {
	svc := &stubOrdersService{}
	handler := AdvanceOrderStatus(svc, testLogger())

	orderID := uuid.New()
	body := map[string]any{"status": "shipped"}
	req := newAuthedRequest(t, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/status", body, uuid.New(), enums.UserRoleSeller)
	req = withPathParam(req, "orderId", orderID.String())
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.advanceTo != enums.OrderStatusShipped {
		t.Fatalf("expected shipped, got %q", svc.advanceTo)
	}
}

func TestAdvanceOrderStatusRejectsUnknownStatus(t *testing.T) {
	svc := &stubOrdersService{}
	handler := AdvanceOrderStatus(svc, testLogger())

	orderID := uuid.New()
	body := map[string]any{"status": "cancelled"}
	req := newAuthedRequest(t, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/status", body, uuid.New(), enums.UserRoleSeller)
	req = withPathParam(req, "orderId", orderID.String())
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.advanceTo != "" {
		t.Fatal("unknown status must not reach the service")
	}
}

func TestAdvanceOrderStatusSurfacesStateConflict(t *testing.T) {
	svc := &stubOrdersService{advanceErr: pkgerrors.New(pkgerrors.CodeStateConflict, "order already shipped")}
	handler := AdvanceOrderStatus(svc, testLogger())

	orderID := uuid.New()
	body := map[string]any{"status": "processing"}
	req := newAuthedRequest(t, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/status", body, uuid.New(), enums.UserRoleSeller)
	req = withPathParam(req, "orderId", orderID.String())
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (%s)", rec.Code, rec.Body.String())
	}
	apiErr := decodeError(t, rec)
	if apiErr.Code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict code, got %q", apiErr.Code)
	}
}
