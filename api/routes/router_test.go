package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	authsvc "github.com/teahaven/teahaven-backend/internal/auth"
	checkoutsvc "github.com/teahaven/teahaven-backend/internal/checkout"
	"github.com/teahaven/teahaven-backend/internal/notifications"
	ordersvc "github.com/teahaven/teahaven-backend/internal/orders"
	productsvc "github.com/teahaven/teahaven-backend/internal/products"
	"github.com/teahaven/teahaven-backend/internal/users"
	pkgauth "github.com/teahaven/teahaven-backend/pkg/auth"
	"github.com/teahaven/teahaven-backend/pkg/auth/session"
	"github.com/teahaven/teahaven-backend/pkg/config"
	"github.com/teahaven/teahaven-backend/pkg/db/models"
	"github.com/teahaven/teahaven-backend/pkg/enums"
	"github.com/teahaven/teahaven-backend/pkg/logger"
	"github.com/teahaven/teahaven-backend/pkg/pagination"
	"github.com/teahaven/teahaven-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(context.Context, string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Register(context.Context, authsvc.RegisterRequest) (*users.UserDTO, error) {
	return &users.UserDTO{ID: uuid.New()}, nil
}

func (stubAuthService) Login(context.Context, authsvc.LoginRequest) (*authsvc.LoginResponse, error) {
	return &authsvc.LoginResponse{AccessToken: "a", RefreshToken: "r"}, nil
}

func (stubAuthService) Refresh(context.Context, authsvc.RefreshRequest) (*authsvc.TokenPair, error) {
	return &authsvc.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}

func (stubAuthService) Logout(context.Context, string) error {
	return nil
}

func (stubAuthService) Me(context.Context, uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}

type stubProductService struct{}

func (stubProductService) List(context.Context, productsvc.ListFilter, pagination.Params) ([]productsvc.ProductDTO, string, error) {
	return []productsvc.ProductDTO{}, "", nil
}

func (stubProductService) Get(_ context.Context, id uuid.UUID) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{ID: id}, nil
}

func (stubProductService) ListMine(context.Context, uuid.UUID, pagination.Params) ([]productsvc.ProductDTO, string, error) {
	return []productsvc.ProductDTO{}, "", nil
}

func (stubProductService) Create(context.Context, uuid.UUID, enums.UserRole, productsvc.CreateProductDTO) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{}, nil
}

func (stubProductService) Update(context.Context, uuid.UUID, enums.UserRole, uuid.UUID, productsvc.UpdateProductDTO) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{}, nil
}

func (stubProductService) Delete(context.Context, uuid.UUID, enums.UserRole, uuid.UUID) error {
	return nil
}

func (stubProductService) Restock(context.Context, uuid.UUID, enums.UserRole, uuid.UUID, int) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{}, nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) Execute(context.Context, uuid.UUID, enums.UserRole, checkoutsvc.CheckoutInput) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{ID: uuid.New()}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) Get(_ context.Context, _ uuid.UUID, _ enums.UserRole, orderID uuid.UUID) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{ID: orderID}, nil
}

func (stubOrdersService) ListMine(context.Context, uuid.UUID, pagination.Params) ([]ordersvc.OrderDTO, string, error) {
	return []ordersvc.OrderDTO{}, "", nil
}

func (stubOrdersService) ListSelling(context.Context, uuid.UUID, enums.UserRole, pagination.Params) ([]ordersvc.OrderDTO, string, error) {
	return []ordersvc.OrderDTO{}, "", nil
}

func (stubOrdersService) AdvanceStatus(_ context.Context, _ uuid.UUID, _ enums.UserRole, orderID uuid.UUID, to enums.OrderStatus) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{ID: orderID, Status: to}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(context.Context, notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{Items: []models.Notification{}}, nil
}

func (stubNotificationsService) MarkRead(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotificationsService) UnreadCount(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "teahaven",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubSessionChecker{},
		stubAuthService{},
		stubProductService{},
		stubCheckoutService{},
		stubOrdersService{},
		stubNotificationsService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveAlwaysUp(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestPublicPingNeedsNoToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public ping got %d", resp.Code)
	}
}

func TestCatalogIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())

	list := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, list)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public catalog got %d", resp.Code)
	}

	detail := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+uuid.NewString(), nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, detail)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public product detail got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for private ping got %d", resp.Code)
	}
}

func TestSellerRoutesRequireSellerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	asCustomer := httptest.NewRequest(http.MethodGet, "/api/v1/products/mine", nil)
	asCustomer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asCustomer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer on seller route got %d", resp.Code)
	}

	asSeller := httptest.NewRequest(http.MethodGet, "/api/v1/products/mine", nil)
	asSeller.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleSeller))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asSeller)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for seller listing got %d", resp.Code)
	}
}

func TestOrderStatusRouteRequiresSellerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	orderID := uuid.NewString()
	asCustomer := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID+"/status", nil)
	asCustomer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asCustomer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer on status route got %d", resp.Code)
	}
}

func TestSellerOrderListingRequiresSellerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	asCustomer := httptest.NewRequest(http.MethodGet, "/api/v1/orders/selling", nil)
	asCustomer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asCustomer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer on selling route got %d", resp.Code)
	}

	asSeller := httptest.NewRequest(http.MethodGet, "/api/v1/orders/selling", nil)
	asSeller.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleSeller))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asSeller)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for seller order listing got %d", resp.Code)
	}
}

func TestOrdersVisibleToAuthenticatedUser(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for order list got %d", resp.Code)
	}
}

func TestNotificationsRequireAuth(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	anonymous := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, anonymous)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous notifications got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	authed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for authed notifications got %d", resp.Code)
	}
}
