package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/teahaven/teahaven-backend/api/controllers"
	"github.com/teahaven/teahaven-backend/api/middleware"
	authsvc "github.com/teahaven/teahaven-backend/internal/auth"
	checkoutsvc "github.com/teahaven/teahaven-backend/internal/checkout"
	"github.com/teahaven/teahaven-backend/internal/notifications"
	"github.com/teahaven/teahaven-backend/internal/orders"
	"github.com/teahaven/teahaven-backend/internal/products"
	"github.com/teahaven/teahaven-backend/pkg/auth/session"
	"github.com/teahaven/teahaven-backend/pkg/config"
	"github.com/teahaven/teahaven-backend/pkg/db"
	"github.com/teahaven/teahaven-backend/pkg/enums"
	"github.com/teahaven/teahaven-backend/pkg/logger"
	"github.com/teahaven/teahaven-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	authService authsvc.Service,
	productService products.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	notificationsService notifications.Service,
) http.Handler {
	// A typed nil *redis.Client must read as "not configured" downstream.
	var idemStore redis.IdempotencyStore
	var rateStore middleware.RateLimiterStore
	var cachePinger db.Pinger
	if redisClient != nil {
		idemStore = redisClient
		rateStore = redisClient
		cachePinger = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cachePinger))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg)).Post("/register", controllers.AuthRegister(authService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
	})

	// The catalog is browsable without an account.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(productService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.RequireRole(string(enums.UserRoleSeller), logg))
			r.Use(middleware.Idempotency(idemStore, logg))
			r.Get("/mine", controllers.ListMyProducts(productService, logg))
			r.Post("/", controllers.CreateProduct(productService, logg))
			r.Patch("/{productId}", controllers.UpdateProduct(productService, logg))
			r.Delete("/{productId}", controllers.DeleteProduct(productService, logg))
			r.Post("/{productId}/restock", controllers.RestockProduct(productService, logg))
		})

		r.Get("/{productId}", controllers.GetProduct(productService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PrivatePing(logg))

		r.Route("/v1/auth", func(r chi.Router) {
			r.Post("/logout", controllers.AuthLogout(authService, logg))
			r.Get("/me", controllers.AuthMe(authService, logg))
		})

		r.Post("/v1/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.ListMyOrders(ordersService, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleSeller), logg)).
				Get("/selling", controllers.ListSellerOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.GetOrder(ordersService, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleSeller), logg)).
				Post("/{orderId}/status", controllers.AdvanceOrderStatus(ordersService, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
