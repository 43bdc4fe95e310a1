package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/internal/customers"
	"github.com/angelmondragon/storefront-backend/internal/favorites"
	"github.com/angelmondragon/storefront-backend/internal/merchants"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Services groups the domain services exposed over HTTP.
type Services struct {
	Catalog   catalog.Service
	Coupons   coupons.Service
	Cart      cart.Service
	Checkout  checkout.Service
	Orders    orders.Service
	Customers customers.Service
	Merchants merchants.Service
	Favorites favorites.Service
}

type redisStore interface {
	Ping(context.Context) error
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Set(context.Context, string, any, time.Duration) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	IdempotencyKey(scope, id string) string
	CartSessionKey(session string) string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	svc Services,
) http.Handler {
	// Keep a nil client out of the interface so middleware sees a true nil.
	var store redisStore
	var redisPinger controllers.Pinger
	if redisClient != nil {
		store = redisClient
		redisPinger = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSAllowedOrigins),
	)
	if registry != nil {
		r.Use(middleware.Metrics(metrics.NewHTTPMetrics(registry)))
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.HTTP.LoginRateWindow,
		cfg.HTTP.LoginRateIPLimit,
		cfg.HTTP.LoginRateMailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.HTTP.LoginRateWindow,
		cfg.HTTP.LoginRateIPLimit,
		0,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"password_reset",
		cfg.HTTP.LoginRateWindow,
		cfg.HTTP.LoginRateIPLimit,
		cfg.HTTP.LoginRateMailLimit,
	)
	idempotent := middleware.Idempotency(idempotencyStore(store), logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"database": dbP,
			"redis":    redisPinger,
		}, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateLimitStore(store), logg)).Post("/login", controllers.AuthLogin(svc.Customers, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, rateLimitStore(store), logg), idempotent).Post("/register", controllers.AuthRegister(svc.Customers, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, rateLimitStore(store), logg)).Post("/password-reset", controllers.AuthPasswordReset(svc.Customers, logg))
		r.Post("/password-reset/confirm", controllers.AuthPasswordResetConfirm(svc.Customers, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Get("/", controllers.ProductsList(svc.Catalog, logg))
		r.Get("/{slug}", controllers.ProductGet(svc.Catalog, logg))
	})

	r.Get("/api/v1/merchant-categories", controllers.MerchantCategoriesList(svc.Merchants, logg))
	r.Get("/api/v1/product-categories", controllers.ProductCategoriesList(svc.Merchants, logg))
	r.Get("/api/v1/merchants/{slug}", controllers.MerchantGet(svc.Merchants, logg))

	r.Route("/api/v1/merchant", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.With(idempotent).Post("/", controllers.MerchantRegister(svc.Merchants, logg))
		r.Get("/dashboard", controllers.MerchantDashboard(svc.Merchants, logg))
		r.With(idempotent).Post("/products", controllers.MerchantCreateProduct(svc.Merchants, logg))
	})

	r.Route("/api/v1/favorites", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/", controllers.FavoritesList(svc.Favorites, logg))
		r.Put("/{productId}", controllers.FavoriteAdd(svc.Favorites, logg))
		r.Delete("/{productId}", controllers.FavoriteRemove(svc.Favorites, logg))
		r.Post("/{productId}/toggle", controllers.FavoriteToggle(svc.Favorites, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.CartSession(sessionStore(store), cfg.HTTP.CartSessionTTL, logg))

		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(svc.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svc.Cart, logg))
			r.Post("/items/update", controllers.CartUpdateItem(svc.Cart, logg))
			r.Post("/items/delete", controllers.CartRemoveItem(svc.Cart, logg))
			r.Post("/coupon", controllers.CartApplyCoupon(svc.Cart, logg))
			r.Post("/coupon/delete", controllers.CartRemoveCoupon(svc.Cart, logg))
		})
		r.With(idempotent).Post("/api/v1/checkout", controllers.Checkout(svc.Checkout, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/", controllers.OrdersList(svc.Orders, logg))
		r.Get("/{orderId}", controllers.OrderGet(svc.Orders, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.CustomerRoleAdmin))
		r.With(idempotent).Post("/products", controllers.AdminCreateProduct(svc.Catalog, logg))
		r.With(idempotent).Post("/coupons", controllers.AdminCreateCoupon(svc.Coupons, logg))
		r.With(idempotent).Post("/merchant-categories", controllers.AdminCreateMerchantCategory(svc.Merchants, logg))
		r.With(idempotent).Post("/product-categories", controllers.AdminCreateProductCategory(svc.Merchants, logg))
	})

	return r
}

func idempotencyStore(store redisStore) redis.IdempotencyStore {
	if store == nil {
		return nil
	}
	return store
}

func rateLimitStore(store redisStore) middleware.RateLimiterStore {
	if store == nil {
		return nil
	}
	return store
}

func sessionStore(store redisStore) middleware.SessionStore {
	if store == nil {
		return nil
	}
	return store
}
