package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/routes"
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
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.LogFormat == "console",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	} else {
		logg.Warn(ctx, "redis not configured, running without idempotency and rate limits")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := buildServices(cfg, logg, dbClient, registry)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, registry, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, registry prometheus.Registerer) (routes.Services, error) {
	conn := dbClient.DB()
	now := func() time.Time { return time.Now().UTC() }

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), now)
	if err != nil {
		return routes.Services{}, err
	}
	couponSvc, err := coupons.NewService(coupons.NewRepository(conn), catalogSvc, cfg.FeatureFlags.EnforceCouponRestriction)
	if err != nil {
		return routes.Services{}, err
	}
	cartSvc, err := cart.NewService(cart.NewRepository(conn), dbClient, catalogSvc, couponSvc, now)
	if err != nil {
		return routes.Services{}, err
	}
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		TxRunner:   dbClient,
		Repository: checkout.NewRepository(conn),
		Coupons:    coupons.NewRepository(conn),
		Outbox:     emitter,
		Metrics:    metrics.NewCheckoutMetrics(registry),
		Logger:     logg,
		Now:        now,
	})
	if err != nil {
		return routes.Services{}, err
	}
	ordersSvc, err := orders.NewService(orders.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}
	customerSvc, err := customers.NewService(customers.ServiceParams{
		TxRunner:       dbClient,
		Repository:     customers.NewRepository(conn),
		Outbox:         emitter,
		Carts:          cartSvc,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
		Now:            now,
	})
	if err != nil {
		return routes.Services{}, err
	}
	merchantSvc, err := merchants.NewService(dbClient, merchants.NewRepository(conn), catalogSvc, now)
	if err != nil {
		return routes.Services{}, err
	}
	favoriteSvc, err := favorites.NewService(favorites.NewRepository(conn), catalogSvc, now)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Catalog:   catalogSvc,
		Coupons:   couponSvc,
		Cart:      cartSvc,
		Checkout:  checkoutSvc,
		Orders:    ordersSvc,
		Customers: customerSvc,
		Merchants: merchantSvc,
		Favorites: favoriteSvc,
	}, nil
}
