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
	"go.uber.org/multierr"

	"github.com/rowanmckenna/marketstead-backend/api/routes"
	authsvc "github.com/rowanmckenna/marketstead-backend/internal/auth"
	"github.com/rowanmckenna/marketstead-backend/internal/cart"
	"github.com/rowanmckenna/marketstead-backend/internal/catalog"
	"github.com/rowanmckenna/marketstead-backend/internal/orders"
	"github.com/rowanmckenna/marketstead-backend/internal/reviews"
	"github.com/rowanmckenna/marketstead-backend/internal/users"
	"github.com/rowanmckenna/marketstead-backend/internal/wishlist"
	"github.com/rowanmckenna/marketstead-backend/pkg/config"
	"github.com/rowanmckenna/marketstead-backend/pkg/db"
	"github.com/rowanmckenna/marketstead-backend/pkg/logger"
	"github.com/rowanmckenna/marketstead-backend/pkg/metrics"
	"github.com/rowanmckenna/marketstead-backend/pkg/migrate"
	"github.com/rowanmckenna/marketstead-backend/pkg/redis"
)

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
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	defer func() {
		closeErr := multierr.Combine(dbClient.Close(), redisClient.Close())
		if closeErr != nil {
			logg.Error(context.Background(), "error closing datasources", closeErr)
		}
	}()

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	productRepo := catalog.NewProductRepository(conn)
	categoryRepo := catalog.NewCategoryRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	reviewRepo := reviews.NewRepository(conn)
	wishlistRepo := wishlist.NewRepository(conn)

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		UserRepo: userRepo,
		JWT:      cfg.JWT,
		Password: cfg.Password,
	})
	exitOnError(logg, "auth service", err)

	userService, err := users.NewService(users.ServiceParams{UserRepo: userRepo})
	exitOnError(logg, "user service", err)

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		ProductRepo:  productRepo,
		CategoryRepo: categoryRepo,
	})
	exitOnError(logg, "catalog service", err)

	cartService, err := cart.NewService(cart.ServiceParams{
		CartRepo:    cartRepo,
		ProductRepo: productRepo,
		Pricing:     cfg.Pricing,
	})
	exitOnError(logg, "cart service", err)

	orderService, err := orders.NewService(orders.ServiceParams{
		Tx:          dbClient,
		OrderRepo:   orderRepo,
		CartRepo:    cartRepo,
		ProductRepo: productRepo,
		Pricing:     cfg.Pricing,
	})
	exitOnError(logg, "order service", err)

	reviewService, err := reviews.NewService(reviews.ServiceParams{
		ReviewRepo:  reviewRepo,
		ProductRepo: productRepo,
	})
	exitOnError(logg, "review service", err)

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlistRepo,
		ProductRepo:  productRepo,
	})
	exitOnError(logg, "wishlist service", err)

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	router := routes.NewRouter(routes.Deps{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		HTTPMetrics:  httpMetrics,
		AuthService:  authService,
		UserService:  userService,
		CatalogSvc:   catalogService,
		CartService:  cartService,
		OrderService: orderService,
		ReviewSvc:    reviewService,
		WishlistSvc:  wishlistService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stop:
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func exitOnError(logg *logger.Logger, what string, err error) {
	if err != nil {
		logg.Error(context.Background(), "failed to create "+what, err)
		os.Exit(1)
	}
}
