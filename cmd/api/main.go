package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/topsevenstore/checkout-api/api/routes"
	"github.com/topsevenstore/checkout-api/internal/agencies"
	"github.com/topsevenstore/checkout-api/internal/cart"
	checkoutsvc "github.com/topsevenstore/checkout-api/internal/checkout"
	"github.com/topsevenstore/checkout-api/internal/payment"
	"github.com/topsevenstore/checkout-api/pkg/config"
	"github.com/topsevenstore/checkout-api/pkg/content"
	"github.com/topsevenstore/checkout-api/pkg/culqi"
	"github.com/topsevenstore/checkout-api/pkg/logger"
	"github.com/topsevenstore/checkout-api/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "checkout-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "checkout-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	contentClient, err := content.NewClient(cfg.Content)
	if err != nil {
		logg.Error(context.Background(), "failed to build content client", err)
		os.Exit(1)
	}

	widget, err := culqi.NewCheckout(cfg.Culqi, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build payment widget", err)
		os.Exit(1)
	}
	// The hosted checkout is served by the vendor; on the server side it
	// is ready as soon as the adapter exists.
	widget.MarkReady()

	cartService, err := cart.NewService(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	agencyService, err := agencies.NewService(contentClient, redisClient, cfg.Content, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create agency service", err)
		os.Exit(1)
	}

	paymentService, err := payment.NewService(contentClient, redisClient, cfg.Checkout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(
		cartService,
		agencyService,
		paymentService,
		widget,
		redisClient,
		cfg.Culqi,
		cfg.Checkout,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting checkout api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			redisClient,
			contentClient,
			cartService,
			agencyService,
			checkoutService,
			paymentService,
			registry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "checkout api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
