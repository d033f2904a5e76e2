package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/exrstore/exr-backend/api/routes"
	"github.com/exrstore/exr-backend/internal/accounts"
	"github.com/exrstore/exr-backend/internal/coupons"
	"github.com/exrstore/exr-backend/internal/notifications"
	"github.com/exrstore/exr-backend/internal/orders"
	"github.com/exrstore/exr-backend/internal/refunds"
	"github.com/exrstore/exr-backend/internal/settings"
	"github.com/exrstore/exr-backend/internal/wallet"
	"github.com/exrstore/exr-backend/pkg/config"
	"github.com/exrstore/exr-backend/pkg/db"
	"github.com/exrstore/exr-backend/pkg/logger"
	"github.com/exrstore/exr-backend/pkg/metrics"
	"github.com/exrstore/exr-backend/pkg/migrate"
	"github.com/exrstore/exr-backend/pkg/redis"
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
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

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

	commerceMetrics := metrics.NewCommerceMetrics(prometheus.DefaultRegisterer)

	accountsRepo := accounts.NewRepository(dbClient.DB())
	walletService, err := wallet.NewService(dbClient, wallet.NewRepository(dbClient.DB()), accountsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	couponsService, err := coupons.NewService(coupons.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create coupons service", err)
		os.Exit(1)
	}

	settingsService, err := settings.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(dbClient, ordersRepo, settingsService, couponsService, walletService, commerceMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	// NewMailer returns nil when SMTP is unconfigured; assigning that typed
	// nil pointer straight to the interface would defeat the mailer checks.
	var refundMailer refunds.Mailer
	if m := notifications.NewMailer(cfg.SMTP, cfg.Store, logg); m != nil {
		refundMailer = m
	}

	refundsService, err := refunds.NewService(dbClient, dbClient.DB(), ordersRepo, walletService, accountsRepo, refundMailer, commerceMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

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
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			couponsService,
			ordersService,
			walletService,
			refundsService,
			settingsService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
