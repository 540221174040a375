package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mfigueredo/vendora-backend/api/routes"
	"github.com/mfigueredo/vendora-backend/internal/customerwallet"
	"github.com/mfigueredo/vendora-backend/internal/notifications"
	"github.com/mfigueredo/vendora-backend/internal/orders"
	"github.com/mfigueredo/vendora-backend/internal/returns"
	"github.com/mfigueredo/vendora-backend/internal/settlement"
	"github.com/mfigueredo/vendora-backend/internal/wallet"
	"github.com/mfigueredo/vendora-backend/pkg/config"
	"github.com/mfigueredo/vendora-backend/pkg/db"
	"github.com/mfigueredo/vendora-backend/pkg/logger"
	"github.com/mfigueredo/vendora-backend/pkg/metrics"
	"github.com/mfigueredo/vendora-backend/pkg/migrate"
	"github.com/mfigueredo/vendora-backend/pkg/outbox"
	"github.com/mfigueredo/vendora-backend/pkg/redis"
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

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)
	walletMetrics := metrics.NewWalletMetrics(prometheus.DefaultRegisterer)

	walletSvc, err := wallet.NewService(wallet.NewRepository(gormDB), dbClient, outboxSvc, logg, walletMetrics, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	customerWalletSvc, err := customerwallet.NewService(customerwallet.NewRepository(gormDB), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create customer wallet service", err)
		os.Exit(1)
	}

	codes, err := orders.NewCodeGenerator(redisClient, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create order code generator", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(gormDB)
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, walletSvc, customerWalletSvc, codes, cfg.Settlement, logg, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	returnsSvc, err := returns.NewService(returns.NewRepository(gormDB), ordersRepo, dbClient, outboxSvc, walletSvc, customerWalletSvc, cfg.ReturnPolicy, cfg.Settlement, logg, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create returns service", err)
		os.Exit(1)
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(gormDB), nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	sweeper, err := settlement.NewSweeper(settlement.NewRepository(gormDB), ordersRepo, dbClient, outboxSvc, walletSvc, cfg.Settlement, logg, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement sweeper", err)
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
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DBPinger:      dbClient,
			Redis:         redisClient,
			Orders:        ordersSvc,
			Wallet:        walletSvc,
			Returns:       returnsSvc,
			Notifications: notificationsSvc,
			Sweeper:       sweeper,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
