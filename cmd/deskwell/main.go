package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deskwell/internal/aggregator"
	"deskwell/internal/alerting"
	"deskwell/internal/config"
	"deskwell/internal/coordinator"
	"deskwell/internal/database"
	"deskwell/internal/dispatcher"
	httpapi "deskwell/internal/http"
	"deskwell/internal/liveness"
	"deskwell/internal/logger"
	"deskwell/internal/notifier"
	"deskwell/internal/repository"
	"deskwell/internal/service"
	"deskwell/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "deskwell")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer database.Close(db)

	// Dev bootstrap: create tables when they do not exist yet. Production
	// deployments manage the schema with migrations.
	if os.Getenv("DB_BOOTSTRAP") == "true" {
		bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := database.EnsureSchema(bootCtx, db); err != nil {
			bootCancel()
			log.Fatal("failed to bootstrap schema", zap.Error(err))
		}
		bootCancel()
		log.Info("schema bootstrap complete")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	sessionsRepo := repository.NewPostgresSessionsRepo(db, log)
	readingsRepo := repository.NewPostgresReadingsRepo(db, log)
	fatigueRepo := repository.NewPostgresFatigueRepo(db, log)
	devicesRepo := repository.NewPostgresDevicesRepo(db, log)
	alertsRepo := repository.NewPostgresAlertsRepo(db, log)
	commandsRepo := repository.NewPostgresCommandsRepo(db, log)

	kv := store.NewRedisKV(redisClient)
	cache := store.NewRealtimeCache(kv, cfg.Cache.KeyPrefix, cfg.Cache.TTL)
	stream := store.NewAlertStream(redisClient, cfg.Cache.AlertStream)

	restyClient := resty.New().SetTimeout(cfg.Notifier.Timeout)
	webhook := notifier.NewWebhookNotifier(cfg.Notifier.WebhookURL, restyClient, log)

	dedup := alerting.NewDeduplicator(alertsRepo, cfg.Coordinator.DedupWindow, log)
	disp := dispatcher.NewDispatcher(commandsRepo, log)

	coord := coordinator.New(coordinator.Options{
		Sessions:     sessionsRepo,
		Readings:     readingsRepo,
		Fatigue:      fatigueRepo,
		Devices:      devicesRepo,
		Dedup:        dedup,
		Dispatch:     disp,
		Cache:        cache,
		Stream:       stream,
		Notify:       webhook,
		Logger:       log,
		StoreTimeout: cfg.Coordinator.StoreTimeout,
	})

	agg := aggregator.New(aggregator.Options{
		Sessions:      sessionsRepo,
		Readings:      readingsRepo,
		Fatigue:       fatigueRepo,
		Alerts:        alertsRepo,
		Devices:       devicesRepo,
		Cache:         cache,
		Liveness:      liveness.NewTracker(cfg.Coordinator.LivenessThreshold),
		Logger:        log,
		FatigueWindow: cfg.Coordinator.FatigueWindow,
	})

	router := httpapi.NewRouter(log)
	router.RegisterDeviceRoutes(httpapi.NewDeviceHandler(coord, disp, log))
	router.RegisterDashboardRoutes(httpapi.NewDashboardHandler(agg, disp, sessionsRepo, alertsRepo, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		log.Error("HTTP server exited", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}
