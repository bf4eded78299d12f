package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"victor-smm-api/internal/backend"
	"victor-smm-api/internal/cache"
	"victor-smm-api/internal/config"
	"victor-smm-api/internal/handler"
	"victor-smm-api/internal/middleware"
	"victor-smm-api/internal/notify"
	"victor-smm-api/internal/repository"
	"victor-smm-api/internal/router"
	"victor-smm-api/internal/service"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	log := newLogger(cfg.App)
	defer log.Sync()
	log.Info("starting victor-smm-api",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version))

	// Session cache backend
	var sessionCache cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddress(), cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Fatal("redis cache initialization failed", zap.Error(err))
		}
		sessionCache = redisCache
		log.Info("redis session cache initialized", zap.String("addr", cfg.Cache.RedisAddress()))
	default:
		sessionCache = cache.NewMemoryCache()
		log.Info("in-memory session cache initialized")
	}
	defer sessionCache.Close()

	// Remote backend client and realtime stream
	client := backend.NewClient(cfg.Backend, log)

	realtime := backend.NewRealtime(cfg.Backend, log)
	if err := realtime.Start(context.Background()); err != nil {
		log.Warn("realtime connection failed, live updates disabled", zap.Error(err))
	}
	defer realtime.Close()

	// Local proof-upload ledger and orphan sweep
	ledger, err := repository.NewSQLiteProofLedger(cfg.ProofLedger.Path)
	if err != nil {
		log.Fatal("proof ledger initialization failed", zap.Error(err))
	}
	defer ledger.Close()

	sweeper := service.NewProofSweeper(ledger, client, service.SweepConfig{
		Interval:        cfg.ProofLedger.SweepInterval,
		OrphanThreshold: cfg.ProofLedger.OrphanThreshold,
	}, log)
	sweeper.Start()
	defer sweeper.Stop()

	// Services
	center := notify.NewCenter(notify.DefaultTTL)

	sessions := service.NewSessionService(client, sessionCache, cfg.Admin, cfg.Cache.SessionTTL, log)
	accounts := service.NewAccountService(client, realtime, ledger, log)
	admins := service.NewAdminService(client, realtime, accounts, log)

	catalog := service.NewCatalogService(client, realtime, log)
	if err := catalog.Start(context.Background()); err != nil {
		log.Warn("initial catalog load failed", zap.Error(err))
	}
	defer catalog.Stop()

	settings := service.NewSettingsService(client, log)
	settings.Start(context.Background())

	// Handlers and router
	r := router.New(router.Config{
		Handler:             handler.New(),
		AuthHandler:         handler.NewAuthHandler(sessions, accounts, admins, center, log),
		MarketplaceHandler:  handler.NewMarketplaceHandler(catalog, accounts, center),
		AccountHandler:      handler.NewAccountHandler(accounts, settings, center),
		AdminHandler:        handler.NewAdminHandler(admins, catalog, settings, center),
		NotificationHandler: handler.NewNotificationHandler(center),
		SessionMiddleware:   middleware.Session(sessions),
		Logger:              log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
}

// newLogger builds the zap logger for the configured environment and
// level. Development gets console output, everything else JSON.
func newLogger(app config.AppConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.Set(app.LogLevel); err != nil {
		level = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if app.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	log, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	return log
}
