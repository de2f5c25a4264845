package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/auth"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/config"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/credits"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/exchange"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/notifications"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/notifications/websocket"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/reports"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store/memory"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store/postgres"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/verification"
)

func main() {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		zap.NewExample().Fatal("configuration error", zap.Error(err))
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("store initialization failed", zap.Error(err))
	}
	defer st.Close()

	hub := websocket.NewHub(logger.Named("ws"))
	defer hub.Stop()
	sink := notifications.NewService(hub, logger.Named("notifications"))

	verificationService := verification.NewService(st, sink, ledger.SystemClock)
	creditsService := credits.NewService(st, sink, ledger.SystemClock)
	exchangeService := exchange.NewService(st, sink, ledger.SystemClock)
	reportsService := reports.NewService(st, ledger.SystemClock, logger.Named("reports"))

	sweeper := exchange.NewSweeper(exchangeService, logger.Named("sweeper"), exchange.SweeperConfig{
		Schedule: cfg.Exchange.SweepSchedule,
		Timeout:  cfg.Exchange.SweepTimeout,
	})
	if err := sweeper.Start(); err != nil {
		logger.Fatal("sweeper start failed", zap.Error(err))
	}
	defer sweeper.Stop()

	router := newRouter(cfg, logger, st, hub,
		verificationService, creditsService, exchangeService, reportsService)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("credit ledger API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config.json"
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if parsed, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = parsed
	}
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewExample()
	}
	return logger
}

func openStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		logger.Info("using postgres store",
			zap.String("host", cfg.Database.Host),
			zap.String("db", cfg.Database.DBName))
		return postgres.Open(cfg.Database.DSN(), postgres.Options{
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			MaxLifetime:  cfg.Database.MaxLifetime,
		})
	default:
		logger.Warn("using in-memory store, state is not persisted")
		return memory.New(), nil
	}
}

func newRouter(
	cfg *config.Config,
	logger *zap.Logger,
	st store.Store,
	hub *websocket.Hub,
	verificationService verification.Service,
	creditsService credits.Service,
	exchangeService exchange.Service,
	reportsService reports.Service,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
	})

	api := router.Group("/api/v1")

	authHandler := auth.NewHandler(cfg.Security.JWTSecret, cfg.Security.TokenTTL, logger.Named("auth"))
	authHandler.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(auth.Middleware(cfg.Security.JWTSecret))
	{
		verification.NewHandler(verificationService).RegisterRoutes(protected)
		credits.NewHandler(creditsService).RegisterRoutes(protected)
		exchange.NewHandler(exchangeService).RegisterRoutes(protected)
		reports.NewHandler(reportsService).RegisterRoutes(protected)
		notifications.NewHandler(st, hub, logger.Named("events")).RegisterRoutes(protected)
	}

	return router
}
