// Standalone expired-order sweeper. Deployments that scale the API
// horizontally run exactly one of these instead of the in-process
// schedule, so expired escrow is released once rather than raced.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/config"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/exchange"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store/postgres"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep pass and exit")
	configFile := flag.String("config", "config.json", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		zap.NewExample().Fatal("configuration error", zap.Error(err))
	}

	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()

	if cfg.Database.Driver != "postgres" {
		logger.Fatal("sweeper worker requires the postgres store",
			zap.String("driver", cfg.Database.Driver))
	}

	st, err := postgres.Open(cfg.Database.DSN(), postgres.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxLifetime:  cfg.Database.MaxLifetime,
	})
	if err != nil {
		logger.Fatal("store initialization failed", zap.Error(err))
	}
	defer st.Close()

	service := exchange.NewService(st, nil, ledger.SystemClock)
	sweeper := exchange.NewSweeper(service, logger.Named("sweeper"), exchange.SweeperConfig{
		Schedule: cfg.Exchange.SweepSchedule,
		Timeout:  cfg.Exchange.SweepTimeout,
	})

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Exchange.SweepTimeout)
		defer cancel()
		swept, err := sweeper.RunOnce(ctx)
		if err != nil {
			logger.Fatal("sweep failed", zap.Error(err))
		}
		logger.Info("sweep complete", zap.Int("orders_swept", swept))
		return
	}

	if err := sweeper.Start(); err != nil {
		logger.Fatal("sweeper start failed", zap.Error(err))
	}
	defer sweeper.Stop()
	logger.Info("sweeper running", zap.String("schedule", cfg.Exchange.SweepSchedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
}
