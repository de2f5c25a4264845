package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically returns escrow held by expired orders. Expired
// orders are inert for buying but keep their escrow until cancelled or
// swept, so the sweep is what bounds how long escrow can be stranded.
type Sweeper struct {
	service  Service
	logger   *zap.Logger
	cron     *cron.Cron
	schedule string
	timeout  time.Duration

	mu      sync.Mutex
	running bool
}

// SweeperConfig configures the sweep schedule.
type SweeperConfig struct {
	// Schedule is a cron expression; defaults to every five minutes.
	Schedule string
	// Timeout bounds a single sweep pass.
	Timeout time.Duration
}

// NewSweeper creates a sweeper over the exchange service.
func NewSweeper(service Service, logger *zap.Logger, cfg SweeperConfig) *Sweeper {
	if cfg.Schedule == "" {
		cfg.Schedule = "*/5 * * * *"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Sweeper{
		service:  service,
		logger:   logger,
		cron:     cron.New(),
		schedule: cfg.Schedule,
		timeout:  cfg.Timeout,
	}
}

// Start registers the cron entry and begins sweeping.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sweeper is already running")
	}

	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("order sweeper started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info("order sweeper stopped")
}

// RunOnce performs a single sweep pass, used by the standalone worker.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	return s.service.SweepExpired(ctx)
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	swept, err := s.service.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("order sweep failed", zap.Error(err))
		return
	}
	if swept > 0 {
		s.logger.Info("expired orders swept", zap.Int("count", swept))
	}
}
