// Package expiry runs the scheduled check for products close to their
// expiration date and pushes alerts through the configured notifier.
package expiry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/despensaapp/despensa/internal/config"
	"github.com/despensaapp/despensa/internal/notify"
	"github.com/despensaapp/despensa/internal/store"
)

// Runner schedules the daily expiration sweep.
type Runner struct {
	config   config.ExpiryConfig
	store    *store.Store
	notifier notify.Notifier
	logger   *zap.Logger
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
}

// NewRunner creates the sweep runner. It does not start the schedule.
func NewRunner(cfg config.ExpiryConfig, st *store.Store, notifier notify.Notifier, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 8 * * *"
	}
	if cfg.DaysAhead <= 0 {
		cfg.DaysAhead = 7
	}

	return &Runner{
		config:   cfg,
		store:    st,
		notifier: notifier,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start registers the schedule and begins running it.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("expiry runner already running")
	}

	_, err := r.cron.AddFunc(r.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := r.RunOnce(ctx); err != nil {
			r.logger.Error("expiration sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid expiry schedule %q: %w", r.config.Schedule, err)
	}

	r.cron.Start()
	r.running = true
	r.logger.Info("expiry runner started",
		zap.String("schedule", r.config.Schedule),
		zap.Int("days_ahead", r.config.DaysAhead))

	return nil
}

// Stop halts the schedule and waits for an in-flight sweep.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	ctx := r.cron.Stop()
	<-ctx.Done()
	r.running = false
}

// RunOnce performs one sweep immediately.
func (r *Runner) RunOnce(ctx context.Context) error {
	products, err := r.store.ExpiringSoon(r.config.DaysAhead)
	if err != nil {
		return fmt.Errorf("failed to query expiring products: %w", err)
	}

	if len(products) == 0 {
		r.logger.Debug("no products expiring soon")
		return nil
	}

	return r.notifier.NotifyExpiring(ctx, products)
}
