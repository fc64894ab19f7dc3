// Package daemon runs the background evaluator loop and its control
// endpoint.
package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
)

// Evaluator is what the loop drives each tick. Satisfied by
// usecase.Controller.
type Evaluator interface {
	Tick(ctx context.Context, now time.Time) error
}

// Config holds daemon loop configuration.
type Config struct {
	TickInterval      time.Duration // schedule reconciliation cadence
	HeartbeatInterval time.Duration // registry liveness cadence
}

// DefaultConfig returns the default loop cadences.
func DefaultConfig() Config {
	return Config{
		TickInterval:      60 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Daemon owns the reconciliation loop. It registers itself so a second
// instance refuses to start, reconciles once immediately, then ticks on
// an interval until the context is canceled.
type Daemon struct {
	config    Config
	evaluator Evaluator
	registry  domain.DaemonRegistry
	info      domain.DaemonInfo
	logger    *zap.Logger
}

// New creates a daemon.
func New(
	config Config,
	evaluator Evaluator,
	registry domain.DaemonRegistry,
	info domain.DaemonInfo,
	logger *zap.Logger,
) *Daemon {
	return &Daemon{
		config:    config,
		evaluator: evaluator,
		registry:  registry,
		info:      info,
		logger:    logger,
	}
}

// Run blocks until the context is canceled. The registry record is
// cleared on the way out so the next start does not see a stale PID.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.registry.Register(d.info); err != nil {
		d.logger.Error("failed to register daemon", zap.Error(err))
		return err
	}
	defer func() {
		if err := d.registry.Clear(); err != nil {
			d.logger.Warn("failed to clear daemon registry", zap.Error(err))
		}
	}()

	d.logger.Info("daemon started",
		zap.Int("pid", d.info.PID),
		zap.Duration("tick_interval", d.config.TickInterval))

	// Reconcile immediately so a schedule window already in progress
	// takes effect at startup, not a tick later.
	d.runTick(ctx)

	tickTicker := time.NewTicker(d.config.TickInterval)
	heartbeatTicker := time.NewTicker(d.config.HeartbeatInterval)
	defer func() {
		tickTicker.Stop()
		heartbeatTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping")
			return ctx.Err()

		case <-tickTicker.C:
			d.runTick(ctx)

		case <-heartbeatTicker.C:
			if err := d.registry.Heartbeat(); err != nil {
				d.logger.Warn("failed to update heartbeat", zap.Error(err))
			}
		}
	}
}

func (d *Daemon) runTick(ctx context.Context) {
	if err := d.evaluator.Tick(ctx, time.Now()); err != nil {
		d.logger.Error("reconciliation failed", zap.Error(err))
	}
}
