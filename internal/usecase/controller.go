// Package usecase contains application business logic.
package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
	"github.com/eliteGoblin/focusd/site_block/internal/schedule"
)

// DefaultCooldown is how long the deactivation timer runs before the
// block is actually lifted. The delay exists to outlast the impulse that
// triggered the request.
const DefaultCooldown = 15 * time.Minute

// Controller owns the blocking state machine: manual toggle, schedule
// reconciliation, the cool-down deactivation timer, and session stats.
// All state transitions go through a single mutex; the privileged hosts
// mutation runs outside the lock with an in-flight guard, so a second
// mutation request is rejected with ErrMutationInFlight instead of
// queueing behind an interactive credential prompt.
type Controller struct {
	mutator     domain.HostsMutator
	configStore domain.ConfigStore
	statsStore  domain.StatsStore
	journal     domain.SessionJournal
	notifier    domain.Notifier
	logger      *zap.Logger

	clock    func() time.Time
	cooldown time.Duration

	mu               sync.Mutex
	active           bool
	lastSessionStart time.Time
	schedules        []domain.Schedule
	sites            []string
	stats            *domain.Stats
	mutating         bool
	timer            *time.Timer
	timerDeadline    time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock injects a time source (for testing).
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithCooldown overrides the deactivation timer duration.
func WithCooldown(d time.Duration) Option {
	return func(c *Controller) { c.cooldown = d }
}

// NewController loads persisted config and stats and returns a
// controller ready to serve. It does not touch the hosts file; call
// Bootstrap to restore a persisted active block.
func NewController(
	mutator domain.HostsMutator,
	configStore domain.ConfigStore,
	statsStore domain.StatsStore,
	journal domain.SessionJournal,
	notifier domain.Notifier,
	logger *zap.Logger,
	opts ...Option,
) *Controller {
	cfg := configStore.LoadConfig()
	c := &Controller{
		mutator:     mutator,
		configStore: configStore,
		statsStore:  statsStore,
		journal:     journal,
		notifier:    notifier,
		logger:      logger,
		clock:       time.Now,
		cooldown:    DefaultCooldown,
		active:      cfg.BlockingActive,
		schedules:   cfg.Schedules,
		sites:       cfg.BlockedSites,
		stats:       statsStore.LoadStats(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bootstrap restores the persisted blocking state after a restart. A
// persisted active flag means the previous process died without
// reverting, so the block is reapplied and a fresh session starts now.
func (c *Controller) Bootstrap(ctx context.Context) error {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if !active {
		return nil
	}
	c.logger.Info("restoring active block from previous run")

	// Clear the flag so Activate performs a full transition.
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
	return c.Activate(ctx)
}

// Activate applies the block and starts a new session. Activating while
// already active is a no-op.
func (c *Controller) Activate(ctx context.Context) error {
	return c.applyBlock(ctx, true)
}

// applyBlock rewrites the hosts file with the current block list.
// newSession controls whether the session start timestamp is reset:
// reapplying after a block-list edit keeps the running session.
func (c *Controller) applyBlock(ctx context.Context, newSession bool) error {
	c.mu.Lock()
	if newSession && c.active {
		c.mu.Unlock()
		return nil
	}
	if !newSession && !c.active {
		// The block was lifted between the caller's active check and
		// now; there is nothing to reapply.
		c.mu.Unlock()
		return nil
	}
	if c.mutating {
		c.mu.Unlock()
		return domain.ErrMutationInFlight
	}
	c.mutating = true
	sites := append([]string(nil), c.sites...)
	c.mu.Unlock()

	err := c.mutator.Apply(ctx, sites)

	c.mu.Lock()
	c.mutating = false
	if err != nil {
		c.mu.Unlock()
		c.notifyError(err)
		return err
	}

	wasActive := c.active
	c.active = true
	if newSession && !wasActive {
		c.lastSessionStart = c.clock()
	}
	saveErr := c.saveConfigLocked()
	c.mu.Unlock()

	// The transition already happened even when persisting it failed, so
	// observers hear about it before the error.
	if !wasActive && c.notifier != nil {
		c.notifier.BlockingChanged(true)
	}
	if saveErr != nil {
		c.notifyError(saveErr)
		return saveErr
	}
	return nil
}

// Deactivate lifts the block immediately, accrues the finished session
// into stats and the journal, and disarms any pending timer. Called by
// the timer on expiry and by schedule reconciliation; manual requests go
// through RequestDeactivation instead.
func (c *Controller) Deactivate(ctx context.Context) error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil
	}
	if c.mutating {
		c.mu.Unlock()
		return domain.ErrMutationInFlight
	}
	c.disarmTimerLocked()
	c.mutating = true
	c.mu.Unlock()

	err := c.mutator.Revert(ctx)

	c.mu.Lock()
	c.mutating = false
	if err != nil {
		c.mu.Unlock()
		c.notifyError(err)
		return err
	}

	now := c.clock()
	start := c.lastSessionStart
	c.active = false
	c.lastSessionStart = time.Time{}

	var rec *domain.SessionRecord
	if !start.IsZero() {
		minutes := int(now.Sub(start) / time.Minute)
		c.stats.TotalTimeSaved += minutes
		c.stats.SessionsBlocked++
		c.stats.LastSession = start.UnixMilli()
		// Minutes land in the bucket of the day the session ended: a
		// session crossing midnight credits the new day.
		c.stats.AddActivity(now, minutes)
		rec = &domain.SessionRecord{StartedAt: start, EndedAt: now, Minutes: minutes}
	}

	saveErr := c.saveConfigLocked()
	if err := c.saveStatsLocked(); err != nil && saveErr == nil {
		saveErr = err
	}
	statsCopy := *c.stats
	c.mu.Unlock()

	if rec != nil {
		if err := c.journal.Append(*rec); err != nil {
			c.logger.Warn("failed to journal session", zap.Error(err))
		}
	}
	if c.notifier != nil {
		c.notifier.BlockingChanged(false)
		c.notifier.StatsUpdated(statsCopy)
	}
	if saveErr != nil {
		c.notifyError(saveErr)
		return saveErr
	}
	return nil
}

// RequestDeactivation arms the cool-down timer. The block stays in place
// until the timer expires. A second request while the timer runs returns
// the remaining time with ErrAlreadyScheduled and does not reset the
// countdown.
func (c *Controller) RequestDeactivation() (time.Duration, error) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return 0, domain.ErrNotActive
	}
	if c.timer != nil {
		remaining := c.timerDeadline.Sub(c.clock())
		c.mu.Unlock()
		return remaining, domain.ErrAlreadyScheduled
	}

	c.timerDeadline = c.clock().Add(c.cooldown)
	c.timer = time.AfterFunc(c.cooldown, c.onTimerExpired)
	cooldown := c.cooldown
	c.mu.Unlock()

	c.logger.Info("deactivation timer armed", zap.Duration("cooldown", cooldown))
	if c.notifier != nil {
		c.notifier.TimerStarted(cooldown)
	}
	return cooldown, nil
}

// CancelDeactivation disarms a pending timer, keeping the block active.
func (c *Controller) CancelDeactivation() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer == nil {
		return domain.ErrNotScheduled
	}
	c.disarmTimerLocked()
	c.logger.Info("deactivation timer canceled")
	return nil
}

// Toggle flips the blocking state: activates when inactive, arms the
// deactivation timer when active. The duration is non-zero when a timer
// was armed by the call.
func (c *Controller) Toggle(ctx context.Context) (time.Duration, error) {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if active {
		return c.RequestDeactivation()
	}
	return 0, c.Activate(ctx)
}

// Tick reconciles the blocking state against the schedules. Inside an
// enabled window the block is active; outside every window a
// schedule-managed block is lifted immediately, no cool-down. With no
// schedules configured Tick never deactivates, so a manual block stays
// until the user ends it.
func (c *Controller) Tick(ctx context.Context, now time.Time) error {
	c.mu.Lock()
	scheds := append([]domain.Schedule(nil), c.schedules...)
	active := c.active
	c.mu.Unlock()

	should := schedule.ShouldBlock(scheds, now)
	switch {
	case should && !active:
		return c.Activate(ctx)
	case !should && active && len(scheds) > 0:
		return c.Deactivate(ctx)
	}
	return nil
}

// onTimerExpired runs when the cool-down elapses.
func (c *Controller) onTimerExpired() {
	c.mu.Lock()
	c.timer = nil
	c.timerDeadline = time.Time{}
	c.mu.Unlock()

	if err := c.Deactivate(context.Background()); err != nil {
		c.logger.Error("timer-driven deactivation failed", zap.Error(err))
	}
}

// RecordActivity adds minutes to today's activity bucket.
func (c *Controller) RecordActivity(minutes int) error {
	c.mu.Lock()
	c.stats.AddActivity(c.clock(), minutes)
	err := c.saveStatsLocked()
	statsCopy := *c.stats
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if c.notifier != nil {
		c.notifier.StatsUpdated(statsCopy)
	}
	return nil
}

// Status is a point-in-time view of the controller.
type Status struct {
	Active              bool          `json:"active"`
	LastSessionStart    time.Time     `json:"last_session_start"`
	DeactivationPending bool          `json:"deactivation_pending"`
	DeactivationIn      time.Duration `json:"deactivation_in,omitempty"`
	ScheduleCount       int           `json:"schedule_count"`
	SiteCount           int           `json:"site_count"`
}

// Status reports the current blocking state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Active:           c.active,
		LastSessionStart: c.lastSessionStart,
		ScheduleCount:    len(c.schedules),
		SiteCount:        len(c.sites),
	}
	if c.timer != nil {
		st.DeactivationPending = true
		st.DeactivationIn = c.timerDeadline.Sub(c.clock())
	}
	return st
}

// Stats returns a copy of the current statistics.
func (c *Controller) Stats() domain.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	statsCopy := *c.stats
	statsCopy.Activity = make(map[string]int, len(c.stats.Activity))
	for k, v := range c.stats.Activity {
		statsCopy.Activity[k] = v
	}
	return statsCopy
}

// Close disarms the timer. The hosts file is left as-is: an active block
// must survive a daemon restart.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disarmTimerLocked()
}

func (c *Controller) disarmTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
		c.timerDeadline = time.Time{}
	}
}

func (c *Controller) saveConfigLocked() error {
	return c.configStore.SaveConfig(&domain.Config{
		Schedules:      c.schedules,
		BlockingActive: c.active,
		BlockedSites:   c.sites,
	})
}

func (c *Controller) saveStatsLocked() error {
	return c.statsStore.SaveStats(c.stats)
}

func (c *Controller) notifyError(err error) {
	c.logger.Error("blocking operation failed", zap.Error(err))
	if c.notifier != nil {
		c.notifier.Error(err)
	}
}
