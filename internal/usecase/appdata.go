package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
	"github.com/eliteGoblin/focusd/site_block/internal/schedule"
)

// ExportData returns all user data as one JSON document.
func (c *Controller) ExportData() ([]byte, error) {
	c.mu.Lock()
	snap := domain.Snapshot{
		Schedules:    append([]domain.Schedule(nil), c.schedules...),
		BlockedSites: append([]string(nil), c.sites...),
		Stats:        *c.stats,
	}
	c.mu.Unlock()

	return json.MarshalIndent(snap, "", "  ")
}

// ImportData replaces schedules, block list and stats from an exported
// snapshot. The document is parsed and validated in full before any
// state changes, so a bad import leaves everything untouched. An active
// block is rewritten with the imported list, and the running session
// keeps its start time.
func (c *Controller) ImportData(ctx context.Context, data []byte) error {
	// A truncated or unrelated document can decode to an all-empty
	// snapshot; require at least one recognizable section before
	// replacing anything.
	var sections struct {
		Schedules    json.RawMessage `json:"schedules"`
		BlockedSites json.RawMessage `json:"blocked_sites"`
		Stats        json.RawMessage `json:"stats"`
	}
	if err := json.Unmarshal(data, &sections); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrImportParse, err)
	}
	if sections.Schedules == nil && sections.BlockedSites == nil && sections.Stats == nil {
		return fmt.Errorf("%w: snapshot has no schedules, blocked_sites or stats", domain.ErrImportParse)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrImportParse, err)
	}
	for _, s := range snap.Schedules {
		if err := schedule.Validate(s); err != nil {
			return fmt.Errorf("%w: schedule %q: %v", domain.ErrImportParse, s.ID, err)
		}
	}
	if snap.BlockedSites == nil {
		snap.BlockedSites = []string{}
	}
	if snap.Schedules == nil {
		snap.Schedules = []domain.Schedule{}
	}
	if snap.Stats.Activity == nil {
		snap.Stats.Activity = map[string]int{}
	}

	c.mu.Lock()
	c.schedules = snap.Schedules
	c.sites = snap.BlockedSites
	*c.stats = snap.Stats
	err := c.saveConfigLocked()
	if serr := c.saveStatsLocked(); serr != nil && err == nil {
		err = serr
	}
	active := c.active
	statsCopy := *c.stats
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.logger.Info("data imported",
		zap.Int("schedules", len(snap.Schedules)),
		zap.Int("sites", len(snap.BlockedSites)))
	if c.notifier != nil {
		c.notifier.StatsUpdated(statsCopy)
	}
	if active {
		if err := c.applyBlock(ctx, false); err != nil {
			return err
		}
	}
	return c.Tick(ctx, c.clock())
}

// ClearAppData resets everything to factory state: the block is lifted
// without accruing a session, schedules and stats are zeroed, the block
// list returns to the defaults, and the session journal is emptied.
func (c *Controller) ClearAppData(ctx context.Context) error {
	c.mu.Lock()
	if c.mutating {
		c.mu.Unlock()
		return domain.ErrMutationInFlight
	}
	c.disarmTimerLocked()
	active := c.active
	if active {
		c.mutating = true
	}
	c.mu.Unlock()

	if active {
		err := c.mutator.Revert(ctx)
		c.mu.Lock()
		c.mutating = false
		c.mu.Unlock()
		if err != nil {
			c.notifyError(err)
			return err
		}
	}

	c.mu.Lock()
	c.active = false
	c.lastSessionStart = time.Time{}
	c.schedules = []domain.Schedule{}
	c.sites = domain.DefaultBlockedSites()
	*c.stats = *domain.DefaultStats()
	err := c.saveConfigLocked()
	if serr := c.saveStatsLocked(); serr != nil && err == nil {
		err = serr
	}
	c.mu.Unlock()

	if jerr := c.journal.Clear(); jerr != nil {
		c.logger.Warn("failed to clear session journal", zap.Error(jerr))
	}
	if err != nil {
		return err
	}
	c.logger.Info("app data cleared")
	if active && c.notifier != nil {
		c.notifier.BlockingChanged(false)
	}
	return nil
}
