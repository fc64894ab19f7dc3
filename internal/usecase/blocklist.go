package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
	"github.com/eliteGoblin/focusd/site_block/internal/schedule"
)

// Sites returns a copy of the block list.
func (c *Controller) Sites() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sites...)
}

// AddSite appends a domain to the block list. The entry is stored as
// given, minus surrounding whitespace; "Facebook.com" and "facebook.com"
// are distinct entries, matching how the hosts file treats them. While
// blocking is active the hosts file is rewritten so the new entry takes
// effect immediately, without restarting the session.
func (c *Controller) AddSite(ctx context.Context, site string) error {
	site = strings.TrimSpace(site)
	if site == "" {
		return fmt.Errorf("site must not be empty")
	}

	c.mu.Lock()
	for _, s := range c.sites {
		if s == site {
			c.mu.Unlock()
			return domain.ErrAlreadyExists
		}
	}
	c.sites = append(c.sites, site)
	err := c.saveConfigLocked()
	active := c.active
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.logger.Info("site added to block list", zap.String("site", site))
	if active {
		return c.applyBlock(ctx, false)
	}
	return nil
}

// RemoveSite deletes a domain from the block list, rewriting the hosts
// file when blocking is active.
func (c *Controller) RemoveSite(ctx context.Context, site string) error {
	site = strings.TrimSpace(site)

	c.mu.Lock()
	idx := -1
	for i, s := range c.sites {
		if s == site {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return domain.ErrNotFound
	}
	c.sites = append(c.sites[:idx], c.sites[idx+1:]...)
	err := c.saveConfigLocked()
	active := c.active
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.logger.Info("site removed from block list", zap.String("site", site))
	if active {
		return c.applyBlock(ctx, false)
	}
	return nil
}

// Schedules returns a copy of the configured schedules.
func (c *Controller) Schedules() []domain.Schedule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Schedule(nil), c.schedules...)
}

// SaveSchedule creates or updates a schedule. An empty ID creates a new
// schedule with a generated ID; a non-empty ID must match an existing
// schedule. The new state takes effect on the immediate reconciliation
// pass, not at the next tick.
func (c *Controller) SaveSchedule(ctx context.Context, s domain.Schedule) (domain.Schedule, error) {
	if err := schedule.Validate(s); err != nil {
		return domain.Schedule{}, err
	}

	c.mu.Lock()
	if s.ID == "" {
		s.ID = fmt.Sprintf("%d", c.clock().UnixMilli())
		c.schedules = append(c.schedules, s)
	} else {
		idx := -1
		for i, existing := range c.schedules {
			if existing.ID == s.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			c.mu.Unlock()
			return domain.Schedule{}, domain.ErrNotFound
		}
		c.schedules[idx] = s
	}
	err := c.saveConfigLocked()
	c.mu.Unlock()

	if err != nil {
		return domain.Schedule{}, err
	}
	c.logger.Info("schedule saved",
		zap.String("id", s.ID),
		zap.String("name", s.Name),
		zap.Bool("enabled", s.Enabled))
	return s, c.Tick(ctx, c.clock())
}

// DeleteSchedule removes a schedule by ID and reconciles immediately.
// Deleting the last schedule leaves an active block in place; with no
// schedules left the block is treated as manual.
func (c *Controller) DeleteSchedule(ctx context.Context, id string) error {
	c.mu.Lock()
	idx := -1
	for i, s := range c.schedules {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return domain.ErrNotFound
	}
	c.schedules = append(c.schedules[:idx], c.schedules[idx+1:]...)
	err := c.saveConfigLocked()
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.logger.Info("schedule deleted", zap.String("id", id))
	return c.Tick(ctx, c.clock())
}
