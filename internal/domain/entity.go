// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// BlockingState is the single process-wide blocking status.
// Mutated only by the session controller.
type BlockingState struct {
	Active           bool
	LastSessionStart time.Time // zero when no session is in progress
}

// Schedule is a recurring weekly blocking window. Windows are half-open:
// the start minute is inclusive, the end minute exclusive. A window whose
// start is at or after its end never matches; there is no wraparound
// across midnight.
type Schedule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	StartHour   int    `json:"start_hour" validate:"gte=0,lte=23"`
	StartMinute int    `json:"start_minute" validate:"gte=0,lte=59"`
	EndHour     int    `json:"end_hour" validate:"gte=0,lte=23"`
	EndMinute   int    `json:"end_minute" validate:"gte=0,lte=59"`
	Days        []int  `json:"days" validate:"required,min=1,dive,gte=0,lte=6"`
	Enabled     bool   `json:"enabled"`
}

// StartMinutes returns the window start as minutes since midnight.
func (s Schedule) StartMinutes() int {
	return s.StartHour*60 + s.StartMinute
}

// EndMinutes returns the window end as minutes since midnight.
func (s Schedule) EndMinutes() int {
	return s.EndHour*60 + s.EndMinute
}

// Config is the persisted configuration record: schedules, the active
// flag, and the block list. Stored as human-readable JSON.
type Config struct {
	Schedules      []Schedule `json:"schedules"`
	BlockingActive bool       `json:"blocking_active"`
	BlockedSites   []string   `json:"blocked_sites"`
}

// Stats holds blocking session statistics. Activity maps a date key
// (YYYY-MM-DD) to minutes saved that day; entries only accumulate until
// explicitly cleared.
type Stats struct {
	TotalTimeSaved  int            `json:"total_time_saved"` // minutes
	SessionsBlocked int            `json:"sessions_blocked"`
	LastSession     int64          `json:"last_session,omitempty"` // unix millis of last session start, 0 = none
	Activity        map[string]int `json:"activity,omitempty"`
}

// ActivityKey formats a timestamp as the per-day activity bucket key.
func ActivityKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// AddActivity accumulates minutes into the bucket for the given day.
func (s *Stats) AddActivity(day time.Time, minutes int) {
	if s.Activity == nil {
		s.Activity = make(map[string]int)
	}
	s.Activity[ActivityKey(day)] += minutes
}

// Snapshot is the export/import unit: all user data in one document.
type Snapshot struct {
	Schedules    []Schedule `json:"schedules"`
	BlockedSites []string   `json:"blocked_sites"`
	Stats        Stats      `json:"stats"`
}

// SessionRecord is one completed blocking session, appended to the
// encrypted session journal at deactivation time.
type SessionRecord struct {
	StartedAt time.Time
	EndedAt   time.Time
	Minutes   int
}

// DaemonInfo describes the running evaluator daemon.
type DaemonInfo struct {
	PID        int
	StartedAt  time.Time
	AppVersion string
}

// DaemonState is the persisted daemon registry record, used by the CLI
// to discover a running daemon and check liveness.
type DaemonState struct {
	Version       int    `json:"version"`
	PID           int    `json:"pid"`
	StartedAt     int64  `json:"started_at"`
	LastHeartbeat int64  `json:"last_heartbeat"`
	AppVersion    string `json:"app_version,omitempty"`
}

// DefaultBlockedSites returns the built-in block list used when no
// configuration exists yet (and after a full app-data reset).
func DefaultBlockedSites() []string {
	return []string{
		"facebook.com",
		"www.facebook.com",
		"twitter.com",
		"www.twitter.com",
		"x.com",
		"www.x.com",
		"instagram.com",
		"www.instagram.com",
		"tiktok.com",
		"www.tiktok.com",
		"youtube.com",
		"www.youtube.com",
		"reddit.com",
		"www.reddit.com",
		"netflix.com",
		"www.netflix.com",
		"twitch.tv",
		"www.twitch.tv",
		"pinterest.com",
		"www.pinterest.com",
		"linkedin.com",
		"www.linkedin.com",
		"snapchat.com",
		"www.snapchat.com",
	}
}

// DefaultConfig returns the configuration used on first run.
func DefaultConfig() *Config {
	return &Config{
		Schedules:      []Schedule{},
		BlockingActive: false,
		BlockedSites:   DefaultBlockedSites(),
	}
}

// DefaultStats returns zeroed statistics.
func DefaultStats() *Stats {
	return &Stats{Activity: map[string]int{}}
}
