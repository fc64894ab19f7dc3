package domain

import (
	"context"
	"time"
)

// HostsMutator applies and reverts the website block by rewriting the
// system hosts file. Both operations strip every line tagged with the
// tool's sentinel marker before writing, so apply is idempotent and
// revert is a pure removal. The privileged copy is a single bounded
// interactive step; if the user dismisses the credential prompt the call
// fails with a permission MutationError.
type HostsMutator interface {
	// Apply rewrites the hosts file with one tagged line per domain.
	Apply(ctx context.Context, sites []string) error

	// Revert removes all tagged lines, leaving untagged content intact.
	Revert(ctx context.Context) error

	// BackupPath returns where the pristine hosts file was copied on
	// first mutation.
	BackupPath() string
}

// ConfigStore persists schedules, the active flag and the block list.
// Loads fall back to defaults on read failure; save errors propagate.
type ConfigStore interface {
	LoadConfig() *Config
	SaveConfig(cfg *Config) error
}

// StatsStore persists session statistics and per-day activity buckets.
type StatsStore interface {
	LoadStats() *Stats
	SaveStats(stats *Stats) error
}

// SessionJournal records completed blocking sessions.
// Implementation: SQLCipher-encrypted database, so the history is not
// casually editable by the user.
type SessionJournal interface {
	// Append stores one completed session.
	Append(rec SessionRecord) error

	// All returns every recorded session, oldest first.
	All() ([]SessionRecord, error)

	// Clear deletes all recorded sessions.
	Clear() error

	// Close releases the database connection.
	Close() error
}

// KeyProvider supplies the session journal's encryption key.
type KeyProvider interface {
	GetKey() ([]byte, error)
	StoreKey(key []byte) error
	KeyExists() bool
}

// ProcessManager handles OS process liveness checks.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// DaemonRegistry records the running evaluator daemon so the CLI can
// find it and so a second instance can refuse to start.
type DaemonRegistry interface {
	// Register saves the daemon's PID. Fails if another live daemon is
	// already registered.
	Register(info DaemonInfo) error

	// Heartbeat updates the liveness timestamp.
	Heartbeat() error

	// Current returns the registered daemon state, or nil if none.
	Current() (*DaemonState, error)

	// IsDaemonAlive checks whether the registered PID is running.
	IsDaemonAlive() (bool, error)

	// Clear removes the registry record (on clean shutdown).
	Clear() error

	// Path returns the registry file path (for tests and status output).
	Path() string
}

// Notifier receives one call per controller transition. The daemon wires
// a logging notifier; tests wire a recorder. Notifications are delivered
// outside the controller's lock, so implementations may read controller
// state, but must not trigger further transitions.
type Notifier interface {
	BlockingChanged(active bool)
	StatsUpdated(stats Stats)
	TimerStarted(d time.Duration)
	Error(err error)
}
