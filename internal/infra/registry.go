package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
)

const registryFileName = "daemon.json"

// FileRegistry implements domain.DaemonRegistry using a JSON file under
// the data directory. A flock-guarded read-modify-write prevents two
// daemon instances racing to register at the same time.
type FileRegistry struct {
	path           string
	processManager domain.ProcessManager
}

// NewFileRegistry creates a registry under dataDir.
func NewFileRegistry(dataDir string, pm domain.ProcessManager) *FileRegistry {
	return &FileRegistry{
		path:           filepath.Join(dataDir, registryFileName),
		processManager: pm,
	}
}

// NewFileRegistryWithPath creates a registry at a specific path (for
// testing).
func NewFileRegistryWithPath(path string, pm domain.ProcessManager) *FileRegistry {
	return &FileRegistry{path: path, processManager: pm}
}

// Path returns the registry file path.
func (r *FileRegistry) Path() string {
	return r.path
}

// Register claims the daemon slot. It fails if a previously registered
// daemon is still running; a stale record from a crashed daemon is
// silently replaced.
func (r *FileRegistry) Register(info domain.DaemonInfo) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	current, err := r.Current()
	if err != nil {
		return err
	}
	if current != nil && current.PID != info.PID && r.processManager.IsRunning(current.PID) {
		return fmt.Errorf("daemon already running with pid %d", current.PID)
	}

	now := time.Now().Unix()
	return r.atomicWrite(&domain.DaemonState{
		Version:       1,
		PID:           info.PID,
		StartedAt:     info.StartedAt.Unix(),
		LastHeartbeat: now,
		AppVersion:    info.AppVersion,
	})
}

// Heartbeat refreshes the liveness timestamp of the registered daemon.
func (r *FileRegistry) Heartbeat() error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	state, err := r.Current()
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("daemon not registered")
	}
	state.LastHeartbeat = time.Now().Unix()
	return r.atomicWrite(state)
}

// Current returns the registered daemon state, or nil when no record
// exists.
func (r *FileRegistry) Current() (*domain.DaemonState, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var state domain.DaemonState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// IsDaemonAlive reports whether the registered PID is a live process.
func (r *FileRegistry) IsDaemonAlive() (bool, error) {
	state, err := r.Current()
	if err != nil {
		return false, err
	}
	if state == nil || state.PID == 0 {
		return false, nil
	}
	return r.processManager.IsRunning(state.PID), nil
}

// Clear removes the registry record.
func (r *FileRegistry) Clear() error {
	err := os.Remove(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// lock acquires an exclusive flock on a sibling lock file and returns
// the release function.
func (r *FileRegistry) lock() (func(), error) {
	lockPath := r.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return func() {
		_ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
		lockFile.Close()
	}, nil
}

func (r *FileRegistry) atomicWrite(state *domain.DaemonState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return atomicWrite(r.path, data, 0o600)
}

var _ domain.DaemonRegistry = (*FileRegistry)(nil)
