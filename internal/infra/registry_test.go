package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
)

func newTestRegistry(t *testing.T, pm *mockProcessManager) *FileRegistry {
	t.Helper()
	return NewFileRegistryWithPath(filepath.Join(t.TempDir(), "daemon.json"), pm)
}

func daemonInfo(pid int) domain.DaemonInfo {
	return domain.DaemonInfo{
		PID:        pid,
		StartedAt:  time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		AppVersion: "1.0.0",
	}
}

func TestFileRegistry_RegisterAndCurrent(t *testing.T) {
	reg := newTestRegistry(t, newMockProcessManager())

	require.NoError(t, reg.Register(daemonInfo(1234)))

	state, err := reg.Current()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 1234, state.PID)
	assert.Equal(t, "1.0.0", state.AppVersion)
	assert.True(t, state.LastHeartbeat > 0)
}

func TestFileRegistry_CurrentEmptyReturnsNil(t *testing.T) {
	reg := newTestRegistry(t, newMockProcessManager())

	state, err := reg.Current()
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestFileRegistry_RegisterRejectsLiveDaemon(t *testing.T) {
	pm := newMockProcessManager()
	reg := newTestRegistry(t, pm)

	require.NoError(t, reg.Register(daemonInfo(1234)))
	pm.SetRunning(1234, true)

	err := reg.Register(daemonInfo(5678))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	// Original record untouched.
	state, err := reg.Current()
	require.NoError(t, err)
	assert.Equal(t, 1234, state.PID)
}

func TestFileRegistry_RegisterReplacesStaleRecord(t *testing.T) {
	pm := newMockProcessManager()
	reg := newTestRegistry(t, pm)

	require.NoError(t, reg.Register(daemonInfo(1234)))
	pm.SetRunning(1234, false)

	require.NoError(t, reg.Register(daemonInfo(5678)))

	state, err := reg.Current()
	require.NoError(t, err)
	assert.Equal(t, 5678, state.PID)
}

func TestFileRegistry_Heartbeat(t *testing.T) {
	reg := newTestRegistry(t, newMockProcessManager())
	require.NoError(t, reg.Register(daemonInfo(1234)))

	before, err := reg.Current()
	require.NoError(t, err)

	require.NoError(t, reg.Heartbeat())

	after, err := reg.Current()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, after.LastHeartbeat, before.LastHeartbeat)
}

func TestFileRegistry_HeartbeatWithoutRegistration(t *testing.T) {
	reg := newTestRegistry(t, newMockProcessManager())
	assert.Error(t, reg.Heartbeat())
}

func TestFileRegistry_IsDaemonAlive(t *testing.T) {
	pm := newMockProcessManager()
	reg := newTestRegistry(t, pm)

	alive, err := reg.IsDaemonAlive()
	require.NoError(t, err)
	assert.False(t, alive)

	require.NoError(t, reg.Register(daemonInfo(1234)))

	pm.SetRunning(1234, true)
	alive, err = reg.IsDaemonAlive()
	require.NoError(t, err)
	assert.True(t, alive)

	pm.SetRunning(1234, false)
	alive, err = reg.IsDaemonAlive()
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestFileRegistry_Clear(t *testing.T) {
	reg := newTestRegistry(t, newMockProcessManager())
	require.NoError(t, reg.Register(daemonInfo(1234)))

	require.NoError(t, reg.Clear())

	state, err := reg.Current()
	require.NoError(t, err)
	assert.Nil(t, state)

	// Clearing an already empty registry is not an error.
	assert.NoError(t, reg.Clear())
}

func TestFileRegistry_CorruptFileSurfacesError(t *testing.T) {
	reg := newTestRegistry(t, newMockProcessManager())
	require.NoError(t, os.WriteFile(reg.Path(), []byte("{broken"), 0o600))

	_, err := reg.Current()
	assert.Error(t, err)
}
