package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
)

type countingEvaluator struct {
	mu    sync.Mutex
	ticks int
}

func (e *countingEvaluator) Tick(ctx context.Context, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ticks++
	return nil
}

func (e *countingEvaluator) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

type fakeRegistry struct {
	mu          sync.Mutex
	registered  *domain.DaemonInfo
	heartbeats  int
	cleared     int
	registerErr error
}

func (r *fakeRegistry) Register(info domain.DaemonInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registerErr != nil {
		return r.registerErr
	}
	r.registered = &info
	return nil
}

func (r *fakeRegistry) Heartbeat() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heartbeats++
	return nil
}

func (r *fakeRegistry) Current() (*domain.DaemonState, error) { return nil, nil }

func (r *fakeRegistry) IsDaemonAlive() (bool, error) { return false, nil }

func (r *fakeRegistry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
	return nil
}

func (r *fakeRegistry) Path() string { return "/tmp/fake-registry" }

func (r *fakeRegistry) heartbeatCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.heartbeats
}

func testInfo() domain.DaemonInfo {
	return domain.DaemonInfo{PID: 4242, StartedAt: time.Now(), AppVersion: "test"}
}

func TestDaemon_RunTicksAndStops(t *testing.T) {
	eval := &countingEvaluator{}
	reg := &fakeRegistry{}
	d := New(Config{
		TickInterval:      20 * time.Millisecond,
		HeartbeatInterval: 20 * time.Millisecond,
	}, eval, reg, testInfo(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Initial tick plus at least one interval tick, and a heartbeat.
	assert.Eventually(t, func() bool {
		return eval.count() >= 2 && reg.heartbeatCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	reg.mu.Lock()
	defer reg.mu.Unlock()
	require.NotNil(t, reg.registered)
	assert.Equal(t, 4242, reg.registered.PID)
	assert.Equal(t, 1, reg.cleared)
}

func TestDaemon_RunFailsWhenAlreadyRegistered(t *testing.T) {
	reg := &fakeRegistry{registerErr: errors.New("daemon already running with pid 99")}
	d := New(DefaultConfig(), &countingEvaluator{}, reg, testInfo(), zap.NewNop())

	err := d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestDaemon_InitialTickRunsBeforeFirstInterval(t *testing.T) {
	eval := &countingEvaluator{}
	d := New(Config{
		TickInterval:      time.Hour,
		HeartbeatInterval: time.Hour,
	}, eval, &fakeRegistry{}, testInfo(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return eval.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
