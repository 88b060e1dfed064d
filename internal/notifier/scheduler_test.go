package notifier

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendahub/notifier/internal/model"
	apperrors "github.com/agendahub/notifier/pkg/errors"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeController struct {
	mu       sync.Mutex
	startErr error
	live     bool
	termErr  error
	started  bool
	stopped  bool
}

func (c *fakeController) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return c.startErr
}

func (c *fakeController) Stop(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}

func (c *fakeController) IsLive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

func (c *fakeController) TerminalCause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.termErr
}

func (c *fakeController) setLive(live bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live = live
}

func (c *fakeController) wasStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

type fakeCycles struct {
	runs  atomic.Int32
	panic bool
}

func (c *fakeCycles) RunCycle(context.Context) *model.CycleReport {
	c.runs.Add(1)
	if c.panic {
		panic("boom")
	}
	return model.NewCycleReport()
}

func schedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		PollInterval:      10 * time.Millisecond,
		ReadyPollInterval: 5 * time.Millisecond,
		StopTimeout:       time.Second,
	}
}

func TestSchedulerStorePingFailure(t *testing.T) {
	session := &fakeController{}
	sched := NewScheduler(fakePinger{err: errors.New("refused")}, session, &fakeCycles{}, schedulerConfig(), testLogger())

	err := sched.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unreachable")
	assert.False(t, session.started, "session must not start when the store is down")
	assert.Equal(t, SchedulerStopped, sched.State())
}

func TestSchedulerSessionStartFailure(t *testing.T) {
	session := &fakeController{startErr: errors.New("store locked")}
	sched := NewScheduler(fakePinger{}, session, &fakeCycles{}, schedulerConfig(), testLogger())

	err := sched.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start session")
	assert.Equal(t, SchedulerStopped, sched.State())
}

func TestSchedulerTerminalDuringBootstrap(t *testing.T) {
	session := &fakeController{termErr: apperrors.SessionLost(errors.New("reconnects exhausted"))}
	cycles := &fakeCycles{}
	sched := NewScheduler(fakePinger{}, session, cycles, schedulerConfig(), testLogger())

	err := sched.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach live state")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrSessionLost))
	assert.Equal(t, int32(0), cycles.runs.Load())
	assert.True(t, session.wasStopped())
	assert.Equal(t, SchedulerStopped, sched.State())
}

func TestSchedulerLoggedOutDuringBootstrap(t *testing.T) {
	session := &fakeController{termErr: apperrors.AuthTerminated(nil)}
	sched := NewScheduler(fakePinger{}, session, &fakeCycles{}, schedulerConfig(), testLogger())

	err := sched.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "re-pairing required")
	assert.True(t, apperrors.IsAuthTerminated(err))
}

func TestSchedulerCancelDuringBootstrapIsGraceful(t *testing.T) {
	session := &fakeController{} // never live, never terminal
	sched := NewScheduler(fakePinger{}, session, &fakeCycles{}, schedulerConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := sched.Run(ctx)

	assert.NoError(t, err, "operator shutdown during pairing is not a failure")
	assert.True(t, session.wasStopped())
}

func TestSchedulerRunsCyclesAndStopsGracefully(t *testing.T) {
	session := &fakeController{live: true}
	cycles := &fakeCycles{}
	sched := NewScheduler(fakePinger{}, session, cycles, schedulerConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	assert.Eventually(t, func() bool { return cycles.runs.Load() >= 2 },
		time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.True(t, session.wasStopped())
	assert.Equal(t, SchedulerStopped, sched.State())
}

func TestSchedulerContainsCyclePanic(t *testing.T) {
	session := &fakeController{live: true}
	cycles := &fakeCycles{panic: true}
	sched := NewScheduler(fakePinger{}, session, cycles, schedulerConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	// The loop survives panicking cycles and keeps polling.
	assert.Eventually(t, func() bool { return cycles.runs.Load() >= 3 },
		time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerWaitsForLateLiveness(t *testing.T) {
	session := &fakeController{}
	cycles := &fakeCycles{}
	sched := NewScheduler(fakePinger{}, session, cycles, schedulerConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	// Simulate the QR scan landing a while after startup.
	time.Sleep(15 * time.Millisecond)
	assert.Equal(t, int32(0), cycles.runs.Load())
	session.setLive(true)

	assert.Eventually(t, func() bool { return cycles.runs.Load() >= 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, SchedulerRunning, sched.State())
	cancel()
	require.NoError(t, <-done)
}
