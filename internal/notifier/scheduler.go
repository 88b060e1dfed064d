package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/agendahub/notifier/internal/model"
	apperrors "github.com/agendahub/notifier/pkg/errors"
	"github.com/agendahub/notifier/pkg/logger"
)

type SchedulerState int32

const (
	SchedulerIdle SchedulerState = iota
	SchedulerInitializing
	SchedulerRunning
	SchedulerStopping
	SchedulerStopped
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerIdle:
		return "idle"
	case SchedulerInitializing:
		return "initializing"
	case SchedulerRunning:
		return "running"
	case SchedulerStopping:
		return "stopping"
	case SchedulerStopped:
		return "stopped"
	}
	return "unknown"
}

// CycleRunner runs one full three-tier cycle. Implemented by Scanner.
type CycleRunner interface {
	RunCycle(ctx context.Context) *model.CycleReport
}

// SessionController is the scheduler's handle on the session lifecycle.
type SessionController interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
	IsLive() bool
	// TerminalCause is non-nil once the session has given up for good.
	TerminalCause() error
}

// Pinger verifies store reachability at bootstrap.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SchedulerConfig struct {
	PollInterval time.Duration
	// ReadyPollInterval is how often bootstrap re-checks session liveness.
	ReadyPollInterval time.Duration
	// StopTimeout bounds the graceful logout on shutdown.
	StopTimeout time.Duration
}

// Scheduler drives the polling cadence: bootstrap (store ping, session
// start, wait for live), then a strictly serial cycle loop until the context
// is cancelled. Cycles never overlap.
type Scheduler struct {
	store   Pinger
	session SessionController
	cycles  CycleRunner
	cfg     SchedulerConfig
	log     *logger.Logger
	state   atomic.Int32
}

func NewScheduler(store Pinger, session SessionController, cycles CycleRunner, cfg SchedulerConfig, log *logger.Logger) *Scheduler {
	if cfg.ReadyPollInterval <= 0 {
		cfg.ReadyPollInterval = 2 * time.Second
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 10 * time.Second
	}
	return &Scheduler{
		store:   store,
		session: session,
		cycles:  cycles,
		cfg:     cfg,
		log:     log.WithComponent("scheduler"),
	}
}

// Run blocks until ctx is cancelled (returns nil, graceful stop) or
// bootstrap fails (returns the error; the process should exit non-zero).
func (s *Scheduler) Run(ctx context.Context) error {
	s.setState(SchedulerInitializing)

	if err := s.store.Ping(ctx); err != nil {
		s.setState(SchedulerStopped)
		return fmt.Errorf("store unreachable at startup: %w", err)
	}
	s.log.Info("store reachable")

	if err := s.session.Start(ctx); err != nil {
		s.setState(SchedulerStopped)
		return fmt.Errorf("failed to start session: %w", err)
	}

	if err := s.waitLive(ctx); err != nil {
		s.shutdown()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	s.setState(SchedulerRunning)
	s.log.Info("notifier running", "poll_interval", s.cfg.PollInterval.String())

	for {
		s.safeCycle(ctx)

		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

func (s *Scheduler) waitLive(ctx context.Context) error {
	s.log.Info("waiting for session to reach live state")
	for {
		if s.session.IsLive() {
			return nil
		}
		if cause := s.session.TerminalCause(); cause != nil {
			if apperrors.IsAuthTerminated(cause) {
				return fmt.Errorf("session terminated during bootstrap, device re-pairing required: %w", cause)
			}
			return fmt.Errorf("session failed to reach live state during bootstrap: %w", cause)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ReadyPollInterval):
		}
	}
}

// safeCycle contains any single cycle's failure; the loop always proceeds to
// the next interval.
func (s *Scheduler) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(fmt.Errorf("%v", r), "cycle panicked")
		}
	}()
	s.cycles.RunCycle(ctx)
}

func (s *Scheduler) shutdown() {
	s.setState(SchedulerStopping)
	s.log.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), s.cfg.StopTimeout)
	defer cancel()
	s.session.Stop(stopCtx)

	s.setState(SchedulerStopped)
	s.log.Info("stopped")
}

func (s *Scheduler) State() SchedulerState {
	return SchedulerState(s.state.Load())
}

func (s *Scheduler) setState(st SchedulerState) {
	s.state.Store(int32(st))
}
