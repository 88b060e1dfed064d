package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agendahub/notifier/internal/alert"
	apperrors "github.com/agendahub/notifier/pkg/errors"
	"github.com/agendahub/notifier/pkg/logger"
	"github.com/agendahub/notifier/pkg/metrics"
)

// ErrNotLive is returned for provider calls made while the session is down.
var ErrNotLive = errors.New("session is not live")

type Config struct {
	MaxReconnectAttempts int
	ReconnectBackoff     time.Duration
}

// Manager owns the lifecycle of the single outbound messaging session:
// connect, authenticate, reconnect with bounded attempts, clean shutdown.
// It is the only writer of the session state; Dispatcher and Scanner read it
// through IsLive.
type Manager struct {
	client  Client
	cfg     Config
	alerts  alert.Notifier
	log     *logger.Logger
	metrics *metrics.Metrics
	sinks   []QRSink

	state    atomic.Int32
	terminal atomic.Bool
	termMu   sync.Mutex
	termErr  error // first terminal cause, kept for diagnosis

	// attempts is touched only by the event-loop goroutine.
	attempts int

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func NewManager(client Client, cfg Config, alerts alert.Notifier, log *logger.Logger, m *metrics.Metrics, sinks ...QRSink) *Manager {
	return &Manager{
		client:  client,
		cfg:     cfg,
		alerts:  alerts,
		log:     log.WithComponent("session"),
		metrics: m,
		sinks:   sinks,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start establishes the session asynchronously and returns immediately after
// the initial dial. Liveness is observed through IsLive; the event loop keeps
// running until Stop or ctx cancellation.
func (m *Manager) Start(ctx context.Context) error {
	m.setState(StateConnecting)
	if err := m.client.Connect(); err != nil {
		m.setState(StateDisconnected)
		return fmt.Errorf("failed to connect session: %w", err)
	}
	go m.run(ctx)
	return nil
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case ev, ok := <-m.client.Events():
			if !ok {
				return
			}
			m.handle(ctx, ev)
		}
	}
}

func (m *Manager) handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventQR:
		m.setState(StateAwaitingAuth)
		m.log.Info("pairing challenge received, waiting for scan")
		for _, sink := range m.sinks {
			sink.PresentQR(ev.QR)
		}

	case EventConnected:
		m.attempts = 0
		m.setState(StateLive)
		m.log.Info("session live")

	case EventLoggedOut:
		m.setState(StateDisconnected)
		cause := apperrors.AuthTerminated(ev.Cause)
		m.setTerminal(cause)
		m.log.Error(cause, "session logged out by provider, re-pairing required")
		m.alerts.SessionTerminated("logged out by provider, device must be re-paired")

	case EventDisconnected:
		m.setState(StateDisconnected)
		if m.terminal.Load() {
			return
		}
		m.log.Warn("session closed unexpectedly", "cause", fmt.Sprint(ev.Cause))
		m.reconnect(ctx)
	}
}

// reconnect retries the dial up to the configured maximum, one fixed backoff
// apart. Exhaustion is terminal: the session stays down until the process is
// restarted.
func (m *Manager) reconnect(ctx context.Context) {
	var lastErr error
	for m.attempts < m.cfg.MaxReconnectAttempts {
		m.attempts++
		m.metrics.ReconnectAttempts.Inc()
		m.log.Info("reconnecting", "attempt", m.attempts, "max", m.cfg.MaxReconnectAttempts)

		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-time.After(m.cfg.ReconnectBackoff):
		}

		m.setState(StateConnecting)
		if err := m.client.Connect(); err != nil {
			m.setState(StateDisconnected)
			lastErr = err
			m.log.Error(err, "reconnect attempt failed", "attempt", m.attempts)
			continue
		}
		// Dial succeeded; liveness is confirmed by the Connected event,
		// which also resets the attempt counter.
		return
	}

	cause := apperrors.SessionLost(lastErr)
	m.setTerminal(cause)
	m.log.Error(cause, "reconnect attempts exhausted, session down until restart")
	m.alerts.SessionTerminated("reconnect attempts exhausted")
}

// Stop performs a graceful logout and suppresses any further reconnects.
// Safe to call more than once.
func (m *Manager) Stop(ctx context.Context) {
	m.stopOnce.Do(func() {
		m.setTerminal(errors.New("session stopped"))
		close(m.stopCh)
		if err := m.client.Logout(ctx); err != nil {
			m.log.Error(err, "logout failed")
		}
		m.client.Disconnect()
		m.setState(StateDisconnected)
		m.log.Info("session stopped")
	})
}

func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) IsLive() bool {
	return m.State() == StateLive
}

// Terminal reports whether the session gave up for good (logged out, stopped
// or reconnects exhausted).
func (m *Manager) Terminal() bool {
	return m.terminal.Load()
}

// TerminalCause returns why the session went terminal, or nil while it can
// still recover. The cause carries the failure taxonomy code: AuthTerminated
// for a provider logout, SessionLost for exhausted reconnects.
func (m *Manager) TerminalCause() error {
	m.termMu.Lock()
	defer m.termMu.Unlock()
	return m.termErr
}

func (m *Manager) setTerminal(cause error) {
	m.termMu.Lock()
	if m.termErr == nil {
		m.termErr = cause
	}
	m.termMu.Unlock()
	m.terminal.Store(true)
}

// IsRegistered checks whether the address is a registered endpoint on the
// provider's network.
func (m *Manager) IsRegistered(ctx context.Context, address string) (bool, error) {
	if !m.IsLive() {
		return false, apperrors.SessionLost(ErrNotLive)
	}
	registered, err := m.client.IsRegistered(ctx, address)
	if err != nil {
		return false, apperrors.TransientProvider(err)
	}
	return registered, nil
}

// SendText submits one message through the live session.
func (m *Manager) SendText(ctx context.Context, address, text string) error {
	if !m.IsLive() {
		return apperrors.SessionLost(ErrNotLive)
	}
	if err := m.client.SendText(ctx, address, text); err != nil {
		return apperrors.TransientProvider(err)
	}
	return nil
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
	if s == StateLive {
		m.metrics.SessionLive.Set(1)
	} else {
		m.metrics.SessionLive.Set(0)
	}
}
