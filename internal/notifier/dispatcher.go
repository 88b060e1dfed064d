package notifier

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/agendahub/notifier/internal/model"
	apperrors "github.com/agendahub/notifier/pkg/errors"
	"github.com/agendahub/notifier/pkg/logger"
	"github.com/agendahub/notifier/pkg/metrics"
)

// Session is the read-only view of the messaging session the dispatcher
// needs. The session Manager implements it.
type Session interface {
	IsLive() bool
	IsRegistered(ctx context.Context, address string) (bool, error)
	SendText(ctx context.Context, address, text string) error
}

type DispatcherConfig struct {
	// MessageDelay is the minimum spacing between consecutive messages.
	// It is an anti-throttling requirement, not a tuning knob: the provider
	// must never see two sends closer than this.
	MessageDelay time.Duration
	CountryCode  string
	// RegistrationCacheTTL bounds how long a positive registration check is
	// trusted without re-querying the provider.
	RegistrationCacheTTL time.Duration
}

// Dispatcher sends one batch of candidates through the live session,
// strictly sequentially and in input order.
type Dispatcher struct {
	session  Session
	cfg      DispatcherConfig
	limiter  *rate.Limiter
	regCache *cache.Cache
	log      *logger.Logger
	metrics  *metrics.Metrics
}

func NewDispatcher(session Session, cfg DispatcherConfig, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		session:  session,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Every(cfg.MessageDelay), 1),
		regCache: cache.New(cfg.RegistrationCacheTTL, 2*cfg.RegistrationCacheTTL),
		log:      log.WithComponent("dispatcher"),
		metrics:  m,
	}
}

// SendBatch processes the candidates one at a time, pacing them so the
// provider sees at most one message per MessageDelay. A batch of N takes at
// least (N-1)*MessageDelay. Callers check liveness first; a dead session
// here is a no-op reporting zero attempts.
func (d *Dispatcher) SendBatch(ctx context.Context, tier model.Tier, candidates []*model.Candidate) model.BatchReport {
	var report model.BatchReport

	if !d.session.IsLive() {
		d.log.Warn("session not live, skipping batch", "tier", tier.String(), "candidates", len(candidates))
		return report
	}

	for _, candidate := range candidates {
		if err := d.limiter.Wait(ctx); err != nil {
			d.log.Warn("batch interrupted", "tier", tier.String(), "remaining", len(candidates)-report.Attempted)
			return report
		}

		report.Attempted++
		if err := d.sendOne(ctx, tier, candidate); err != nil {
			report.Failed++
			d.metrics.MessagesFailed.WithLabelValues(tier.String()).Inc()
			d.log.Error(err, "dispatch failed",
				"appointment_id", candidate.ID.String(), "client", candidate.ClientName, "tier", tier.String())
			if apperrors.HasCode(err, apperrors.ErrSessionLost) {
				// The remaining candidates keep failing fast against the
				// not-live guard; the scanner defers the next tier instead.
				d.log.Warn("session lost mid-batch", "tier", tier.String(), "remaining", len(candidates)-report.Attempted)
			}
		} else {
			report.Delivered++
			d.metrics.MessagesDelivered.WithLabelValues(tier.String()).Inc()
		}
	}

	return report
}

// sendOne runs the per-candidate pipeline and classifies each failure:
// InvalidRecipient for a malformed or unregistered number, SessionLost or
// TransientProvider bubbled up from the session.
func (d *Dispatcher) sendOne(ctx context.Context, tier model.Tier, c *model.Candidate) error {
	if !ValidPhone(c.Phone) {
		return apperrors.InvalidRecipient(c.Phone)
	}

	address := NormalizeAddress(c.Phone, d.cfg.CountryCode)

	registered, err := d.checkRegistered(ctx, address)
	if err != nil {
		return err
	}
	if !registered {
		return apperrors.InvalidRecipient(c.Phone)
	}

	if err := d.session.SendText(ctx, address, Render(tier, c)); err != nil {
		return err
	}

	d.log.Info("message delivered", "appointment_id", c.ID.String(), "client", c.ClientName, "tier", tier.String())
	return nil
}

// checkRegistered queries the provider, caching positive answers so repeat
// recipients are not re-checked every cycle. Negative answers are not
// cached: a number may register later.
func (d *Dispatcher) checkRegistered(ctx context.Context, address string) (bool, error) {
	if _, found := d.regCache.Get(address); found {
		return true, nil
	}
	registered, err := d.session.IsRegistered(ctx, address)
	if err != nil {
		return false, err
	}
	if registered {
		d.regCache.Set(address, true, cache.DefaultExpiration)
	}
	return registered, nil
}
