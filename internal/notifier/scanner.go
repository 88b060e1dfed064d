package notifier

import (
	"context"
	"time"

	"github.com/agendahub/notifier/internal/model"
	"github.com/agendahub/notifier/internal/repository"
	"github.com/agendahub/notifier/pkg/logger"
	"github.com/agendahub/notifier/pkg/messaging"
	"github.com/agendahub/notifier/pkg/metrics"
)

// ReportChannel is the broker channel delivery reports are published to.
const ReportChannel = "notifier.delivery_reports"

// Batcher dispatches one tier's batch. Implemented by Dispatcher.
type Batcher interface {
	SendBatch(ctx context.Context, tier model.Tier, candidates []*model.Candidate) model.BatchReport
}

// Liveness is the scanner's read-only view of session state.
type Liveness interface {
	IsLive() bool
}

type ScannerConfig struct {
	MaxPerCycle int
}

// Scanner runs one full notification cycle: for each tier in fixed order it
// fetches due candidates, dispatches them, and reconciles the delivery flags
// back into the store.
type Scanner struct {
	repo       repository.AppointmentRepository
	dispatcher Batcher
	session    Liveness
	broker     messaging.Broker // nil when report publishing is disabled
	cfg        ScannerConfig
	log        *logger.Logger
	metrics    *metrics.Metrics
}

func NewScanner(repo repository.AppointmentRepository, dispatcher Batcher, session Liveness, broker messaging.Broker, cfg ScannerConfig, log *logger.Logger, m *metrics.Metrics) *Scanner {
	return &Scanner{
		repo:       repo,
		dispatcher: dispatcher,
		session:    session,
		broker:     broker,
		cfg:        cfg,
		log:        log.WithComponent("scanner"),
		metrics:    m,
	}
}

// RunCycle processes all three tiers. A dead session defers the whole cycle;
// the unflagged candidates simply come back next time.
func (s *Scanner) RunCycle(ctx context.Context) *model.CycleReport {
	report := model.NewCycleReport()
	defer func() {
		report.FinishedAt = time.Now()
		s.metrics.CyclesTotal.Inc()
		s.metrics.CycleDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
		s.publish(ctx, report)
	}()

	if !s.session.IsLive() {
		s.log.Warn("session not live, deferring cycle")
		return report
	}

	for _, tier := range model.Tiers() {
		report.Tiers[tier] = s.runTier(ctx, tier)
	}

	total := report.Total()
	if total.Attempted == 0 {
		s.log.Info("no pending reminders this cycle")
	} else {
		s.log.Info("cycle finished",
			"attempted", total.Attempted, "delivered", total.Delivered, "failed", total.Failed)
	}
	return report
}

// runTier contains its failures: a fetch error skips only this tier, and the
// candidates stay unflagged for the next cycle.
func (s *Scanner) runTier(ctx context.Context, tier model.Tier) model.BatchReport {
	candidates, err := s.repo.FetchCandidates(ctx, tier, s.cfg.MaxPerCycle)
	if err != nil {
		s.metrics.StoreOperations.WithLabelValues("fetch_candidates", "error").Inc()
		s.log.Error(err, "failed to fetch candidates", "tier", tier.String())
		return model.BatchReport{}
	}
	s.metrics.StoreOperations.WithLabelValues("fetch_candidates", "success").Inc()
	s.metrics.CandidatesFetched.WithLabelValues(tier.String()).Add(float64(len(candidates)))

	if len(candidates) == 0 {
		return model.BatchReport{}
	}
	if !s.session.IsLive() {
		s.log.Warn("session went down, deferring tier", "tier", tier.String(), "candidates", len(candidates))
		return model.BatchReport{}
	}

	s.log.Info("dispatching tier", "tier", tier.String(), "candidates", len(candidates))
	report := s.dispatcher.SendBatch(ctx, tier, candidates)

	// Every candidate the dispatcher attempted is flagged, delivered or not:
	// a permanently bad number must not block the tier by retrying forever.
	// Zero attempts means nothing went through the session, so the batch
	// stays unflagged for the next cycle.
	if report.Attempted > 0 {
		s.reconcile(ctx, tier, candidates)
	}

	s.log.Info("tier finished", "tier", tier.String(),
		"attempted", report.Attempted, "delivered", report.Delivered, "failed", report.Failed)
	return report
}

func (s *Scanner) reconcile(ctx context.Context, tier model.Tier, candidates []*model.Candidate) {
	for _, c := range candidates {
		if err := s.repo.MarkNotified(ctx, c.ID, tier); err != nil {
			s.metrics.StoreOperations.WithLabelValues("mark_notified", "error").Inc()
			s.log.Error(err, "failed to mark notified", "appointment_id", c.ID.String(), "tier", tier.String())
			continue
		}
		s.metrics.StoreOperations.WithLabelValues("mark_notified", "success").Inc()
	}
}

func (s *Scanner) publish(ctx context.Context, report *model.CycleReport) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, ReportChannel, report); err != nil {
		s.log.Error(err, "failed to publish cycle report")
	}
}
