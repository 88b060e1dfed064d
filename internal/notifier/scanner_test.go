package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendahub/notifier/internal/model"
)

type markCall struct {
	id   uuid.UUID
	tier model.Tier
}

type fakeRepo struct {
	mu         sync.Mutex
	candidates map[model.Tier][]*model.Candidate
	fetchErr   map[model.Tier]error
	markErr    error
	marked     []markCall
	pingErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		candidates: make(map[model.Tier][]*model.Candidate),
		fetchErr:   make(map[model.Tier]error),
	}
}

func (r *fakeRepo) FetchCandidates(_ context.Context, tier model.Tier, limit int) ([]*model.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fetchErr[tier]; err != nil {
		return nil, err
	}
	cands := r.candidates[tier]
	if len(cands) > limit {
		cands = cands[:limit]
	}
	return cands, nil
}

func (r *fakeRepo) MarkNotified(_ context.Context, id uuid.UUID, tier model.Tier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markErr != nil {
		return r.markErr
	}
	r.marked = append(r.marked, markCall{id: id, tier: tier})
	return nil
}

func (r *fakeRepo) Ping(context.Context) error {
	return r.pingErr
}

type batchCall struct {
	tier       model.Tier
	candidates []*model.Candidate
}

type fakeBatcher struct {
	mu      sync.Mutex
	reports map[model.Tier]model.BatchReport
	calls   []batchCall
}

func newFakeBatcher() *fakeBatcher {
	return &fakeBatcher{reports: make(map[model.Tier]model.BatchReport)}
}

func (b *fakeBatcher) SendBatch(_ context.Context, tier model.Tier, candidates []*model.Candidate) model.BatchReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, batchCall{tier: tier, candidates: candidates})
	if report, ok := b.reports[tier]; ok {
		return report
	}
	return model.BatchReport{Attempted: len(candidates), Delivered: len(candidates)}
}

type fakeLiveness struct{ live bool }

func (l fakeLiveness) IsLive() bool { return l.live }

type fakeBroker struct {
	mu       sync.Mutex
	channels []string
	messages []interface{}
	err      error
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.channels = append(b.channels, channel)
	b.messages = append(b.messages, message)
	return nil
}

func (b *fakeBroker) Close() error { return nil }

func newScanner(repo *fakeRepo, batcher *fakeBatcher, live bool, broker *fakeBroker) *Scanner {
	cfg := ScannerConfig{MaxPerCycle: 10}
	if broker == nil {
		// A typed nil in the interface would defeat the scanner's nil check.
		return NewScanner(repo, batcher, fakeLiveness{live: live}, nil, cfg, testLogger(), testMetrics())
	}
	return NewScanner(repo, batcher, fakeLiveness{live: live}, broker, cfg, testLogger(), testMetrics())
}

func tierCandidates(n int) []*model.Candidate {
	cands := make([]*model.Candidate, n)
	base := time.Now().Add(10 * time.Minute)
	for i := range cands {
		cands[i] = candidateWithPhone("44998193466", base.Add(time.Duration(i)*time.Minute))
	}
	return cands
}

func TestRunCycleMarksAllAttempted(t *testing.T) {
	repo := newFakeRepo()
	repo.candidates[model.TierOneHour] = tierCandidates(2)
	batcher := newFakeBatcher()
	// First send succeeds, second recipient is not registered.
	batcher.reports[model.TierOneHour] = model.BatchReport{Attempted: 2, Delivered: 1, Failed: 1}

	scanner := newScanner(repo, batcher, true, nil)
	report := scanner.RunCycle(context.Background())

	assert.Equal(t, model.BatchReport{Attempted: 2, Delivered: 1, Failed: 1}, report.Tiers[model.TierOneHour])
	// Both candidates are flagged: a failed send never retries within the tier.
	require.Len(t, repo.marked, 2)
	for _, m := range repo.marked {
		assert.Equal(t, model.TierOneHour, m.tier)
	}
}

func TestRunCycleFetchErrorIsolatesTier(t *testing.T) {
	repo := newFakeRepo()
	repo.candidates[model.TierConfirmation] = tierCandidates(1)
	repo.candidates[model.TierOneHour] = tierCandidates(1)
	repo.fetchErr[model.TierThirtyMinutes] = errors.New("connection refused")
	batcher := newFakeBatcher()

	scanner := newScanner(repo, batcher, true, nil)
	report := scanner.RunCycle(context.Background())

	assert.Equal(t, 1, report.Tiers[model.TierConfirmation].Attempted)
	assert.Equal(t, 1, report.Tiers[model.TierOneHour].Attempted)
	assert.Equal(t, model.BatchReport{}, report.Tiers[model.TierThirtyMinutes])
	assert.Len(t, repo.marked, 2)
}

func TestRunCycleTierOrder(t *testing.T) {
	repo := newFakeRepo()
	for _, tier := range model.Tiers() {
		repo.candidates[tier] = tierCandidates(1)
	}
	batcher := newFakeBatcher()

	scanner := newScanner(repo, batcher, true, nil)
	scanner.RunCycle(context.Background())

	require.Len(t, batcher.calls, 3)
	assert.Equal(t, model.TierConfirmation, batcher.calls[0].tier)
	assert.Equal(t, model.TierOneHour, batcher.calls[1].tier)
	assert.Equal(t, model.TierThirtyMinutes, batcher.calls[2].tier)
}

func TestRunCycleSessionDownDefersEverything(t *testing.T) {
	repo := newFakeRepo()
	repo.candidates[model.TierConfirmation] = tierCandidates(3)
	batcher := newFakeBatcher()

	scanner := newScanner(repo, batcher, false, nil)
	report := scanner.RunCycle(context.Background())

	assert.Empty(t, batcher.calls)
	assert.Empty(t, repo.marked, "deferred candidates stay unflagged for the next cycle")
	assert.Empty(t, report.Tiers)
}

func TestRunCycleZeroAttemptsNotMarked(t *testing.T) {
	repo := newFakeRepo()
	repo.candidates[model.TierConfirmation] = tierCandidates(2)
	batcher := newFakeBatcher()
	// Dispatcher's defensive guard tripped: nothing went through the session.
	batcher.reports[model.TierConfirmation] = model.BatchReport{}

	scanner := newScanner(repo, batcher, true, nil)
	scanner.RunCycle(context.Background())

	assert.Empty(t, repo.marked)
}

func TestRunCycleEmptyTierSkipsDispatch(t *testing.T) {
	repo := newFakeRepo()
	batcher := newFakeBatcher()

	scanner := newScanner(repo, batcher, true, nil)
	report := scanner.RunCycle(context.Background())

	assert.Empty(t, batcher.calls)
	assert.Equal(t, 0, report.Total().Attempted)
}

func TestRunCycleMarkErrorDoesNotAbort(t *testing.T) {
	repo := newFakeRepo()
	repo.candidates[model.TierConfirmation] = tierCandidates(2)
	repo.markErr = errors.New("deadlock detected")
	batcher := newFakeBatcher()

	scanner := newScanner(repo, batcher, true, nil)
	report := scanner.RunCycle(context.Background())

	// The cycle still reports the dispatch outcome; unmarked rows simply
	// reappear next cycle.
	assert.Equal(t, 2, report.Tiers[model.TierConfirmation].Attempted)
}

func TestRunCyclePublishesReport(t *testing.T) {
	repo := newFakeRepo()
	repo.candidates[model.TierConfirmation] = tierCandidates(1)
	batcher := newFakeBatcher()
	broker := &fakeBroker{}

	scanner := newScanner(repo, batcher, true, broker)
	scanner.RunCycle(context.Background())

	require.Len(t, broker.channels, 1)
	assert.Equal(t, ReportChannel, broker.channels[0])
	published, ok := broker.messages[0].(*model.CycleReport)
	require.True(t, ok)
	assert.Equal(t, 1, published.Total().Attempted)
}

func TestRunCycleBrokerErrorIgnored(t *testing.T) {
	repo := newFakeRepo()
	repo.candidates[model.TierConfirmation] = tierCandidates(1)
	batcher := newFakeBatcher()
	broker := &fakeBroker{err: errors.New("redis down")}

	scanner := newScanner(repo, batcher, true, broker)
	report := scanner.RunCycle(context.Background())

	assert.Equal(t, 1, report.Total().Attempted)
	assert.Len(t, repo.marked, 1)
}
