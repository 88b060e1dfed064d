package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/agendahub/notifier/internal/model"
)

// AppointmentRepository is the narrow read/write contract the notifier holds
// against the appointment store.
type AppointmentRepository interface {
	// FetchCandidates returns up to limit appointments due for the tier's
	// notification, ordered by ascending start time. Appointments whose tier
	// flag is already set, or whose status is not scheduled, are excluded by
	// the query itself.
	FetchCandidates(ctx context.Context, tier model.Tier, limit int) ([]*model.Candidate, error)

	// MarkNotified sets the tier's sent flag. Once set, the appointment never
	// reappears as a candidate for that tier.
	MarkNotified(ctx context.Context, id uuid.UUID, tier model.Tier) error

	// Ping verifies store reachability.
	Ping(ctx context.Context) error
}
