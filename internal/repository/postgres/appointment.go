package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agendahub/notifier/internal/model"
	"github.com/agendahub/notifier/internal/repository"
	apperrors "github.com/agendahub/notifier/pkg/errors"
)

type appointmentRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) FetchCandidates(ctx context.Context, tier model.Tier, limit int) ([]*model.Candidate, error) {
	// The tier flag column comes from the Tier enum, never from input.
	query := fmt.Sprintf(`
		SELECT a.id, a.organization_id, a.client_name, a.phone, a.start_time,
			   s.name AS service_name,
			   st.name AS staff_name,
			   o.name AS organization_name
		FROM appointments a
		INNER JOIN services s ON a.service_id = s.id
		INNER JOIN staff st ON a.staff_id = st.id
		INNER JOIN organizations o ON a.organization_id = o.id
		WHERE a.status = 'scheduled'
		  AND a.%s = FALSE
		  AND a.start_time > NOW()
	`, tier.FlagColumn())

	args := []interface{}{limit}
	if window := tier.Window(); window > 0 {
		query += " AND a.start_time <= NOW() + $2 * INTERVAL '1 minute'"
		args = append(args, int(window.Minutes()))
	}
	query += " ORDER BY a.start_time ASC LIMIT $1"

	var candidates []*model.Candidate
	if err := r.db.SelectContext(ctx, &candidates, query, args...); err != nil {
		return nil, apperrors.StoreUnavailable("fetch candidates", err)
	}
	return candidates, nil
}

func (r *appointmentRepository) MarkNotified(ctx context.Context, id uuid.UUID, tier model.Tier) error {
	query := fmt.Sprintf(`
		UPDATE appointments
		SET %s = TRUE, updated_at = NOW()
		WHERE id = $1
	`, tier.FlagColumn())

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.StoreUnavailable("mark notified", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("appointment not found")
	}

	return nil
}

func (r *appointmentRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return apperrors.StoreUnavailable("ping", err)
	}
	return nil
}
