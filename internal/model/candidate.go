package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// Candidate is the read-only projection of an appointment that is due for a
// tier's notification. It is assembled by the store query per cycle; the
// notifier never mutates it.
type Candidate struct {
	ID               uuid.UUID `db:"id"`
	OrganizationID   uuid.UUID `db:"organization_id"`
	ClientName       string    `db:"client_name"`
	Phone            string    `db:"phone"`
	StartTime        time.Time `db:"start_time"`
	ServiceName      string    `db:"service_name"`
	StaffName        string    `db:"staff_name"`
	OrganizationName string    `db:"organization_name"`
}
