package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kxtukI/med.sys-sub000/internal/schedule"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrReferralUnavailable is returned when the referral picked during
	// validation is no longer approved at commit time. The whole booking
	// transaction rolls back.
	ErrReferralUnavailable = errors.New("referral is no longer approved")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)

	// GetActiveAt finds a non-canceled appointment of the professional at the
	// exact instant, for the collision check.
	GetActiveAt(ctx context.Context, professionalID uuid.UUID, at time.Time) (*Appointment, error)

	// CreateScheduled inserts the appointment and, when consumeReferralID is
	// set, marks that referral used in the same transaction.
	CreateScheduled(ctx context.Context, appt *Appointment, consumeReferralID *uuid.UUID) (*Appointment, error)

	// UpdateStatus performs a guarded transition and returns
	// ErrAppointmentNotFound when the row is not in the from status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// UpdateFields rewrites date_time and specialty of a still-scheduled row.
	UpdateFields(ctx context.Context, id uuid.UUID, dateTime time.Time, specialty string) (*Appointment, error)

	// ListBetween returns the professional's appointments inside [start, end).
	ListBetween(ctx context.Context, professionalID uuid.UUID, start, end time.Time) ([]Appointment, error)

	// FindLateScheduled returns appointments still scheduled whose start time
	// is at or before the cutoff.
	FindLateScheduled(ctx context.Context, cutoff time.Time) ([]Appointment, error)

	// ListBookedTimes feeds the slot generator.
	ListBookedTimes(ctx context.Context, professionalID, healthUnitID uuid.UUID, dayStart, dayEnd time.Time) ([]schedule.BookedTime, error)
}
