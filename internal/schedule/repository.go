package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTemplateNotFound = errors.New("schedule template not found")
	ErrTemplateExists   = errors.New("schedule template already exists for this weekday")
)

// Repository persists recurring weekly templates.
type Repository interface {
	GetByWeekday(ctx context.Context, professionalID, healthUnitID uuid.UUID, weekday time.Weekday) (*Template, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]Template, error)
	Create(ctx context.Context, tpl *Template) (*Template, error)
}

// BookedTime is an existing non-canceled appointment start on some date,
// reduced to the minute-of-day the slot generator keys on.
type BookedTime struct {
	StartMinutes  int
	AppointmentID uuid.UUID
}

// AppointmentSource is the generator's read-only view of booked appointments.
// It is implemented by the appointment repository; the indirection keeps this
// package free of a dependency on the appointment package.
type AppointmentSource interface {
	ListBookedTimes(ctx context.Context, professionalID, healthUnitID uuid.UUID, dayStart, dayEnd time.Time) ([]BookedTime, error)
}
