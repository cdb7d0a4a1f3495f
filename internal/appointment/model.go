package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/kxtukI/med.sys-sub000/internal/clinic"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Appointment is a booked or past consultation. Rows are never deleted;
// cancellation is a status change.
type Appointment struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	HealthUnitID   uuid.UUID
	DateTime       time.Time
	Specialty      string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Detail is an appointment hydrated with its display records.
type Detail struct {
	Appointment
	Patient      *clinic.Patient
	Professional *clinic.Professional
	HealthUnit   *clinic.HealthUnit
}

// DayAgenda is one day bucket of a professional's calendar.
type DayAgenda struct {
	Date         string        `json:"date"`
	Appointments []Appointment `json:"appointments"`
	Stats        DayStats      `json:"stats"`
}

type DayStats struct {
	Total     int `json:"total"`
	Scheduled int `json:"scheduled"`
	Completed int `json:"completed"`
	Canceled  int `json:"canceled"`
}
