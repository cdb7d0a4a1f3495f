package clinic

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrProfessionalNotFound = errors.New("professional not found")
	ErrHealthUnitNotFound   = errors.New("health unit not found")
	ErrReferralNotFound     = errors.New("referral not found")
)

// Repository is the read-only view of the directory data owned by the rest
// of the platform. The scheduling core never mutates these records, except
// for referral consumption which happens inside the booking transaction.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetProfessionalByID(ctx context.Context, id uuid.UUID) (*Professional, error)
	GetHealthUnitByID(ctx context.Context, id uuid.UUID) (*HealthUnit, error)

	// HasActiveAssociation reports whether the professional is attached to the
	// unit at the given instant. The relation is time-bounded because staff
	// rotate between units.
	HasActiveAssociation(ctx context.Context, professionalID, healthUnitID uuid.UUID, at time.Time) (bool, error)

	// FindApprovedReferral returns an approved, unexpired referral of the
	// patient for the specialty, or ErrReferralNotFound.
	FindApprovedReferral(ctx context.Context, patientID uuid.UUID, specialty string, at time.Time) (*Referral, error)
}
