package clinic

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSpecialty is the general-practice specialty. Bookings for any other
// specialty pass through the referral gate.
const DefaultSpecialty = "general_practice"

type ReferralStatus string

const (
	ReferralPending  ReferralStatus = "pending"
	ReferralApproved ReferralStatus = "approved"
	ReferralUsed     ReferralStatus = "used"
	ReferralCanceled ReferralStatus = "canceled"
)

type Patient struct {
	ID        uuid.UUID
	Name      string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Professional struct {
	ID        uuid.UUID
	Name      string
	Specialty string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HealthUnit working hours are minutes since local midnight.
type HealthUnit struct {
	ID              uuid.UUID
	Name            string
	Address         *string
	OpensAtMinutes  int
	ClosesAtMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Referral authorizes a patient to book a specialist. It is consumed
// (approved -> used) at most once, inside the booking transaction.
type Referral struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	ToSpecialty string
	Status      ReferralStatus
	ValidUntil  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Usable reports whether the referral can still gate a booking at the given instant.
func (r *Referral) Usable(at time.Time) bool {
	if r.Status != ReferralApproved {
		return false
	}
	if r.ValidUntil != nil && r.ValidUntil.Before(at) {
		return false
	}
	return true
}
