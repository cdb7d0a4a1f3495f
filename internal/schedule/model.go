package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultSlotMinutes   = 20
	DefaultBufferMinutes = 10
)

// Template is one recurring weekly availability window. A professional has at
// most one template per (health unit, weekday). All times are minutes since
// local midnight.
type Template struct {
	ID                uuid.UUID
	ProfessionalID    uuid.UUID
	HealthUnitID      uuid.UUID
	Weekday           time.Weekday
	StartMinutes      int
	EndMinutes        int
	SlotMinutes       int
	BufferMinutes     int
	BreakStartMinutes *int
	BreakEndMinutes   *int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Slot is a derived bookable interval for a single date. Slots are never
// persisted; they are regenerated on demand.
type Slot struct {
	Start         string     `json:"start_time"`
	End           string     `json:"end_time"`
	StartMinutes  int        `json:"start_minutes"`
	EndMinutes    int        `json:"end_minutes"`
	Available     bool       `json:"available"`
	AppointmentID *uuid.UUID `json:"booked_appointment_id,omitempty"`
}

// DaySlots is the generated agenda for one (professional, unit, date).
type DaySlots struct {
	Date           string `json:"date"`
	Slots          []Slot `json:"slots"`
	Total          int    `json:"total"`
	AvailableCount int    `json:"available_count"`
	BookedCount    int    `json:"booked_count"`
}

// DayAvailability is one entry of a "next available days" scan.
type DayAvailability struct {
	Date           string `json:"date"`
	Weekday        string `json:"weekday"`
	AvailableCount int    `json:"available_count"`
}

// ParseClock converts "HH:MM" to minutes since midnight. The whole string
// must be the clock value, trailing text such as seconds is rejected.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock converts minutes since midnight to "HH:MM".
func FormatClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// MinutesOfDay returns the minute-of-day of an instant in its own location.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
