package notification

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

type Type string

const (
	TypeReminderDayBefore Type = "reminder_day_before"
	TypeReminderMorning   Type = "reminder_morning"
	TypeReminderHour      Type = "reminder_hour_before"
	TypeLate              Type = "late"
)

type TargetType string

const (
	TargetPatient      TargetType = "patient"
	TargetProfessional TargetType = "professional"
)

const ChannelSMS = "sms"

// Notification is one scheduled outbound message. Rows are created in a
// batch of three at booking time, or singly by the late escalator; after
// that only the dispatcher mutates them, and only their status.
type Notification struct {
	ID            uuid.UUID
	TargetType    TargetType
	TargetID      uuid.UUID
	AppointmentID *uuid.UUID
	Type          Type
	Message       string
	Channel       string
	Status        Status
	ScheduledFor  time.Time
	SentAt        *time.Time
	ErrorNote     *string
	// Token is set only on late escalations; at most one per appointment.
	Token     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
