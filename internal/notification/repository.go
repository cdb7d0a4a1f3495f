package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Create(ctx context.Context, n *Notification) (*Notification, error)
	CreateBatch(ctx context.Context, ns []Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)

	// FindDuePending returns pending rows with scheduled_for at or before now.
	FindDuePending(ctx context.Context, now time.Time, limit int) ([]Notification, error)

	// MarkSent is guarded: a row already sent stays untouched and the call
	// reports false, so a message is never delivered twice.
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, note string) error

	// HasEscalation reports whether a late notification already exists for
	// the appointment.
	HasEscalation(ctx context.Context, appointmentID uuid.UUID) (bool, error)

	// MatchEscalationToken checks (appointment, token) against the issued
	// late notification.
	MatchEscalationToken(ctx context.Context, appointmentID uuid.UUID, token string) (bool, error)
}
