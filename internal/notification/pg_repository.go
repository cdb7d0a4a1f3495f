package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const notificationColumns = `
	id, target_type, target_id, appointment_id, type, message, channel,
	status, scheduled_for, sent_at, error_note, token, created_at, updated_at
`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var appointmentID *uuid.UUID
	var sentAt *time.Time
	var errorNote, token *string

	err := row.Scan(
		&n.ID,
		&n.TargetType,
		&n.TargetID,
		&appointmentID,
		&n.Type,
		&n.Message,
		&n.Channel,
		&n.Status,
		&n.ScheduledFor,
		&sentAt,
		&errorNote,
		&token,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	n.AppointmentID = appointmentID
	n.SentAt = sentAt
	n.ErrorNote = errorNote
	n.Token = token
	return &n, nil
}

func (r *PgRepository) Create(ctx context.Context, n *Notification) (*Notification, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (
			id, target_type, target_id, appointment_id, type, message, channel,
			status, scheduled_for, token, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8, $9, now(), now())
		RETURNING `+notificationColumns+`
	`, id, n.TargetType, n.TargetID, n.AppointmentID, n.Type, n.Message, n.Channel,
		n.ScheduledFor, n.Token)

	return scanNotification(row)
}

func (r *PgRepository) CreateBatch(ctx context.Context, ns []Notification) error {
	batch := &pgx.Batch{}
	for _, n := range ns {
		batch.Queue(`
			INSERT INTO notifications (
				id, target_type, target_id, appointment_id, type, message, channel,
				status, scheduled_for, token, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8, $9, now(), now())
		`, uuid.New(), n.TargetType, n.TargetID, n.AppointmentID, n.Type, n.Message,
			n.Channel, n.ScheduledFor, n.Token)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range ns {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert notification batch: %w", err)
		}
	}

	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE id = $1
	`, id)
	return scanNotification(row)
}

func (r *PgRepository) FindDuePending(ctx context.Context, now time.Time, limit int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE status = 'pending'
		  AND scheduled_for <= $1
		ORDER BY scheduled_for
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'sent',
		    sent_at = $2,
		    error_note = NULL,
		    updated_at = now()
		WHERE id = $1
		  AND status <> 'sent'
	`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRepository) MarkFailed(ctx context.Context, id uuid.UUID, note string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'failed',
		    error_note = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status <> 'sent'
	`, id, note)
	return err
}

func (r *PgRepository) HasEscalation(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM notifications
			WHERE appointment_id = $1
			  AND type = 'late'
		)
	`, appointmentID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) MatchEscalationToken(ctx context.Context, appointmentID uuid.UUID, token string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM notifications
			WHERE appointment_id = $1
			  AND type = 'late'
			  AND token = $2
		)
	`, appointmentID, token).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
