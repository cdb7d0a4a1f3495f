package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kxtukI/med.sys-sub000/internal/clinic"
	"github.com/kxtukI/med.sys-sub000/internal/schedule"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, patient_id, professional_id, health_unit_id,
	date_time, specialty, status, created_at, updated_at
`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProfessionalID,
		&a.HealthUnitID,
		&a.DateTime,
		&a.Specialty,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT
			a.id, a.patient_id, a.professional_id, a.health_unit_id,
			a.date_time, a.specialty, a.status, a.created_at, a.updated_at,
			pa.name, pa.phone,
			pr.name, pr.specialty, pr.phone,
			hu.name, hu.address, hu.opens_at_minutes, hu.closes_at_minutes
		FROM appointments a
		JOIN patients pa ON pa.id = a.patient_id
		JOIN professionals pr ON pr.id = a.professional_id
		JOIN health_units hu ON hu.id = a.health_unit_id
		WHERE a.id = $1
	`, id)

	var d Detail
	var patient clinic.Patient
	var professional clinic.Professional
	var unit clinic.HealthUnit

	err := row.Scan(
		&d.ID, &d.PatientID, &d.ProfessionalID, &d.HealthUnitID,
		&d.DateTime, &d.Specialty, &d.Status, &d.CreatedAt, &d.UpdatedAt,
		&patient.Name, &patient.Phone,
		&professional.Name, &professional.Specialty, &professional.Phone,
		&unit.Name, &unit.Address, &unit.OpensAtMinutes, &unit.ClosesAtMinutes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	patient.ID = d.PatientID
	professional.ID = d.ProfessionalID
	unit.ID = d.HealthUnitID

	d.Patient = &patient
	d.Professional = &professional
	d.HealthUnit = &unit

	return &d, nil
}

func (r *PgRepository) GetActiveAt(ctx context.Context, professionalID uuid.UUID, at time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE professional_id = $1
		  AND date_time = $2
		  AND status <> 'canceled'
		LIMIT 1
	`, professionalID, at)
	return scanAppointment(row)
}

func (r *PgRepository) CreateScheduled(ctx context.Context, appt *Appointment, consumeReferralID *uuid.UUID) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	id := uuid.New()

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (
			id, patient_id, professional_id, health_unit_id,
			date_time, specialty, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, 'scheduled', now(), now())
		RETURNING `+appointmentColumns+`
	`, id, appt.PatientID, appt.ProfessionalID, appt.HealthUnitID, appt.DateTime, appt.Specialty)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if consumeReferralID != nil {
		tag, err := tx.Exec(ctx, `
			UPDATE referrals
			SET status = 'used',
			    updated_at = now()
			WHERE id = $1
			  AND status = 'approved'
		`, *consumeReferralID)
		if err != nil {
			return nil, fmt.Errorf("consume referral: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrReferralUnavailable
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	return created, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateFields(ctx context.Context, id uuid.UUID, dateTime time.Time, specialty string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET date_time = $2,
		    specialty = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'scheduled'
		RETURNING `+appointmentColumns+`
	`, id, dateTime, specialty)
	return scanAppointment(row)
}

func (r *PgRepository) ListBetween(ctx context.Context, professionalID uuid.UUID, start, end time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE professional_id = $1
		  AND date_time >= $2
		  AND date_time < $3
		ORDER BY date_time
	`, professionalID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) FindLateScheduled(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'scheduled'
		  AND date_time <= $1
		ORDER BY date_time
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListBookedTimes(ctx context.Context, professionalID, healthUnitID uuid.UUID, dayStart, dayEnd time.Time) ([]schedule.BookedTime, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, date_time
		FROM appointments
		WHERE professional_id = $1
		  AND health_unit_id = $2
		  AND date_time >= $3
		  AND date_time < $4
		  AND status <> 'canceled'
		ORDER BY date_time
	`, professionalID, healthUnitID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schedule.BookedTime
	for rows.Next() {
		var id uuid.UUID
		var dt time.Time
		if err := rows.Scan(&id, &dt); err != nil {
			return nil, err
		}
		result = append(result, schedule.BookedTime{
			StartMinutes:  schedule.MinutesOfDay(dt),
			AppointmentID: id,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
