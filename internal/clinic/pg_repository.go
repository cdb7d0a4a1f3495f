package clinic

import (
	"context"
	"errors"
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

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var phone *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Phone = phone
	return &p, nil
}

func scanProfessional(row pgx.Row) (*Professional, error) {
	var p Professional
	var phone *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Specialty,
		&phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfessionalNotFound
		}
		return nil, err
	}

	p.Phone = phone
	return &p, nil
}

func scanHealthUnit(row pgx.Row) (*HealthUnit, error) {
	var u HealthUnit
	var address *string

	err := row.Scan(
		&u.ID,
		&u.Name,
		&address,
		&u.OpensAtMinutes,
		&u.ClosesAtMinutes,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHealthUnitNotFound
		}
		return nil, err
	}

	u.Address = address
	return &u, nil
}

func scanReferral(row pgx.Row) (*Referral, error) {
	var r Referral
	var validUntil *time.Time

	err := row.Scan(
		&r.ID,
		&r.PatientID,
		&r.ToSpecialty,
		&r.Status,
		&validUntil,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReferralNotFound
		}
		return nil, err
	}

	r.ValidUntil = validUntil
	return &r, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetProfessionalByID(ctx context.Context, id uuid.UUID) (*Professional, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, phone, created_at, updated_at
		FROM professionals
		WHERE id = $1
	`, id)
	return scanProfessional(row)
}

func (r *PgRepository) GetHealthUnitByID(ctx context.Context, id uuid.UUID) (*HealthUnit, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, address, opens_at_minutes, closes_at_minutes, created_at, updated_at
		FROM health_units
		WHERE id = $1
	`, id)
	return scanHealthUnit(row)
}

func (r *PgRepository) HasActiveAssociation(ctx context.Context, professionalID, healthUnitID uuid.UUID, at time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM professional_unit_links
			WHERE professional_id = $1
			  AND health_unit_id = $2
			  AND starts_at <= $3
			  AND (ends_at IS NULL OR ends_at > $3)
		)
	`, professionalID, healthUnitID, at).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) FindApprovedReferral(ctx context.Context, patientID uuid.UUID, specialty string, at time.Time) (*Referral, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, to_specialty, status, valid_until, created_at, updated_at
		FROM referrals
		WHERE patient_id = $1
		  AND to_specialty = $2
		  AND status = 'approved'
		  AND (valid_until IS NULL OR valid_until > $3)
		ORDER BY created_at
		LIMIT 1
	`, patientID, specialty, at)
	return scanReferral(row)
}
