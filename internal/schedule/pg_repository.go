package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	var weekday int
	var breakStart, breakEnd *int

	err := row.Scan(
		&t.ID,
		&t.ProfessionalID,
		&t.HealthUnitID,
		&weekday,
		&t.StartMinutes,
		&t.EndMinutes,
		&t.SlotMinutes,
		&t.BufferMinutes,
		&breakStart,
		&breakEnd,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	t.Weekday = time.Weekday(weekday)
	t.BreakStartMinutes = breakStart
	t.BreakEndMinutes = breakEnd
	return &t, nil
}

const templateColumns = `
	id, professional_id, health_unit_id, weekday,
	start_minutes, end_minutes, slot_minutes, buffer_minutes,
	break_start_minutes, break_end_minutes, created_at, updated_at
`

func (r *PgRepository) GetByWeekday(ctx context.Context, professionalID, healthUnitID uuid.UUID, weekday time.Weekday) (*Template, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM schedule_templates
		WHERE professional_id = $1
		  AND health_unit_id = $2
		  AND weekday = $3
	`, professionalID, healthUnitID, int(weekday))
	return scanTemplate(row)
}

func (r *PgRepository) ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]Template, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+templateColumns+`
		FROM schedule_templates
		WHERE professional_id = $1
		ORDER BY health_unit_id, weekday
	`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) Create(ctx context.Context, tpl *Template) (*Template, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO schedule_templates (
			id, professional_id, health_unit_id, weekday,
			start_minutes, end_minutes, slot_minutes, buffer_minutes,
			break_start_minutes, break_end_minutes, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+templateColumns+`
	`, id, tpl.ProfessionalID, tpl.HealthUnitID, int(tpl.Weekday),
		tpl.StartMinutes, tpl.EndMinutes, tpl.SlotMinutes, tpl.BufferMinutes,
		tpl.BreakStartMinutes, tpl.BreakEndMinutes)

	created, err := scanTemplate(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrTemplateExists
		}
		return nil, err
	}

	return created, nil
}
