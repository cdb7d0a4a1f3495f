package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kxtukI/med.sys-sub000/internal/clinic"
	"github.com/kxtukI/med.sys-sub000/internal/db"
	"github.com/kxtukI/med.sys-sub000/internal/logging"
	"github.com/kxtukI/med.sys-sub000/internal/schedule"
)

var specialties = []string{
	clinic.DefaultSpecialty,
	"dermatology",
	"cardiology",
	"orthopedics",
	"endocrinology",
	"neurology",
	"pediatrics",
	"psychiatry",
	"ophthalmology",
}

func main() {
	log := logging.New("seed", "dev")
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	seedCtx := context.Background()

	unitIDs, err := seedHealthUnits(seedCtx, pool, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("seed health units")
	}
	log.Info().Int("count", len(unitIDs)).Msg("health units seeded")

	professionalIDs, err := seedProfessionals(seedCtx, pool, unitIDs, 40)
	if err != nil {
		log.Fatal().Err(err).Msg("seed professionals")
	}
	log.Info().Int("count", len(professionalIDs)).Msg("professionals seeded")

	patientIDs, err := seedPatients(seedCtx, pool, 2000)
	if err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	log.Info().Int("count", len(patientIDs)).Msg("patients seeded")

	if err := seedReferrals(seedCtx, pool, patientIDs, 300); err != nil {
		log.Fatal().Err(err).Msg("seed referrals")
	}
	log.Info().Msg("referrals seeded")

	log.Info().Msg("seed complete")
}

func seedHealthUnits(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Company() + " Health Unit"
		address := gofakeit.Street() + ", " + gofakeit.City()

		// 07:00 to 18:00 or 19:00
		opens := 7 * 60
		closes := (18 + gofakeit.Number(0, 1)) * 60

		_, err := tx.Exec(ctx, `
			INSERT INTO health_units (id, name, address, opens_at_minutes, closes_at_minutes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, name, address, opens, closes)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return ids, nil
}

func seedProfessionals(ctx context.Context, pool *pgxpool.Pool, unitIDs []uuid.UUID, count int) ([]uuid.UUID, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		phone := gofakeit.Phone()

		_, err := tx.Exec(ctx, `
			INSERT INTO professionals (id, name, specialty, phone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, phone)
		if err != nil {
			return nil, err
		}

		// Attach to one or two units with an open-ended association and give
		// each attachment a weekday availability window.
		units := gofakeit.Number(1, 2)
		for u := 0; u < units && u < len(unitIDs); u++ {
			unitID := unitIDs[gofakeit.Number(0, len(unitIDs)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO professional_unit_links (id, professional_id, health_unit_id, starts_at, ends_at, created_at, updated_at)
				VALUES ($1, $2, $3, now() - interval '90 days', NULL, now(), now())
				ON CONFLICT DO NOTHING
			`, uuid.New(), id, unitID)
			if err != nil {
				return nil, err
			}

			weekday := gofakeit.Number(1, 5)
			_, err = tx.Exec(ctx, `
				INSERT INTO schedule_templates (
					id, professional_id, health_unit_id, weekday,
					start_minutes, end_minutes, slot_minutes, buffer_minutes,
					break_start_minutes, break_end_minutes, created_at, updated_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
				ON CONFLICT DO NOTHING
			`, uuid.New(), id, unitID, weekday,
				8*60, 17*60, schedule.DefaultSlotMinutes, schedule.DefaultBufferMinutes,
				12*60, 13*60)
			if err != nil {
				return nil, err
			}
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	const batchSize = 500

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			phone := gofakeit.Phone()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, phone, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, phone)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}

			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
	}

	return ids, nil
}

func seedReferrals(ctx context.Context, pool *pgxpool.Pool, patientIDs []uuid.UUID, count int) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		patientID := patientIDs[gofakeit.Number(0, len(patientIDs)-1)]
		spec := specialties[gofakeit.Number(1, len(specialties)-1)]
		validUntil := time.Now().AddDate(0, gofakeit.Number(1, 6), 0)

		_, err := tx.Exec(ctx, `
			INSERT INTO referrals (id, patient_id, to_specialty, status, valid_until, created_at, updated_at)
			VALUES ($1, $2, $3, 'approved', $4, now(), now())
		`, uuid.New(), patientID, spec, validUntil)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
