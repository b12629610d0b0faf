package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medilink/clinic-scheduling/internal/db"
	"github.com/medilink/clinic-scheduling/internal/schedule"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS doctors (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		specialty TEXT,
		license_number TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS working_hours (
		doctor_id UUID NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
		weekday SMALLINT NOT NULL CHECK (weekday BETWEEN 1 AND 7),
		start_time TIME NOT NULL,
		end_time TIME NOT NULL,
		PRIMARY KEY (doctor_id, weekday)
	)`,
	`CREATE TABLE IF NOT EXISTS time_off (
		id UUID PRIMARY KEY,
		doctor_id UUID NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		start_time TIME NOT NULL,
		end_time TIME NOT NULL,
		reason TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_time_off_doctor_date ON time_off (doctor_id, date)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id UUID PRIMARY KEY,
		doctor_id UUID NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
		patient_id UUID NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
		date_time TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		notes TEXT NOT NULL DEFAULT '',
		doctor_notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// Structural guarantee that two scheduled appointments can never share
	// a doctor and instant, whatever the request interleaving was.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_appointments_doctor_slot
		ON appointments (doctor_id, date_time)
		WHERE status = 'scheduled'`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments (patient_id, date_time)`,
	`CREATE TABLE IF NOT EXISTS event_logs (
		id BIGSERIAL PRIMARY KEY,
		event_type TEXT NOT NULL,
		appointment_id UUID,
		payload JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := applySchema(context.Background(), pool); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedWorkingHours(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed working hours: %v", err)
	}

	log.Println("seed complete")
}

func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	log.Println("schema applied")
	return nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		license := gofakeit.UUID()

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, license_number, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, license)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedWorkingHours gives every doctor a Monday-to-Friday week with slightly
// varied windows, so resolved availability is not identical across doctors.
func seedWorkingHours(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding working hours for %d doctors", len(doctorIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, id := range doctorIDs {
		startHour := gofakeit.Number(8, 10)
		endHour := gofakeit.Number(15, 18)

		for weekday := 1; weekday <= 5; weekday++ {
			start := schedule.ClockTime{Hour: startHour}
			end := schedule.ClockTime{Hour: endHour}

			_, err := tx.Exec(ctx, `
				INSERT INTO working_hours (doctor_id, weekday, start_time, end_time)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (doctor_id, weekday)
				DO UPDATE SET start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time
			`, id, weekday, toPgTime(start), toPgTime(end))
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("working hours seeded")
	return nil
}

func toPgTime(c schedule.ClockTime) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c.Minutes()) * 60 * 1_000_000, Valid: true}
}
