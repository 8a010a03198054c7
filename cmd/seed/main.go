package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/carewell/clinic-scheduling/internal/db"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Str("service", "seed").Logger()

func main() {
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

	if err := seedServices(context.Background(), pool); err != nil {
		log.Fatal().Err(err).Msg("seed services")
	}
	if err := seedDoctors(context.Background(), pool); err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedPatients(context.Background(), pool, 200); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}

	log.Info().Msg("seed complete")
}

type seedService struct {
	name, description, category string
	duration                    int
	price                       float64
}

// seedServices upserts the default catalog by name, so re-running the seed
// updates rather than duplicates.
func seedServices(ctx context.Context, pool *pgxpool.Pool) error {
	services := []seedService{
		{"General Consultation", "Standard check-up with a general practitioner.", "General Practitioner", 30, 50.00},
		{"Dental Check-up", "Routine dental cleaning and examination.", "Dentist", 45, 80.00},
		{"Cardiology Screening", "Heart health assessment and ECG.", "Cardiologist", 60, 150.00},
	}

	for _, s := range services {
		_, err := pool.Exec(ctx, `
			INSERT INTO services (id, name, description, duration, price, category, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (name) DO UPDATE
			SET description = EXCLUDED.description,
			    duration    = EXCLUDED.duration,
			    price       = EXCLUDED.price,
			    category    = EXCLUDED.category
		`, uuid.New(), s.name, s.description, s.duration, s.price, s.category)
		if err != nil {
			return err
		}
	}

	log.Info().Int("count", len(services)).Msg("services seeded")
	return nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool) error {
	doctors := []struct {
		name, specialization string
	}{
		{"Dr. Sarah Wilson", "Dentist"},
		{"Dr. James Carter", "Cardiologist"},
		{"Dr. Emily Chen", "General Practitioner"},
	}

	for _, d := range doctors {
		var exists bool
		err := pool.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM doctors WHERE name = $1)
		`, d.name).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO doctors (id, name, specialization, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, uuid.New(), d.name, d.specialization)
		if err != nil {
			return err
		}
	}

	log.Info().Int("count", len(doctors)).Msg("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Info().Int("count", count).Msg("seeding patients")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := "user_seed_" + uuid.NewString()
		name := gofakeit.Name()
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, name, role, created_at)
			VALUES ($1, $2, $3, 'patient', now())
			ON CONFLICT (email) DO NOTHING
		`, id, email, name)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Info().Msg("patients seeded")
	return nil
}
