// Command simulate hammers the booking endpoint with concurrent workers that
// all fight over a small pool of (doctor, date, slot) keys. At the end it
// reports success/conflict/error counts and latency percentiles, and verifies
// in Postgres that no slot key holds more than one active appointment.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/carewell/clinic-scheduling/internal/clinic"
	"github.com/carewell/clinic-scheduling/internal/db"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Str("service", "simulate").Logger()

type simConfig struct {
	baseURL  string
	duration time.Duration
	workers  int
	days     int
}

type dataPool struct {
	patients []string
	doctors  []string
	services []string
}

type metrics struct {
	total    int64
	success  int64
	conflict int64
	errored  int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *metrics) record(latency time.Duration, status int) {
	atomic.AddInt64(&m.total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.conflict, 1)
	default:
		atomic.AddInt64(&m.errored, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *metrics) percentile(p int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func main() {
	cfg := simConfig{}
	flag.StringVar(&cfg.baseURL, "url", "http://127.0.0.1:8080", "API base URL")
	flag.DurationVar(&cfg.duration, "duration", 30*time.Second, "how long to run")
	flag.IntVar(&cfg.workers, "workers", 20, "concurrent workers")
	flag.IntVar(&cfg.days, "days", 3, "how many future dates to contend over")
	flag.Parse()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, dsn)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	data, err := loadPool(context.Background(), pool)
	if err != nil {
		log.Fatal().Err(err).Msg("load data pool")
	}
	log.Info().
		Int("patients", len(data.patients)).
		Int("doctors", len(data.doctors)).
		Int("services", len(data.services)).
		Msg("data pool loaded")

	m := &metrics{}
	runCtx, stop := context.WithTimeout(context.Background(), cfg.duration)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < cfg.workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			worker(runCtx, cfg, data, m, rand.New(rand.NewSource(seed)))
		}(time.Now().UnixNano() + int64(i))
	}
	wg.Wait()

	log.Info().
		Int64("total", m.total).
		Int64("success", m.success).
		Int64("conflict", m.conflict).
		Int64("error", m.errored).
		Dur("p50", m.percentile(50)).
		Dur("p95", m.percentile(95)).
		Msg("simulation finished")

	if err := verifyNoDoubleBooking(context.Background(), pool); err != nil {
		log.Fatal().Err(err).Msg("invariant check failed")
	}
	log.Info().Msg("no double-booked slots found")
}

func loadPool(ctx context.Context, pool *pgxpool.Pool) (*dataPool, error) {
	dp := &dataPool{}

	collect := func(query string, dst *[]string) error {
		rows, err := pool.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			*dst = append(*dst, id)
		}
		return rows.Err()
	}

	if err := collect(`SELECT id FROM users WHERE role = 'patient' LIMIT 200`, &dp.patients); err != nil {
		return nil, err
	}
	if err := collect(`SELECT id::text FROM doctors LIMIT 20`, &dp.doctors); err != nil {
		return nil, err
	}
	if err := collect(`SELECT id::text FROM services LIMIT 20`, &dp.services); err != nil {
		return nil, err
	}

	if len(dp.patients) == 0 || len(dp.doctors) == 0 || len(dp.services) == 0 {
		return nil, fmt.Errorf("empty data pool, run cmd/seed first")
	}
	return dp, nil
}

func worker(ctx context.Context, cfg simConfig, data *dataPool, m *metrics, rng *rand.Rand) {
	client := &http.Client{Timeout: 10 * time.Second}

	for ctx.Err() == nil {
		patient := data.patients[rng.Intn(len(data.patients))]
		doctor := data.doctors[rng.Intn(len(data.doctors))]
		service := data.services[rng.Intn(len(data.services))]
		date := time.Now().AddDate(0, 0, 1+rng.Intn(cfg.days)).Format("2006-01-02")
		slot := clinic.TimeSlots[rng.Intn(len(clinic.TimeSlots))]

		body, _ := json.Marshal(map[string]string{
			"doctor_id":  doctor,
			"service_id": service,
			"date":       date,
			"time":       slot,
		})

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.baseURL+"/appointments", bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", patient)

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() == nil {
				m.record(time.Since(start), 0)
			}
			continue
		}
		resp.Body.Close()
		m.record(time.Since(start), resp.StatusCode)
	}
}

func verifyNoDoubleBooking(ctx context.Context, pool *pgxpool.Pool) error {
	var violations int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM (
			SELECT doctor_id, date, slot
			FROM appointments
			WHERE status <> 'cancelled'
			GROUP BY doctor_id, date, slot
			HAVING count(*) > 1
		) v
	`).Scan(&violations)
	if err != nil {
		return err
	}
	if violations > 0 {
		return fmt.Errorf("%d slot keys hold more than one active appointment", violations)
	}
	return nil
}
