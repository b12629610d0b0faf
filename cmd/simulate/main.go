package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medilink/clinic-scheduling/internal/config"
	"github.com/medilink/clinic-scheduling/internal/db"
)

// The simulator hammers a small set of (doctor, date, time) targets with
// many workers. Because targets are deliberately few, most booking attempts
// collide; the report shows whether double-booking ever slipped through.

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	ReadRatio    float64
	DoctorLimit  int
	PatientLimit int
	TargetDate   string
	PostgresDSN  string
}

type Target struct {
	DoctorID uuid.UUID
	Date     string
	Time     string
}

type DataPool struct {
	Patients []uuid.UUID
	Doctors  []uuid.UUID
	Targets  []Target
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	Booking      OperationMetrics
	Availability OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d booking=%.2f read=%.2f date=%s",
		cfg.Duration, cfg.Workers, cfg.BookingRatio, cfg.ReadRatio, cfg.TargetDate)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d patients, %d doctors", len(dataPool.Patients), len(dataPool.Doctors))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	if err := sim.buildTargets(); err != nil {
		log.Fatalf("build targets: %v", err)
	}
	log.Printf("contending over %d slot targets", len(sim.pool.Targets))

	sim.Run()
	sim.PrintReport()

	if err := verifyNoDoubleBookings(context.Background(), pgPool); err != nil {
		log.Fatalf("invariant check: %v", err)
	}
	log.Println("invariant check passed: no doctor has two scheduled appointments at one instant")
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.7),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
		DoctorLimit:  getInt("SIM_DOCTOR_LIMIT", 5),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 1000),
		TargetDate:   getEnv("SIM_TARGET_DATE", nextWeekdayDate()),
		PostgresDSN:  baseCfg.PostgresDSN,
	}

	total := cfg.BookingRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

// nextWeekdayDate picks the next Monday-to-Friday date, matching the
// working-hours pattern the seed tool creates.
func nextWeekdayDate() string {
	d := time.Now().AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT id FROM patients LIMIT $1
	`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, id)
	}

	rows, err = pool.Query(ctx, `
		SELECT DISTINCT doctor_id FROM working_hours LIMIT $1
	`, cfg.DoctorLimit)
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Doctors = append(dataPool.Doctors, id)
	}

	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded, run the seed tool first")
	}
	if len(dataPool.Doctors) == 0 {
		return nil, fmt.Errorf("no doctors with working hours loaded, run the seed tool first")
	}

	return dataPool, nil
}

// buildTargets asks the running API for each doctor's free slots on the
// target date and keeps them all as contention targets.
func (s *Simulator) buildTargets() error {
	for _, doctorID := range s.pool.Doctors {
		url := fmt.Sprintf("%s/doctors/%s/availability?date=%s", s.config.APIBaseURL, doctorID, s.config.TargetDate)
		resp, err := s.client.Get(url)
		if err != nil {
			return err
		}

		var body struct {
			Slots []string `json:"slots"`
		}
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return err
		}

		for _, slot := range body.Slots {
			s.pool.Targets = append(s.pool.Targets, Target{
				DoctorID: doctorID,
				Date:     s.config.TargetDate,
				Time:     slot,
			})
		}
	}

	if len(s.pool.Targets) == 0 {
		return fmt.Errorf("no free slots on %s for the selected doctors", s.config.TargetDate)
	}
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if rng.Float64() < s.config.BookingRatio {
				s.doBooking(ctx, rng)
			} else {
				s.doAvailabilityRead(ctx, rng)
			}
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	target := s.pool.Targets[rng.Intn(len(s.pool.Targets))]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	payload := map[string]string{
		"doctor_id":  target.DoctorID.String(),
		"patient_id": patientID.String(),
		"date":       target.Date,
		"time":       target.Time,
	}
	body, _ := json.Marshal(payload)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		s.metrics.Booking.Record(time.Since(start), false, false)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.metrics.Booking.Record(latency, false, false)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		s.metrics.Booking.Record(latency, true, false)
	case http.StatusConflict, http.StatusUnprocessableEntity:
		s.metrics.Booking.Record(latency, false, true)
	default:
		s.metrics.Booking.Record(latency, false, false)
	}
}

func (s *Simulator) doAvailabilityRead(ctx context.Context, rng *rand.Rand) {
	doctorID := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]
	url := fmt.Sprintf("%s/doctors/%s/availability?date=%s", s.config.APIBaseURL, doctorID, s.config.TargetDate)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		s.metrics.Availability.Record(time.Since(start), false, false)
		return
	}

	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.metrics.Availability.Record(latency, false, false)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	s.metrics.Availability.Record(latency, resp.StatusCode == http.StatusOK, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println()
	fmt.Println("=== Simulation Report ===")
	printOperation("Booking", &s.metrics.Booking)
	printOperation("Availability", &s.metrics.Availability)
}

func printOperation(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}
	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errs := atomic.LoadInt64(&om.Error)
	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s: total=%d success=%d conflict=%d error=%d\n", name, total, success, conflict, errs)
	fmt.Printf("  latency avg=%s min=%s max=%s p50=%s p95=%s\n", avg, min, max, p50, p95)
}

// verifyNoDoubleBookings checks the scheduled-slot uniqueness invariant
// directly against the database after the run.
func verifyNoDoubleBookings(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	err := pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM (
			SELECT doctor_id, date_time
			FROM appointments
			WHERE status = 'scheduled'
			GROUP BY doctor_id, date_time
			HAVING COUNT(*) > 1
		) dup
	`).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%d (doctor, instant) pairs have multiple scheduled appointments", count)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
