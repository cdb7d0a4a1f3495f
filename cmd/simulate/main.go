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

	"github.com/kxtukI/med.sys-sub000/internal/config"
	"github.com/kxtukI/med.sys-sub000/internal/db"
	"github.com/kxtukI/med.sys-sub000/internal/schedule"
)

// The simulator hammers the booking endpoint with many workers picking
// from a shared pool of candidate slot times. Because workers overlap on
// the same slots, a healthy run shows a mix of 201s and 409s; the 409s
// are the interesting part.

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookRatio    float64
	ReadRatio    float64
	SlotsRatio   float64
	CancelRatio  float64
	PatientLimit int
	DaysAhead    int
	PostgresDSN  string
}

// CandidateSlot is one bookable (professional, unit, time) triple derived
// from a schedule template.
type CandidateSlot struct {
	ProfessionalID uuid.UUID
	HealthUnitID   uuid.UUID
	DateTime       time.Time
}

type DataPool struct {
	Patients []uuid.UUID
	Slots    []CandidateSlot

	mu     sync.RWMutex
	booked []uuid.UUID
}

func (dp *DataPool) AddBooked(id uuid.UUID) {
	dp.mu.Lock()
	dp.booked = append(dp.booked, id)
	dp.mu.Unlock()
}

func (dp *DataPool) RandomBooked(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.booked) == 0 {
		return uuid.Nil, false
	}
	return dp.booked[rng.Intn(len(dp.booked))], true
}

type OpMetrics struct {
	Total    int64
	Success  int64
	Conflict int64
	Rejected int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OpMetrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err != nil:
		atomic.AddInt64(&om.Error, 1)
	case status == http.StatusOK || status == http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Rejected, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OpMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	n := len(om.latencies)
	if n == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]time.Duration, n)
	copy(sorted, om.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	avg = sum / time.Duration(n)
	p50 = sorted[min(n*50/100, n-1)]
	p95 = sorted[min(n*95/100, n-1)]
	max = sorted[n-1]
	return avg, p50, p95, max
}

type Metrics struct {
	Book   OpMetrics
	Read   OpMetrics
	Slots  OpMetrics
	Cancel OpMetrics
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

	cfg := loadSimConfig()
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}
	if cfg.Workers <= 0 || cfg.Duration <= 0 {
		log.Fatal("SIM_WORKERS and SIM_DURATION must be > 0")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	pool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded: %d patients, %d candidate slots", len(pool.Patients), len(pool.Slots))

	sim := &Simulator{
		config: cfg,
		pool:   pool,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	sim.Run()
	sim.PrintReport()
}

func loadSimConfig() SimConfig {
	base, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookRatio:    getFloat("SIM_BOOK_RATIO", 0.5),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.25),
		SlotsRatio:   getFloat("SIM_SLOTS_RATIO", 0.15),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.1),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 2000),
		DaysAhead:    getInt("SIM_DAYS_AHEAD", 7),
		PostgresDSN:  base.PostgresDSN,
	}

	total := cfg.BookRatio + cfg.ReadRatio + cfg.SlotsRatio + cfg.CancelRatio
	if total > 0 {
		cfg.BookRatio /= total
		cfg.ReadRatio /= total
		cfg.SlotsRatio /= total
		cfg.CancelRatio /= total
	}
	return cfg
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dp := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dp.Patients = append(dp.Patients, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tplRows, err := pool.Query(ctx, `
		SELECT professional_id, health_unit_id, weekday, start_minutes, end_minutes,
		       slot_minutes, buffer_minutes, break_start_minutes, break_end_minutes
		FROM schedule_templates
	`)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	defer tplRows.Close()

	var templates []schedule.Template
	for tplRows.Next() {
		var t schedule.Template
		var weekday int
		if err := tplRows.Scan(
			&t.ProfessionalID, &t.HealthUnitID, &weekday,
			&t.StartMinutes, &t.EndMinutes, &t.SlotMinutes, &t.BufferMinutes,
			&t.BreakStartMinutes, &t.BreakEndMinutes,
		); err != nil {
			return nil, err
		}
		t.Weekday = time.Weekday(weekday)
		templates = append(templates, t)
	}
	if err := tplRows.Err(); err != nil {
		return nil, err
	}

	// Expand each template over the coming days into concrete date-times.
	// The pool is deliberately much smaller than the server's capacity so
	// workers collide on the same slots.
	now := time.Now()
	for day := 1; day <= cfg.DaysAhead; day++ {
		date := now.AddDate(0, 0, day)
		midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.Local)
		for _, t := range templates {
			if t.Weekday != midnight.Weekday() {
				continue
			}
			step := t.SlotMinutes + t.BufferMinutes
			for m := t.StartMinutes; m+t.SlotMinutes <= t.EndMinutes; m += step {
				dp.Slots = append(dp.Slots, CandidateSlot{
					ProfessionalID: t.ProfessionalID,
					HealthUnitID:   t.HealthUnitID,
					DateTime:       midnight.Add(time.Duration(m) * time.Minute),
				})
			}
		}
	}

	if len(dp.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded, run the seeder first")
	}
	if len(dp.Slots) == 0 {
		return nil, fmt.Errorf("no candidate slots, run the seeder first")
	}
	return dp, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("running for %s with %d workers", s.config.Duration, s.config.Workers)

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
			r := rng.Float64()
			switch {
			case r < s.config.BookRatio:
				s.doBook(ctx, rng)
			case r < s.config.BookRatio+s.config.ReadRatio:
				s.doRead(ctx, rng)
			case r < s.config.BookRatio+s.config.ReadRatio+s.config.SlotsRatio:
				s.doSlots(ctx, rng)
			default:
				s.doCancel(ctx, rng)
			}
		}
	}
}

func (s *Simulator) doBook(ctx context.Context, rng *rand.Rand) {
	slot := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	reqBody := map[string]string{
		"patient_id":      patientID.String(),
		"professional_id": slot.ProfessionalID.String(),
		"health_unit_id":  slot.HealthUnitID.String(),
		"date_time":       slot.DateTime.Format(time.RFC3339),
	}
	body, _ := json.Marshal(reqBody)

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	status := 0
	if err == nil {
		status = resp.StatusCode
		if status == http.StatusCreated {
			var created struct {
				ID uuid.UUID `json:"id"`
			}
			raw, _ := io.ReadAll(resp.Body)
			if json.Unmarshal(raw, &created) == nil && created.ID != uuid.Nil {
				s.pool.AddBooked(created.ID)
			}
		} else {
			io.Copy(io.Discard, resp.Body)
		}
		resp.Body.Close()
	}
	s.metrics.Book.Record(latency, status, err)
}

func (s *Simulator) doRead(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomBooked(rng)
	if !ok {
		return
	}

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/appointments/%s", s.config.APIBaseURL, id), nil)
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	status := 0
	if err == nil {
		status = resp.StatusCode
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	s.metrics.Read.Record(latency, status, err)
}

func (s *Simulator) doSlots(ctx context.Context, rng *rand.Rand) {
	slot := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	date := slot.DateTime.Format("2006-01-02")

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/appointment_slots/%s/%s/%s",
			s.config.APIBaseURL, slot.ProfessionalID, slot.HealthUnitID, date), nil)
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	status := 0
	if err == nil {
		status = resp.StatusCode
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	s.metrics.Slots.Record(latency, status, err)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomBooked(rng)
	if !ok {
		return
	}

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "DELETE",
		fmt.Sprintf("%s/appointments/%s", s.config.APIBaseURL, id), nil)
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	status := 0
	if err == nil {
		status = resp.StatusCode
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	s.metrics.Cancel.Record(latency, status, err)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n================================================================")
	fmt.Println("SIMULATION REPORT")
	fmt.Println("================================================================")
	fmt.Printf("Duration: %s  Workers: %d\n\n", s.config.Duration, s.config.Workers)

	printOpReport("Book", &s.metrics.Book)
	printOpReport("Read", &s.metrics.Read)
	printOpReport("Day slots", &s.metrics.Slots)
	printOpReport("Cancel", &s.metrics.Cancel)
}

func printOpReport(name string, om *OpMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}
	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	rejected := atomic.LoadInt64(&om.Rejected)
	errors := atomic.LoadInt64(&om.Error)

	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, pct(success, total))
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, pct(conflict, total))
	}
	if rejected > 0 {
		fmt.Printf("  Rejected: %d (%.1f%%)\n", rejected, pct(rejected, total))
	}
	if errors > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errors, pct(errors, total))
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
}

func pct(n, total int64) float64 {
	return float64(n) / float64(total) * 100
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
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
