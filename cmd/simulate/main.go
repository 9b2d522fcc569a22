package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/angeldev7/clinic-scheduling/internal/api"
	"github.com/angeldev7/clinic-scheduling/internal/appointment"
	"github.com/angeldev7/clinic-scheduling/internal/logging"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	ConfirmRatio float64
	CancelRatio  float64
	ReadRatio    float64
	Days         int
	// Timezone must match the server's TIMEZONE so dates name the same day.
	Timezone string
	Location *time.Location
}

type DataPool struct {
	Patients   []string
	Clinicians []string
	// Slots holds the free slots seen at startup, per clinician.
	Slots map[string][]time.Time

	mu           sync.RWMutex
	appointments []string
}

func (dp *DataPool) AddAppointment(id string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (string, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return "", false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
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
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, worst time.Duration) {
	om.mu.Lock()
	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	n := len(latencies)
	return sum / time.Duration(n), latencies[n*50/100], latencies[min(n*95/100, n-1)], latencies[n-1]
}

type Metrics struct {
	Booking      OperationMetrics
	Confirm      OperationMetrics
	Cancel       OperationMetrics
	Availability OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	log     zerolog.Logger
	metrics Metrics
}

func main() {
	cfg := SimConfig{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive concurrent booking traffic against a running api-server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
			if err := validateConfig(&cfg); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, log)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.APIBaseURL, "api", "http://localhost:8080", "api-server base URL")
	flags.DurationVar(&cfg.Duration, "duration", 30*time.Second, "how long to run")
	flags.IntVar(&cfg.Workers, "workers", 10, "concurrent workers")
	flags.Float64Var(&cfg.BookingRatio, "booking-ratio", 0.5, "share of booking requests")
	flags.Float64Var(&cfg.ConfirmRatio, "confirm-ratio", 0.15, "share of confirm requests")
	flags.Float64Var(&cfg.CancelRatio, "cancel-ratio", 0.1, "share of cancel requests")
	flags.Float64Var(&cfg.ReadRatio, "read-ratio", 0.25, "share of availability reads")
	flags.IntVar(&cfg.Days, "days", 7, "days ahead to load availability for")
	flags.StringVar(&cfg.Timezone, "timezone", "UTC", "timezone the api-server reads dates in")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func validateConfig(cfg *SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("workers must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be > 0")
	}
	if cfg.Days <= 0 {
		return fmt.Errorf("days must be > 0")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc
	total := cfg.BookingRatio + cfg.ConfirmRatio + cfg.CancelRatio + cfg.ReadRatio
	if total <= 0 {
		return fmt.Errorf("at least one ratio must be > 0")
	}
	cfg.BookingRatio /= total
	cfg.ConfirmRatio /= total
	cfg.CancelRatio /= total
	cfg.ReadRatio /= total
	return nil
}

func run(ctx context.Context, cfg SimConfig, log zerolog.Logger) error {
	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	pool, err := sim.loadDataPool(loadCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("load data pool: %w", err)
	}
	sim.pool = pool

	log.Info().
		Int("patients", len(pool.Patients)).
		Int("clinicians", len(pool.Clinicians)).
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Msg("starting simulation")

	sim.Run(ctx)
	sim.PrintReport()
	return nil
}

func (s *Simulator) loadDataPool(ctx context.Context) (*DataPool, error) {
	var participants []api.ParticipantResponse
	if _, err := s.getJSON(ctx, "/participants", &participants); err != nil {
		return nil, err
	}

	pool := &DataPool{Slots: make(map[string][]time.Time)}
	for _, p := range participants {
		if !p.Active {
			continue
		}
		switch appointment.Role(p.Role) {
		case appointment.RolePatient, appointment.RoleStaff:
			pool.Patients = append(pool.Patients, p.ID)
		case appointment.RoleClinician:
			pool.Clinicians = append(pool.Clinicians, p.ID)
		}
	}

	today := time.Now()
	for _, id := range pool.Clinicians {
		for d := 1; d <= s.config.Days; d++ {
			date := dateParam(today, s.config.Location, d)
			var avail api.AvailabilityResponse
			if _, err := s.getJSON(ctx, "/clinicians/"+id+"/availability?date="+date, &avail); err != nil {
				return nil, err
			}
			pool.Slots[id] = append(pool.Slots[id], avail.Slots...)
		}
		if len(pool.Slots[id]) == 0 {
			delete(pool.Slots, id)
		}
	}

	if len(pool.Patients) == 0 {
		return nil, fmt.Errorf("no patients registered")
	}
	if len(pool.Slots) == 0 {
		return nil, fmt.Errorf("no free slots in the next %d days", s.config.Days)
	}
	bookable := pool.Clinicians[:0]
	for _, id := range pool.Clinicians {
		if _, ok := pool.Slots[id]; ok {
			bookable = append(bookable, id)
		}
	}
	pool.Clinicians = bookable
	return pool, nil
}

func (s *Simulator) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	categories := []appointment.Category{
		appointment.CategoryGeneralConsultation,
		appointment.CategorySpecialist,
		appointment.CategoryExams,
		appointment.CategoryFollowUp,
	}

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng, categories[rng.Intn(len(categories))])
		case r < s.config.BookingRatio+s.config.ConfirmRatio:
			s.doTransition(ctx, rng, "confirm", &s.metrics.Confirm)
		case r < s.config.BookingRatio+s.config.ConfirmRatio+s.config.CancelRatio:
			s.doTransition(ctx, rng, "cancel", &s.metrics.Cancel)
		default:
			s.doAvailability(ctx, rng)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand, category appointment.Category) {
	clinicianID := s.pool.Clinicians[rng.Intn(len(s.pool.Clinicians))]
	slots := s.pool.Slots[clinicianID]

	body, _ := json.Marshal(api.CreateAppointmentRequest{
		PatientID:   s.pool.Patients[rng.Intn(len(s.pool.Patients))],
		ClinicianID: clinicianID,
		ScheduledAt: slots[rng.Intn(len(slots))],
		Category:    category.String(),
	})

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusCreated:
			success = true
			var appt api.AppointmentResponse
			if json.NewDecoder(resp.Body).Decode(&appt) == nil && appt.ID != "" {
				s.pool.AddAppointment(appt.ID)
			}
		case http.StatusConflict:
			conflict = true
		}
	}
	if ctx.Err() != nil {
		return
	}
	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) doTransition(ctx context.Context, rng *rand.Rand, action string, om *OperationMetrics) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/appointments/%s/%s", s.config.APIBaseURL, id, action), nil)
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		conflict = resp.StatusCode == http.StatusConflict
	}
	if ctx.Err() != nil {
		return
	}
	om.Record(latency, success, conflict)
}

func (s *Simulator) doAvailability(ctx context.Context, rng *rand.Rand) {
	clinicianID := s.pool.Clinicians[rng.Intn(len(s.pool.Clinicians))]
	date := dateParam(time.Now(), s.config.Location, 1+rng.Intn(s.config.Days))

	start := time.Now()
	status, err := s.getJSON(ctx, "/clinicians/"+clinicianID+"/availability?date="+date, nil)
	latency := time.Since(start)
	if ctx.Err() != nil {
		return
	}
	s.metrics.Availability.Record(latency, err == nil && status == http.StatusOK, false)
}

// dateParam names the calendar day offset days after now, as read in loc.
func dateParam(now time.Time, loc *time.Location, offset int) string {
	return now.In(loc).AddDate(0, 0, offset).Format("2006-01-02")
}

// getJSON issues a GET and decodes a 200 response into out when out is not nil.
func (s *Simulator) getJSON(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func (s *Simulator) PrintReport() {
	line := strings.Repeat("=", 80)
	fmt.Println("\n" + line)
	fmt.Println("SIMULATION REPORT")
	fmt.Println(line)
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Availability", &s.metrics.Availability)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)
	avg, p50, p95, worst := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), worst.Round(time.Millisecond))
	fmt.Println()
}
