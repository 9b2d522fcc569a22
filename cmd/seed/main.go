package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/angeldev7/clinic-scheduling/internal/api"
	"github.com/angeldev7/clinic-scheduling/internal/logging"
)

type seedOptions struct {
	apiBaseURL string
	patients   int
	clinicians int
	days       int
	startIndex int
	seed       uint64
	timeout    time.Duration
}

func main() {
	opts := seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Register generated patients and clinicians with a running api-server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, logging.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL")))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.apiBaseURL, "api", "http://localhost:8080", "api-server base URL")
	flags.IntVar(&opts.patients, "patients", 200, "number of patients to register")
	flags.IntVar(&opts.clinicians, "clinicians", 5, "number of clinicians to register")
	flags.IntVar(&opts.days, "days", 7, "days of slots to configure for each clinician")
	flags.IntVar(&opts.startIndex, "start", 100, "first numeric suffix used for generated ids")
	flags.Uint64Var(&opts.seed, "seed", 0, "gofakeit seed (0 picks a random one)")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts seedOptions, log zerolog.Logger) error {
	faker := gofakeit.New(opts.seed)
	client := &http.Client{Timeout: opts.timeout}

	log.Info().
		Str("api", opts.apiBaseURL).
		Int("patients", opts.patients).
		Int("clinicians", opts.clinicians).
		Msg("seed starting")

	clinicianIDs := make([]string, 0, opts.clinicians)
	for i := 0; i < opts.clinicians; i++ {
		id := fmt.Sprintf("DOC-%03d", opts.startIndex+i)
		if err := register(ctx, client, opts.apiBaseURL, fakeParticipant(faker, id, "clinician")); err != nil {
			return fmt.Errorf("register clinician %s: %w", id, err)
		}
		clinicianIDs = append(clinicianIDs, id)
	}
	log.Info().Int("count", len(clinicianIDs)).Msg("clinicians seeded")

	slots := upcomingSlots(time.Now(), opts.days)
	for _, id := range clinicianIDs {
		body := api.ConfigureSlotsRequest{ActorID: id, Slots: slots}
		if err := send(ctx, client, http.MethodPut, opts.apiBaseURL+"/clinicians/"+id+"/slots", body, http.StatusOK); err != nil {
			return fmt.Errorf("configure slots for %s: %w", id, err)
		}
	}
	log.Info().Int("slots_per_clinician", len(slots)).Msg("schedules configured")

	for i := 0; i < opts.patients; i++ {
		id := fmt.Sprintf("PAC-%03d", opts.startIndex+i)
		if err := register(ctx, client, opts.apiBaseURL, fakeParticipant(faker, id, "patient")); err != nil {
			return fmt.Errorf("register patient %s: %w", id, err)
		}
		if (i+1)%100 == 0 {
			log.Info().Int("done", i+1).Int("total", opts.patients).Msg("patients seeded")
		}
	}

	log.Info().Msg("seed complete")
	return nil
}

func fakeParticipant(faker *gofakeit.Faker, id, role string) api.RegisterParticipantRequest {
	return api.RegisterParticipantRequest{
		ID:         id,
		GivenName:  faker.FirstName(),
		FamilyName: faker.LastName(),
		Email:      faker.Email(),
		Phone:      faker.Phone(),
		Role:       role,
	}
}

// upcomingSlots returns half-hour slots from 09:00 to 16:30 local time for
// each of the days after now.
func upcomingSlots(now time.Time, days int) []time.Time {
	var slots []time.Time
	for d := 1; d <= days; d++ {
		day := time.Date(now.Year(), now.Month(), now.Day()+d, 9, 0, 0, 0, now.Location())
		for i := 0; i < 16; i++ {
			slots = append(slots, day.Add(time.Duration(i)*30*time.Minute))
		}
	}
	return slots
}

func register(ctx context.Context, client *http.Client, baseURL string, req api.RegisterParticipantRequest) error {
	return send(ctx, client, http.MethodPost, baseURL+"/participants", req, http.StatusCreated)
}

func send(ctx context.Context, client *http.Client, method, url string, body any, want int) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var apiErr api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%s %s: status %d: %s %s", method, url, resp.StatusCode, apiErr.Error, apiErr.Details)
	}
	return nil
}
