package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/angeldev7/clinic-scheduling/internal/appointment"
)

// DemoSlotTimes are the daily opening hours offered by demo clinicians.
var DemoSlotTimes = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30",
}

type DemoOptions struct {
	Days          int
	ExtraPatients int
	Location      *time.Location
	Faker         *gofakeit.Faker
}

type demoParticipant struct {
	id, given, family, email string
	role                     appointment.Role
}

var demoParticipants = []demoParticipant{
	{"PAC-001", "Juan", "Perez", "juan@email.com", appointment.RolePatient},
	{"PAC-002", "Maria", "Garcia", "maria@email.com", appointment.RolePatient},
	{"DOC-001", "Ana", "Martinez", "ana@hospital.com", appointment.RoleClinician},
	{"DOC-002", "Carlos", "Lopez", "carlos@hospital.com", appointment.RoleClinician},
	{"ADM-001", "Admin", "Sistema", "admin@hospital.com", appointment.RoleAdministrator},
}

// SeedDemo loads the demo clinic: two patients, two clinicians and an
// administrator, plus opts.ExtraPatients generated patients, with every
// clinician offering DemoSlotTimes on each of the next opts.Days days.
func SeedDemo(ctx context.Context, svc *Service, opts DemoOptions) error {
	if opts.Days <= 0 {
		opts.Days = 7
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Faker == nil {
		opts.Faker = gofakeit.New(0)
	}

	for _, d := range demoParticipants {
		p, err := appointment.NewParticipant(d.id, d.given, d.family, d.email, d.role)
		if err != nil {
			return fmt.Errorf("demo participant %s: %w", d.id, err)
		}
		if err := svc.RegisterParticipant(ctx, p); err != nil {
			return err
		}
	}

	for i := 0; i < opts.ExtraPatients; i++ {
		id := fmt.Sprintf("PAC-%03d", i+3)
		p, err := appointment.NewParticipant(id, opts.Faker.FirstName(), opts.Faker.LastName(), opts.Faker.Email(), appointment.RolePatient)
		if err != nil {
			svc.log.Warn().Err(err).Str("participant_id", id).Msg("skipping generated patient")
			continue
		}
		p.SetPhone(opts.Faker.Phone())
		if err := svc.RegisterParticipant(ctx, p); err != nil {
			return err
		}
	}

	slots, err := DemoSlots(svc.clock.Now(), opts.Days, opts.Location)
	if err != nil {
		return err
	}
	for _, d := range demoParticipants {
		if d.role != appointment.RoleClinician {
			continue
		}
		if err := svc.ConfigureSchedule(ctx, "ADM-001", d.id, slots); err != nil {
			return fmt.Errorf("demo schedule %s: %w", d.id, err)
		}
	}

	svc.log.Info().
		Int("participants", svc.registry.Len()).
		Int("slots_per_clinician", len(slots)).
		Msg("demo clinic seeded")
	return nil
}

// DemoSlots builds DemoSlotTimes for each of the days calendar days after now.
func DemoSlots(now time.Time, days int, loc *time.Location) ([]time.Time, error) {
	type hourMinute struct{ hour, minute int }
	times := make([]hourMinute, 0, len(DemoSlotTimes))
	for _, hhmm := range DemoSlotTimes {
		clock, err := time.Parse("15:04", hhmm)
		if err != nil {
			return nil, fmt.Errorf("parse slot time %q: %w", hhmm, err)
		}
		times = append(times, hourMinute{clock.Hour(), clock.Minute()})
	}

	local := now.In(loc)
	slots := make([]time.Time, 0, days*len(times))
	for day := 1; day <= days; day++ {
		for _, hm := range times {
			slots = append(slots, time.Date(local.Year(), local.Month(), local.Day()+day, hm.hour, hm.minute, 0, 0, loc))
		}
	}
	return slots, nil
}
