package booking

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/angeldev7/clinic-scheduling/internal/appointment"
	"github.com/angeldev7/clinic-scheduling/internal/availability"
)

var testNow = time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)

func at(day, hour, min int) time.Time {
	return time.Date(2026, 3, day, hour, min, 0, 0, time.UTC)
}

type recordingJournal struct {
	mu     sync.Mutex
	events []EventLog
	err    error
}

func (j *recordingJournal) Record(_ context.Context, ev EventLog) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return j.err
}

func (j *recordingJournal) types() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.events))
	for i, ev := range j.events {
		out[i] = ev.EventType
	}
	return out
}

func (j *recordingJournal) count(eventType string) int {
	n := 0
	for _, t := range j.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

type fixture struct {
	svc     *Service
	clock   *appointment.FixedClock
	journal *recordingJournal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := appointment.NewFixedClock(testNow)
	journal := &recordingJournal{}
	svc := NewService(availability.NewEngine(clock), NewRegistry(), clock, journal, zerolog.Nop())

	for _, d := range demoParticipants {
		p, err := appointment.NewParticipant(d.id, d.given, d.family, d.email, d.role)
		if err != nil {
			t.Fatalf("participant %s: %v", d.id, err)
		}
		if err := svc.RegisterParticipant(context.Background(), p); err != nil {
			t.Fatalf("register %s: %v", d.id, err)
		}
	}
	if err := svc.ConfigureSchedule(context.Background(), "DOC-001", "DOC-001", []time.Time{at(11, 9, 0), at(11, 9, 30), at(11, 10, 0)}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	return &fixture{svc: svc, clock: clock, journal: journal}
}

func (f *fixture) book(t *testing.T, when time.Time, confirm bool) *appointment.Appointment {
	t.Helper()
	a, err := f.svc.Book(context.Background(), BookRequest{
		PatientID:   "PAC-001",
		ClinicianID: "DOC-001",
		When:        when,
		Category:    "general-consultation",
		Confirm:     confirm,
	})
	if err != nil {
		t.Fatalf("Book(%s): %v", when.Format("15:04"), err)
	}
	return a
}

func TestRegisterParticipant_Duplicate(t *testing.T) {
	f := newFixture(t)

	p, _ := appointment.NewParticipant("PAC-001", "Otro", "Paciente", "otro@email.com", appointment.RolePatient)
	if err := f.svc.RegisterParticipant(context.Background(), p); !errors.Is(err, ErrParticipantExists) {
		t.Fatalf("expected ErrParticipantExists, got %v", err)
	}
	if err := f.svc.RegisterParticipant(context.Background(), nil); !errors.Is(err, appointment.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if got := len(f.svc.Participants()); got != len(demoParticipants) {
		t.Fatalf("expected %d participants, got %d", len(demoParticipants), got)
	}
}

func TestConfigureSchedule_Permissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slots := []time.Time{at(12, 9, 0)}

	cases := []struct {
		name      string
		actor     string
		clinician string
		wantErr   error
	}{
		{"patient cannot manage", "PAC-001", "DOC-001", ErrNotPermitted},
		{"clinician cannot manage other", "DOC-001", "DOC-002", ErrNotPermitted},
		{"unknown actor", "NOPE", "DOC-001", ErrParticipantNotFound},
		{"target is not a clinician", "ADM-001", "PAC-001", appointment.ErrInvalidArgument},
		{"admin manages anyone", "ADM-001", "DOC-002", nil},
		{"clinician manages self", "DOC-002", "DOC-002", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.svc.ConfigureSchedule(ctx, tc.actor, tc.clinician, slots)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	deactivated := newFixture(t)
	if _, err := deactivated.svc.DeactivateParticipant(ctx, "DOC-002"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := deactivated.svc.ConfigureSchedule(ctx, "DOC-002", "DOC-002", slots); !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("inactive clinician: expected ErrNotPermitted, got %v", err)
	}
}

func TestBook_CreatesPendingWithSequentialIDs(t *testing.T) {
	f := newFixture(t)

	a := f.book(t, at(11, 9, 0), false)
	b := f.book(t, at(11, 10, 0), false)

	if a.ID() != "CIT-001" || b.ID() != "CIT-002" {
		t.Fatalf("unexpected ids %s, %s", a.ID(), b.ID())
	}
	if a.Status() != appointment.StatusPending {
		t.Fatalf("expected pending, got %s", a.Status())
	}
	if a.Reason() != "general-consultation" {
		t.Fatalf("expected reason to default to the category, got %q", a.Reason())
	}
	if f.journal.count(EventAppointmentBooked) != 2 {
		t.Fatalf("expected two booked events, got %v", f.journal.types())
	}
}

func TestBook_ConfirmImmediately(t *testing.T) {
	f := newFixture(t)

	a := f.book(t, at(11, 9, 0), true)
	if a.Status() != appointment.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", a.Status())
	}
	if f.journal.count(EventAppointmentConfirmed) != 1 {
		t.Fatalf("expected confirmed event, got %v", f.journal.types())
	}
}

func TestBook_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, at(11, 9, 0), false)

	cases := []struct {
		name    string
		req     BookRequest
		wantErr error
	}{
		{"slot taken", BookRequest{PatientID: "PAC-002", ClinicianID: "DOC-001", When: at(11, 9, 0), Category: "exams"}, ErrSlotUnavailable},
		{"conflict window", BookRequest{PatientID: "PAC-002", ClinicianID: "DOC-001", When: at(11, 9, 15), Category: "exams"}, ErrSlotUnavailable},
		{"clinician cannot book", BookRequest{PatientID: "DOC-002", ClinicianID: "DOC-001", When: at(11, 10, 0), Category: "exams"}, ErrNotPermitted},
		{"unknown patient", BookRequest{PatientID: "PAC-404", ClinicianID: "DOC-001", When: at(11, 10, 0), Category: "exams"}, ErrParticipantNotFound},
		{"target not clinician", BookRequest{PatientID: "PAC-002", ClinicianID: "ADM-001", When: at(11, 10, 0), Category: "exams"}, appointment.ErrInvalidArgument},
		{"past time", BookRequest{PatientID: "PAC-002", ClinicianID: "DOC-001", When: at(9, 10, 0), Category: "exams"}, appointment.ErrInvalidArgument},
		{"bad category", BookRequest{PatientID: "PAC-002", ClinicianID: "DOC-001", When: at(11, 10, 0), Category: "dental"}, appointment.ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Book(ctx, tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestBook_InactivePatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.DeactivateParticipant(ctx, "PAC-001"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := f.svc.Book(ctx, BookRequest{PatientID: "PAC-001", ClinicianID: "DOC-001", When: at(11, 9, 0), Category: "exams"})
	if !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("expected ErrNotPermitted, got %v", err)
	}

	if _, err := f.svc.ActivateParticipant(ctx, "PAC-001"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	f.book(t, at(11, 9, 0), false)
}

func TestDeactivateParticipant_Administrator(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.DeactivateParticipant(context.Background(), "ADM-001"); !errors.Is(err, appointment.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestLifecycleThroughService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, at(11, 9, 0), false)

	if _, err := f.svc.Complete(ctx, a.ID()); !errors.Is(err, appointment.ErrInvalidState) {
		t.Fatalf("complete pending: expected ErrInvalidState, got %v", err)
	}
	if _, err := f.svc.Confirm(ctx, a.ID()); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.Complete(ctx, a.ID()); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, a.ID()); !errors.Is(err, appointment.ErrInvalidState) {
		t.Fatalf("cancel completed: expected ErrInvalidState, got %v", err)
	}
	if _, err := f.svc.Confirm(ctx, "CIT-999"); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestCancel_FreesSlotAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, at(11, 9, 0), true)

	got, _ := f.svc.Availability(ctx, "DOC-001", at(11, 0, 0))
	if len(got) != 2 {
		t.Fatalf("expected two free slots after booking, got %v", got)
	}

	if _, err := f.svc.Cancel(ctx, a.ID()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, a.ID()); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if n := f.journal.count(EventAppointmentCancelled); n != 1 {
		t.Fatalf("expected a single cancelled event, got %d", n)
	}

	got, _ = f.svc.Availability(ctx, "DOC-001", at(11, 0, 0))
	if len(got) != 3 {
		t.Fatalf("expected slot to be free again, got %v", got)
	}

	all, _ := f.svc.ClinicianAppointments("DOC-001", false)
	active, _ := f.svc.ClinicianAppointments("DOC-001", true)
	if len(all) != 1 || len(active) != 0 {
		t.Fatalf("unexpected lists all=%d active=%d", len(all), len(active))
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.book(t, at(11, 9, 0), false)

	stats, err := f.svc.Stats("DOC-001")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats != (availability.Stats{Configured: 3, Occupied: 1, Free: 2}) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, at(11, 9, 0), true)
	b := f.book(t, at(11, 10, 0), false)
	if _, err := f.svc.Cancel(ctx, b.ID()); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := f.svc.Report(ctx, "DOC-001"); !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("expected ErrNotPermitted for clinician, got %v", err)
	}

	r, err := f.svc.Report(ctx, "ADM-001")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if r.TotalAppointments != 2 || r.ByStatus[appointment.StatusConfirmed] != 1 || r.ByStatus[appointment.StatusCancelled] != 1 {
		t.Fatalf("unexpected counts %+v", r)
	}
	if r.ByStatus[appointment.StatusCompleted] != 0 {
		t.Fatalf("expected zero-filled statuses, got %+v", r.ByStatus)
	}
	if r.TotalParticipants != 5 || r.ActiveClinicians != 2 {
		t.Fatalf("unexpected participant counts %+v", r)
	}
	if r.Efficiency != 50 {
		t.Fatalf("expected 50%% efficiency, got %v", r.Efficiency)
	}
	if !r.GeneratedAt.Equal(testNow) {
		t.Fatalf("expected report time from clock, got %s", r.GeneratedAt)
	}
}

func TestLogEvent_JournalFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.journal.err = errors.New("journal down")

	a := f.book(t, at(11, 9, 0), false)
	if a == nil {
		t.Fatalf("expected booking to succeed despite journal failure")
	}
}

func TestLogEvent_Payload(t *testing.T) {
	f := newFixture(t)
	f.book(t, at(11, 9, 0), false)

	var booked *EventLog
	for i := range f.journal.events {
		if f.journal.events[i].EventType == EventAppointmentBooked {
			booked = &f.journal.events[i]
		}
	}
	if booked == nil {
		t.Fatalf("no booked event in %v", f.journal.types())
	}
	if booked.Subject != "CIT-001" || !booked.CreatedAt.Equal(testNow) {
		t.Fatalf("unexpected event %+v", booked)
	}

	var payload map[string]any
	if err := json.Unmarshal(booked.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["clinician_id"] != "DOC-001" || payload["category"] != "general-consultation" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestSeedDemo(t *testing.T) {
	clock := appointment.NewFixedClock(testNow)
	svc := NewService(availability.NewEngine(clock), NewRegistry(), clock, &recordingJournal{}, zerolog.Nop())

	err := SeedDemo(context.Background(), svc, DemoOptions{Days: 2, ExtraPatients: 4, Faker: gofakeit.New(42)})
	if err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}

	if n := len(svc.Participants()); n < len(demoParticipants) {
		t.Fatalf("expected at least %d participants, got %d", len(demoParticipants), n)
	}
	for _, id := range []string{"DOC-001", "DOC-002"} {
		stats, err := svc.Stats(id)
		if err != nil {
			t.Fatalf("stats %s: %v", id, err)
		}
		if stats.Configured != 2*len(DemoSlotTimes) {
			t.Fatalf("%s: expected %d slots, got %d", id, 2*len(DemoSlotTimes), stats.Configured)
		}
	}

	got, err := svc.Availability(context.Background(), "DOC-001", at(11, 0, 0))
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(got) != len(DemoSlotTimes) || got[0].Hour() != 9 || got[len(got)-1].Hour() != 16 {
		t.Fatalf("unexpected first-day availability %v", got)
	}
}

func TestDemoSlots_StartTomorrowInLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	// 02:00 UTC on the 11th is still the 10th at UTC-5.
	now := time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC)

	slots, err := DemoSlots(now, 1, loc)
	if err != nil {
		t.Fatalf("DemoSlots: %v", err)
	}
	if len(slots) != len(DemoSlotTimes) {
		t.Fatalf("expected %d slots, got %d", len(DemoSlotTimes), len(slots))
	}
	if slots[0].Day() != 11 || slots[0].Hour() != 9 || slots[0].Location() != loc {
		t.Fatalf("unexpected first slot %s", slots[0])
	}
}

func TestDemoSlots_WallClockAcrossDaysAndDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Clocks move forward on 2026-03-08 in New York.
	now := time.Date(2026, 3, 6, 12, 0, 0, 0, loc)

	slots, err := DemoSlots(now, 3, loc)
	if err != nil {
		t.Fatalf("DemoSlots: %v", err)
	}
	if len(slots) != 3*len(DemoSlotTimes) {
		t.Fatalf("expected %d slots, got %d", 3*len(DemoSlotTimes), len(slots))
	}
	for i, s := range slots {
		want := DemoSlotTimes[i%len(DemoSlotTimes)]
		if got := s.Format("15:04"); got != want {
			t.Fatalf("slot %d: expected wall clock %s, got %s", i, want, got)
		}
		if day := 7 + i/len(DemoSlotTimes); s.Day() != day {
			t.Fatalf("slot %d: expected day %d, got %d", i, day, s.Day())
		}
	}
}
