package appointment

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func tomorrowAt(hour, min int) time.Time {
	return time.Date(2026, 3, 11, hour, min, 0, 0, time.UTC)
}

func mustNew(t *testing.T, id string, when time.Time) *Appointment {
	t.Helper()
	a, err := New(NewFixedClock(testNow), id, "PAC-001", "DOC-001", when, "general-consultation")
	if err != nil {
		t.Fatalf("New(%s): %v", id, err)
	}
	return a
}

func TestNew_OK(t *testing.T) {
	a, err := New(NewFixedClock(testNow), "  CIT-001 ", "PAC-001", "DOC-001", tomorrowAt(9, 0), "  Specialist ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a.ID() != "CIT-001" {
		t.Fatalf("expected trimmed id, got %q", a.ID())
	}
	if a.Category() != CategorySpecialist {
		t.Fatalf("expected category %q, got %q", CategorySpecialist, a.Category())
	}
	if a.Status() != StatusPending {
		t.Fatalf("expected pending, got %s", a.Status())
	}
}

func TestNew_InvalidArguments(t *testing.T) {
	clock := NewFixedClock(testNow)
	future := tomorrowAt(9, 0)

	cases := []struct {
		name        string
		id          string
		patientID   string
		clinicianID string
		when        time.Time
		category    string
	}{
		{"empty id", "", "PAC-001", "DOC-001", future, "exams"},
		{"blank patient", "CIT-1", "   ", "DOC-001", future, "exams"},
		{"empty clinician", "CIT-1", "PAC-001", "", future, "exams"},
		{"zero time", "CIT-1", "PAC-001", "DOC-001", time.Time{}, "exams"},
		{"past time", "CIT-1", "PAC-001", "DOC-001", testNow.Add(-time.Hour), "exams"},
		{"now is not future", "CIT-1", "PAC-001", "DOC-001", testNow, "exams"},
		{"unknown category", "CIT-1", "PAC-001", "DOC-001", future, "surgery"},
		{"empty category", "CIT-1", "PAC-001", "DOC-001", future, " "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(clock, tc.id, tc.patientID, tc.clinicianID, tc.when, tc.category)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	for _, in := range []string{"general-consultation", "SPECIALIST", " Exams", "Follow-Up "} {
		if _, err := ParseCategory(in); err != nil {
			t.Fatalf("ParseCategory(%q): %v", in, err)
		}
	}
}

func TestLifecycle_ConfirmComplete(t *testing.T) {
	a := mustNew(t, "CIT-001", tomorrowAt(9, 0))

	if err := a.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := a.Confirm(); err != nil {
		t.Fatalf("re-confirm should be allowed: %v", err)
	}
	if err := a.Complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if a.Status() != StatusCompleted {
		t.Fatalf("expected completed, got %s", a.Status())
	}
	if err := a.Cancel(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState cancelling completed, got %v", err)
	}
	if err := a.Confirm(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState confirming completed, got %v", err)
	}
}

func TestComplete_PendingFails(t *testing.T) {
	a := mustNew(t, "CIT-001", tomorrowAt(9, 0))
	if err := a.Complete(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if a.Status() != StatusPending {
		t.Fatalf("status changed to %s", a.Status())
	}
}

func TestCancel_ThenConfirmFails(t *testing.T) {
	a := mustNew(t, "CIT-001", tomorrowAt(9, 0))
	if err := a.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := a.Cancel(); err != nil {
		t.Fatalf("second cancel should be a no-op, got %v", err)
	}
	if err := a.Confirm(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if a.Active() {
		t.Fatalf("cancelled appointment reported active")
	}
}

func TestIsOnDate(t *testing.T) {
	a := mustNew(t, "CIT-001", tomorrowAt(23, 30))

	if !a.IsOnDate(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected same date")
	}
	if a.IsOnDate(time.Date(2026, 3, 12, 23, 30, 0, 0, time.UTC)) {
		t.Fatalf("expected different date")
	}

	// 23:30 UTC is already the next day two hours east.
	east := time.FixedZone("UTC+2", 2*60*60)
	if !a.IsOnDate(time.Date(2026, 3, 12, 10, 0, 0, 0, east)) {
		t.Fatalf("expected date to be read in the argument's location")
	}
}

func TestConflictsWith(t *testing.T) {
	a := mustNew(t, "CIT-001", tomorrowAt(9, 0))

	cases := []struct {
		other time.Time
		want  bool
	}{
		{tomorrowAt(9, 0), true},
		{tomorrowAt(9, 15), true},
		{tomorrowAt(8, 31), true},
		{tomorrowAt(9, 29).Add(59 * time.Second), true},
		{tomorrowAt(9, 30), false},
		{tomorrowAt(8, 30), false},
		{tomorrowAt(11, 0), false},
		{time.Date(2400, 1, 1, 9, 0, 0, 0, time.UTC), false},
		{time.Date(1700, 1, 1, 9, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		if got := a.ConflictsWith(tc.other); got != tc.want {
			t.Fatalf("ConflictsWith(%s) = %v, want %v", tc.other.Format(time.RFC3339), got, tc.want)
		}
	}
}

func TestEqual_ByIDOnly(t *testing.T) {
	a := mustNew(t, "CIT-001", tomorrowAt(9, 0))
	b := mustNew(t, "CIT-001", tomorrowAt(15, 0))
	c := mustNew(t, "CIT-002", tomorrowAt(9, 0))
	_ = b.Confirm()

	if !a.Equal(b) {
		t.Fatalf("expected equal ids to compare equal")
	}
	if a.Equal(c) {
		t.Fatalf("expected different ids to differ")
	}
	if a.Equal(nil) {
		t.Fatalf("expected nil to differ")
	}
}

func TestReasonAndString(t *testing.T) {
	a := mustNew(t, "CIT-001", tomorrowAt(9, 0))
	a.SetReason("  annual checkup ")
	if a.Reason() != "annual checkup" {
		t.Fatalf("unexpected reason %q", a.Reason())
	}
	if !strings.Contains(a.String(), "CIT-001") {
		t.Fatalf("String() missing id: %s", a.String())
	}
}
