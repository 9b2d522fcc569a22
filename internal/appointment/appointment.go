package appointment

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []AppointmentStatus{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}

type Category string

const (
	CategoryGeneralConsultation Category = "general-consultation"
	CategorySpecialist          Category = "specialist"
	CategoryExams               Category = "exams"
	CategoryFollowUp            Category = "follow-up"
)

var categories = map[Category]struct{}{
	CategoryGeneralConsultation: {},
	CategorySpecialist:          {},
	CategoryExams:               {},
	CategoryFollowUp:            {},
}

// ParseCategory matches s against the fixed category set, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return "", fmt.Errorf("%w: category is required", ErrInvalidArgument)
	}
	if _, ok := categories[c]; !ok {
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidArgument, s)
	}
	return c, nil
}

func (c Category) String() string { return string(c) }

// ConflictWindow is the minimum distance between two bookings of one clinician.
const ConflictWindow = 30 * time.Minute

// Appointment is one scheduled visit. Identity fields are fixed at creation;
// status only moves through Confirm, Cancel and Complete.
type Appointment struct {
	id          string
	patientID   string
	clinicianID string
	scheduledAt time.Time
	category    Category

	mu     sync.RWMutex
	reason string
	status AppointmentStatus
}

// New validates its arguments against clock and returns a pending appointment.
func New(clock Clock, id, patientID, clinicianID string, when time.Time, category string) (*Appointment, error) {
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}
	patientID, err = requireID("patient id", patientID)
	if err != nil {
		return nil, err
	}
	clinicianID, err = requireID("clinician id", clinicianID)
	if err != nil {
		return nil, err
	}
	if when.IsZero() {
		return nil, fmt.Errorf("%w: scheduled time is required", ErrInvalidArgument)
	}
	if !when.After(clock.Now()) {
		return nil, fmt.Errorf("%w: scheduled time %s is not in the future", ErrInvalidArgument, when.Format(time.RFC3339))
	}
	cat, err := ParseCategory(category)
	if err != nil {
		return nil, err
	}

	return &Appointment{
		id:          id,
		patientID:   patientID,
		clinicianID: clinicianID,
		scheduledAt: when,
		category:    cat,
		status:      StatusPending,
	}, nil
}

func requireID(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidArgument, field)
	}
	return v, nil
}

func (a *Appointment) ID() string             { return a.id }
func (a *Appointment) PatientID() string      { return a.patientID }
func (a *Appointment) ClinicianID() string    { return a.clinicianID }
func (a *Appointment) ScheduledAt() time.Time { return a.scheduledAt }
func (a *Appointment) Category() Category     { return a.category }

func (a *Appointment) Reason() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.reason
}

func (a *Appointment) SetReason(reason string) {
	a.mu.Lock()
	a.reason = strings.TrimSpace(reason)
	a.mu.Unlock()
}

func (a *Appointment) Status() AppointmentStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// Active reports whether the appointment still holds its time.
func (a *Appointment) Active() bool {
	return a.Status() != StatusCancelled
}

// Confirm moves a pending or confirmed appointment to confirmed.
func (a *Appointment) Confirm() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.status {
	case StatusCancelled:
		return fmt.Errorf("%w: cannot confirm cancelled appointment %s", ErrInvalidState, a.id)
	case StatusCompleted:
		return fmt.Errorf("%w: cannot confirm completed appointment %s", ErrInvalidState, a.id)
	}
	a.status = StatusConfirmed
	return nil
}

// Cancel marks the appointment cancelled. Cancelling twice is a no-op.
func (a *Appointment) Cancel() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status == StatusCompleted {
		return fmt.Errorf("%w: cannot cancel completed appointment %s", ErrInvalidState, a.id)
	}
	a.status = StatusCancelled
	return nil
}

// Complete closes a confirmed appointment.
func (a *Appointment) Complete() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != StatusConfirmed {
		return fmt.Errorf("%w: only confirmed appointments can be completed, %s is %s", ErrInvalidState, a.id, a.status)
	}
	a.status = StatusCompleted
	return nil
}

// IsOnDate compares calendar dates in date's location.
func (a *Appointment) IsOnDate(date time.Time) bool {
	return SameDate(a.scheduledAt, date)
}

// ConflictsWith reports whether other lies strictly inside the conflict
// window around the scheduled time.
func (a *Appointment) ConflictsWith(other time.Time) bool {
	return other.After(a.scheduledAt.Add(-ConflictWindow)) && other.Before(a.scheduledAt.Add(ConflictWindow))
}

func (a *Appointment) Equal(other *Appointment) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id == other.id
}

func (a *Appointment) String() string {
	return fmt.Sprintf("Appointment{id=%s patient=%s clinician=%s at=%s category=%s status=%s}",
		a.id, a.patientID, a.clinicianID, a.scheduledAt.Format(time.RFC3339), a.category, a.Status())
}

// SameDate reports whether t falls on date's calendar day, read in date's location.
func SameDate(t, date time.Time) bool {
	y1, m1, d1 := t.In(date.Location()).Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
