package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/angeldev7/clinic-scheduling/internal/appointment"
	"github.com/angeldev7/clinic-scheduling/internal/availability"
)

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantExists   = errors.New("participant already registered")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotUnavailable     = errors.New("slot is not available")
	ErrNotPermitted        = errors.New("operation not permitted")
)

type Service struct {
	engine   *availability.Engine
	registry *Registry
	clock    appointment.Clock
	journal  Journal
	log      zerolog.Logger

	seq atomic.Int64
}

func NewService(engine *availability.Engine, registry *Registry, clock appointment.Clock, journal Journal, log zerolog.Logger) *Service {
	if clock == nil {
		clock = appointment.SystemClock{}
	}
	if journal == nil {
		journal = NewLogJournal(log)
	}
	return &Service{
		engine:   engine,
		registry: registry,
		clock:    clock,
		journal:  journal,
		log:      log.With().Str("component", "booking").Logger(),
	}
}

// Participants

func (s *Service) RegisterParticipant(ctx context.Context, p *appointment.Participant) error {
	if err := s.registry.Add(p); err != nil {
		return err
	}
	s.logEvent(ctx, p.ID(), EventParticipantRegistered, map[string]any{
		"role": p.Role(),
	})
	return nil
}

func (s *Service) Participant(id string) (*appointment.Participant, error) {
	return s.registry.Get(id)
}

func (s *Service) Participants() []*appointment.Participant {
	return s.registry.List()
}

func (s *Service) ActivateParticipant(ctx context.Context, id string) (*appointment.Participant, error) {
	p, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	p.Activate()
	s.logEvent(ctx, p.ID(), EventParticipantActivated, map[string]any{})
	return p, nil
}

func (s *Service) DeactivateParticipant(ctx context.Context, id string) (*appointment.Participant, error) {
	p, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if err := p.Deactivate(); err != nil {
		return nil, err
	}
	s.logEvent(ctx, p.ID(), EventParticipantDeactivated, map[string]any{})
	return p, nil
}

// Schedules

// ConfigureSchedule replaces a clinician's slots on behalf of actorID.
// Clinicians may only manage their own schedule; administrators manage any.
func (s *Service) ConfigureSchedule(ctx context.Context, actorID, clinicianID string, slots []time.Time) error {
	actor, err := s.registry.Get(actorID)
	if err != nil {
		return err
	}
	if !actor.CanManageSchedules() {
		return fmt.Errorf("%w: %s cannot manage schedules", ErrNotPermitted, actor.ID())
	}
	clinician, err := s.clinician(clinicianID)
	if err != nil {
		return err
	}
	if actor.Role() == appointment.RoleClinician && !actor.Equal(clinician) {
		return fmt.Errorf("%w: %s cannot manage the schedule of %s", ErrNotPermitted, actor.ID(), clinician.ID())
	}

	if err := s.engine.ConfigureSlots(clinician.ID(), slots); err != nil {
		return err
	}

	s.logEvent(ctx, clinician.ID(), EventSlotsConfigured, map[string]any{
		"actor_id": actor.ID(),
		"slots":    len(slots),
	})
	return nil
}

func (s *Service) clinician(id string) (*appointment.Participant, error) {
	p, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if p.Role() != appointment.RoleClinician {
		return nil, fmt.Errorf("%w: %s is not a clinician", appointment.ErrInvalidArgument, p.ID())
	}
	return p, nil
}

func (s *Service) Availability(_ context.Context, clinicianID string, date time.Time) ([]time.Time, error) {
	return s.engine.QueryAvailability(clinicianID, date)
}

func (s *Service) Stats(clinicianID string) (availability.Stats, error) {
	return s.engine.AvailabilityStats(clinicianID)
}

func (s *Service) ClinicianAppointments(clinicianID string, activeOnly bool) ([]*appointment.Appointment, error) {
	if activeOnly {
		return s.engine.ListActiveAppointments(clinicianID)
	}
	return s.engine.ListAppointments(clinicianID)
}

// Appointments

type BookRequest struct {
	PatientID   string
	ClinicianID string
	When        time.Time
	Category    string
	Reason      string
	// Confirm confirms the appointment right after it is booked.
	Confirm bool
}

// Book creates an appointment for the request and records it with the engine.
func (s *Service) Book(ctx context.Context, req BookRequest) (*appointment.Appointment, error) {
	patient, err := s.registry.Get(req.PatientID)
	if err != nil {
		return nil, err
	}
	if !patient.CanBook() {
		return nil, fmt.Errorf("%w: %s cannot book appointments", ErrNotPermitted, patient.ID())
	}
	clinician, err := s.clinician(req.ClinicianID)
	if err != nil {
		return nil, err
	}
	if !clinician.Active() {
		return nil, fmt.Errorf("%w: clinician %s is inactive", ErrNotPermitted, clinician.ID())
	}

	id := s.nextID()
	appt, err := appointment.New(s.clock, id, patient.ID(), clinician.ID(), req.When, req.Category)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = appt.Category().String()
	}
	appt.SetReason(reason)

	ok, err := s.engine.BookAppointment(appt)
	if err != nil {
		return nil, fmt.Errorf("book appointment: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s at %s", ErrSlotUnavailable, clinician.ID(), req.When.Format(time.RFC3339))
	}

	s.logEvent(ctx, appt.ID(), EventAppointmentBooked, map[string]any{
		"patient_id":   appt.PatientID(),
		"clinician_id": appt.ClinicianID(),
		"scheduled_at": appt.ScheduledAt(),
		"category":     appt.Category(),
	})

	if req.Confirm {
		if err := appt.Confirm(); err != nil {
			return nil, err
		}
		s.logEvent(ctx, appt.ID(), EventAppointmentConfirmed, map[string]any{})
	}

	return appt, nil
}

func (s *Service) nextID() string {
	return fmt.Sprintf("CIT-%03d", s.seq.Add(1))
}

func (s *Service) Appointment(id string) (*appointment.Appointment, error) {
	a, ok := s.engine.FindAppointment(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAppointmentNotFound, id)
	}
	return a, nil
}

func (s *Service) Confirm(ctx context.Context, id string) (*appointment.Appointment, error) {
	a, err := s.Appointment(id)
	if err != nil {
		return nil, err
	}
	if err := a.Confirm(); err != nil {
		return nil, err
	}
	s.logEvent(ctx, a.ID(), EventAppointmentConfirmed, map[string]any{})
	return a, nil
}

// Cancel cancels the appointment. Cancelling an already cancelled
// appointment succeeds without recording a second event.
func (s *Service) Cancel(ctx context.Context, id string) (*appointment.Appointment, error) {
	a, err := s.Appointment(id)
	if err != nil {
		return nil, err
	}
	cancelled, err := s.engine.CancelAppointment(a.ID())
	if err != nil {
		return nil, err
	}
	if cancelled {
		s.logEvent(ctx, a.ID(), EventAppointmentCancelled, map[string]any{
			"clinician_id": a.ClinicianID(),
			"scheduled_at": a.ScheduledAt(),
		})
	}
	return a, nil
}

func (s *Service) Complete(ctx context.Context, id string) (*appointment.Appointment, error) {
	a, err := s.Appointment(id)
	if err != nil {
		return nil, err
	}
	if err := a.Complete(); err != nil {
		return nil, err
	}
	s.logEvent(ctx, a.ID(), EventAppointmentCompleted, map[string]any{})
	return a, nil
}

func (s *Service) logEvent(ctx context.Context, subject, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	ev := EventLog{
		ID:        uuid.New(),
		EventType: eventType,
		Subject:   subject,
		Payload:   data,
		CreatedAt: s.clock.Now(),
	}

	if err := s.journal.Record(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Str("subject", subject).Msg("failed to record event")
	}
}
