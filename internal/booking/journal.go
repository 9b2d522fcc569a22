package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	EventSlotsConfigured        = "SLOTS_CONFIGURED"
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	EventParticipantRegistered  = "PARTICIPANT_REGISTERED"
	EventParticipantActivated   = "PARTICIPANT_ACTIVATED"
	EventParticipantDeactivated = "PARTICIPANT_DEACTIVATED"
)

// EventLog is one audit record. Subject is the appointment, participant or
// clinician id the event is about; Payload is JSON.
type EventLog struct {
	ID        uuid.UUID
	EventType string
	Subject   string
	Payload   []byte
	CreatedAt time.Time
}

// Journal receives audit events. Engine state is never rebuilt from it.
type Journal interface {
	Record(ctx context.Context, ev EventLog) error
}

// LogJournal writes events to the structured log.
type LogJournal struct {
	log zerolog.Logger
}

func NewLogJournal(log zerolog.Logger) *LogJournal {
	return &LogJournal{log: log.With().Str("component", "journal").Logger()}
}

func (j *LogJournal) Record(_ context.Context, ev EventLog) error {
	j.log.Info().
		Str("event_id", ev.ID.String()).
		Str("event_type", ev.EventType).
		Str("subject", ev.Subject).
		RawJSON("payload", payloadOrEmpty(ev.Payload)).
		Time("created_at", ev.CreatedAt).
		Msg("event")
	return nil
}

func payloadOrEmpty(p []byte) []byte {
	if len(p) == 0 {
		return []byte("{}")
	}
	return p
}

// MultiJournal records to every journal and joins their errors.
type MultiJournal []Journal

func (m MultiJournal) Record(ctx context.Context, ev EventLog) error {
	var errs []error
	for _, j := range m {
		if err := j.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
