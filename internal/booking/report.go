package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/angeldev7/clinic-scheduling/internal/appointment"
)

// Report is the administrative summary of the clinic.
type Report struct {
	GeneratedAt       time.Time                             `json:"generated_at"`
	TotalAppointments int                                   `json:"total_appointments"`
	ByStatus          map[appointment.AppointmentStatus]int `json:"by_status"`
	TotalParticipants int                                   `json:"total_participants"`
	ActiveClinicians  int                                   `json:"active_clinicians"`
	// Efficiency is the confirmed share of all appointments, in percent.
	Efficiency float64 `json:"efficiency"`
}

func (s *Service) Report(_ context.Context, actorID string) (Report, error) {
	actor, err := s.registry.Get(actorID)
	if err != nil {
		return Report{}, err
	}
	if !actor.CanAdminister() {
		return Report{}, fmt.Errorf("%w: %s cannot read reports", ErrNotPermitted, actor.ID())
	}

	r := Report{
		GeneratedAt: s.clock.Now(),
		ByStatus:    make(map[appointment.AppointmentStatus]int, len(appointment.Statuses)),
	}
	for _, st := range appointment.Statuses {
		r.ByStatus[st] = 0
	}

	for _, a := range s.engine.Appointments() {
		r.TotalAppointments++
		r.ByStatus[a.Status()]++
	}

	participants := s.registry.List()
	r.TotalParticipants = len(participants)
	for _, p := range participants {
		if p.Role() == appointment.RoleClinician && p.Active() {
			r.ActiveClinicians++
		}
	}

	if r.TotalAppointments > 0 {
		r.Efficiency = float64(r.ByStatus[appointment.StatusConfirmed]) / float64(r.TotalAppointments) * 100
	}
	return r, nil
}
