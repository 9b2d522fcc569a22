package api

import (
	"time"

	"github.com/angeldev7/clinic-scheduling/internal/appointment"
)

type RegisterParticipantRequest struct {
	ID         string `json:"id"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Role       string `json:"role"`
}

type ParticipantResponse struct {
	ID              string `json:"id"`
	GivenName       string `json:"given_name"`
	FamilyName      string `json:"family_name"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone,omitempty"`
	Role            string `json:"role"`
	RoleDescription string `json:"role_description"`
	Active          bool   `json:"active"`
}

type ConfigureSlotsRequest struct {
	ActorID string      `json:"actor_id"`
	Slots   []time.Time `json:"slots"`
}

type AvailabilityResponse struct {
	ClinicianID string      `json:"clinician_id"`
	Date        string      `json:"date"`
	Slots       []time.Time `json:"slots"`
}

type CreateAppointmentRequest struct {
	PatientID   string    `json:"patient_id"`
	ClinicianID string    `json:"clinician_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Category    string    `json:"category"`
	Reason      string    `json:"reason,omitempty"`
	Confirm     bool      `json:"confirm,omitempty"`
}

type AppointmentResponse struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	ClinicianID string    `json:"clinician_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Category    string    `json:"category"`
	Reason      string    `json:"reason"`
	Status      string    `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toParticipantResponse(p *appointment.Participant) ParticipantResponse {
	return ParticipantResponse{
		ID:              p.ID(),
		GivenName:       p.GivenName(),
		FamilyName:      p.FamilyName(),
		FullName:        p.FullName(),
		Email:           p.Email(),
		Phone:           p.Phone(),
		Role:            p.Role().String(),
		RoleDescription: p.Role().Description(),
		Active:          p.Active(),
	}
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID(),
		PatientID:   a.PatientID(),
		ClinicianID: a.ClinicianID(),
		ScheduledAt: a.ScheduledAt(),
		Category:    a.Category().String(),
		Reason:      a.Reason(),
		Status:      string(a.Status()),
	}
}

func toAppointmentResponses(list []*appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}
