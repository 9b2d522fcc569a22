package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angeldev7/clinic-scheduling/internal/appointment"
	"github.com/angeldev7/clinic-scheduling/internal/booking"
)

const dateLayout = "2006-01-02"

type handlers struct {
	svc *booking.Service
	loc *time.Location
}

// Participants

func (h *handlers) registerParticipant(w http.ResponseWriter, r *http.Request) {
	var req RegisterParticipantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := appointment.ParseRole(req.Role)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	p, err := appointment.NewParticipant(req.ID, req.GivenName, req.FamilyName, req.Email, role)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if req.Phone != "" {
		p.SetPhone(req.Phone)
	}

	if err := h.svc.RegisterParticipant(r.Context(), p); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toParticipantResponse(p))
}

func (h *handlers) listParticipants(w http.ResponseWriter, r *http.Request) {
	list := h.svc.Participants()
	out := make([]ParticipantResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toParticipantResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getParticipant(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Participant(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toParticipantResponse(p))
}

func (h *handlers) activateParticipant(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.ActivateParticipant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toParticipantResponse(p))
}

func (h *handlers) deactivateParticipant(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.DeactivateParticipant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toParticipantResponse(p))
}

// Clinicians

func (h *handlers) configureSlots(w http.ResponseWriter, r *http.Request) {
	var req ConfigureSlotsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	clinicianID := chi.URLParam(r, "id")
	if err := h.svc.ConfigureSchedule(r.Context(), req.ActorID, clinicianID, req.Slots); err != nil {
		handleServiceError(w, err)
		return
	}

	stats, err := h.svc.Stats(clinicianID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handlers) availability(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required (YYYY-MM-DD)")
		return
	}
	date, err := time.ParseInLocation(dateLayout, raw, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted as YYYY-MM-DD")
		return
	}

	clinicianID := chi.URLParam(r, "id")
	slots, err := h.svc.Availability(r.Context(), clinicianID, date)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{
		ClinicianID: clinicianID,
		Date:        date.Format(dateLayout),
		Slots:       slots,
	})
}

func (h *handlers) clinicianAppointments(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_active", "active must be a boolean")
			return
		}
		activeOnly = v
	}

	list, err := h.svc.ClinicianAppointments(chi.URLParam(r, "id"), activeOnly)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponses(list))
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Appointments

func (h *handlers) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	appt, err := h.svc.Book(r.Context(), booking.BookRequest{
		PatientID:   req.PatientID,
		ClinicianID: req.ClinicianID,
		When:        req.ScheduledAt,
		Category:    req.Category,
		Reason:      req.Reason,
		Confirm:     req.Confirm,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Appointment(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) confirmAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Confirm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) completeAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) report(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Report(r.Context(), r.URL.Query().Get("actor_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, booking.ErrParticipantNotFound):
		writeError(w, http.StatusNotFound, "participant_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrNotPermitted):
		writeError(w, http.StatusForbidden, "not_permitted", err.Error())
	case errors.Is(err, booking.ErrParticipantExists):
		writeError(w, http.StatusConflict, "participant_exists", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, appointment.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
