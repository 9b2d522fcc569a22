package availability

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/angeldev7/clinic-scheduling/internal/appointment"
)

// Stats summarises a clinician's calendar. Occupied counts every active
// appointment of the clinician, whether or not its time is a configured slot.
type Stats struct {
	Configured int `json:"configured"`
	Occupied   int `json:"occupied"`
	Free       int `json:"free"`
}

// Engine owns the per-clinician slot calendars and the appointments booked
// against them. It is safe for concurrent use.
type Engine struct {
	clock appointment.Clock
	locks *clinicianLocker

	mu                      sync.RWMutex
	slotsByClinician        map[string]map[time.Time]time.Time
	appointmentsByClinician map[string][]*appointment.Appointment
	byID                    map[string]*appointment.Appointment
}

func NewEngine(clock appointment.Clock) *Engine {
	if clock == nil {
		clock = appointment.SystemClock{}
	}
	return &Engine{
		clock:                   clock,
		locks:                   newClinicianLocker(),
		slotsByClinician:        make(map[string]map[time.Time]time.Time),
		appointmentsByClinician: make(map[string][]*appointment.Appointment),
		byID:                    make(map[string]*appointment.Appointment),
	}
}

func requireClinician(clinicianID string) (string, error) {
	id := strings.TrimSpace(clinicianID)
	if id == "" {
		return "", fmt.Errorf("%w: clinician id is required", appointment.ErrInvalidArgument)
	}
	return id, nil
}

// slotKey normalizes t so equal instants in any location share a key.
func slotKey(t time.Time) time.Time { return t.Round(0).UTC() }

// ConfigureSlots replaces the clinician's offered slots with slots.
// Every slot must be strictly after the current time.
func (e *Engine) ConfigureSlots(clinicianID string, slots []time.Time) error {
	id, err := requireClinician(clinicianID)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		return fmt.Errorf("%w: at least one slot is required", appointment.ErrInvalidArgument)
	}

	now := e.clock.Now()
	set := make(map[time.Time]time.Time, len(slots))
	for _, s := range slots {
		if s.IsZero() {
			return fmt.Errorf("%w: slot time is required", appointment.ErrInvalidArgument)
		}
		if !s.After(now) {
			return fmt.Errorf("%w: slot %s is not in the future", appointment.ErrInvalidArgument, s.Format(time.RFC3339))
		}
		set[slotKey(s)] = s.Round(0)
	}

	return e.locks.withClinicianLock(id, func() error {
		e.mu.Lock()
		e.slotsByClinician[id] = set
		e.mu.Unlock()
		return nil
	})
}

// QueryAvailability lists the clinician's free future slots on date's
// calendar day, ascending. An unknown clinician yields an empty list.
func (e *Engine) QueryAvailability(clinicianID string, date time.Time) ([]time.Time, error) {
	id, err := requireClinician(clinicianID)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", appointment.ErrInvalidArgument)
	}

	now := e.clock.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	result := []time.Time{}
	slots, ok := e.slotsByClinician[id]
	if !ok {
		return result, nil
	}

	occupied := make(map[time.Time]struct{})
	for _, a := range e.appointmentsFor(id) {
		if a.Active() && a.IsOnDate(date) {
			occupied[slotKey(a.ScheduledAt())] = struct{}{}
		}
	}

	for k, s := range slots {
		if !appointment.SameDate(s, date) {
			continue
		}
		if _, taken := occupied[k]; taken {
			continue
		}
		if !s.After(now) {
			continue
		}
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Before(result[j]) })
	return result, nil
}

// IsAvailable reports whether when is a configured slot of the clinician
// that no active appointment holds. It never fails.
func (e *Engine) IsAvailable(clinicianID string, when time.Time) bool {
	id := strings.TrimSpace(clinicianID)
	if id == "" || when.IsZero() {
		return false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.isAvailableLocked(id, when)
}

func (e *Engine) isAvailableLocked(clinicianID string, when time.Time) bool {
	if _, ok := e.slotsByClinician[clinicianID][slotKey(when)]; !ok {
		return false
	}
	for _, a := range e.appointmentsFor(clinicianID) {
		if a.Active() && a.ScheduledAt().Equal(when) {
			return false
		}
	}
	return true
}

func (e *Engine) conflictsLocked(clinicianID string, when time.Time) bool {
	for _, a := range e.appointmentsFor(clinicianID) {
		if a.Active() && a.ConflictsWith(when) {
			return true
		}
	}
	return false
}

// appointmentsFor is an explicit lookup-or-default; callers hold e.mu.
func (e *Engine) appointmentsFor(clinicianID string) []*appointment.Appointment {
	list, ok := e.appointmentsByClinician[clinicianID]
	if !ok {
		return nil
	}
	return list
}

// BookAppointment records a for its clinician. It returns false when the
// slot is not available, when another active appointment of the clinician
// lies within the conflict window, or when the id is already booked.
// The appointment keeps its current status.
func (e *Engine) BookAppointment(a *appointment.Appointment) (bool, error) {
	if a == nil {
		return false, fmt.Errorf("%w: appointment is required", appointment.ErrInvalidArgument)
	}

	clinicianID := a.ClinicianID()
	when := a.ScheduledAt()
	booked := false

	err := e.locks.withClinicianLock(clinicianID, func() error {
		e.mu.RLock()
		ok := e.isAvailableLocked(clinicianID, when) && !e.conflictsLocked(clinicianID, when)
		e.mu.RUnlock()
		if !ok {
			return nil
		}

		e.mu.Lock()
		defer e.mu.Unlock()

		// Ids are unique across clinicians, which the clinician lock does not cover.
		if _, dup := e.byID[a.ID()]; dup {
			return nil
		}
		e.appointmentsByClinician[clinicianID] = append(e.appointmentsByClinician[clinicianID], a)
		e.byID[a.ID()] = a
		booked = true
		return nil
	})

	return booked, err
}

// CancelAppointment cancels the appointment with the given id. It returns
// false when no appointment matches or it is already cancelled.
func (e *Engine) CancelAppointment(appointmentID string) (bool, error) {
	id := strings.TrimSpace(appointmentID)
	if id == "" {
		return false, fmt.Errorf("%w: appointment id is required", appointment.ErrInvalidArgument)
	}

	a, ok := e.FindAppointment(id)
	if !ok {
		return false, nil
	}

	cancelled := false
	err := e.locks.withClinicianLock(a.ClinicianID(), func() error {
		if a.Status() == appointment.StatusCancelled {
			return nil
		}
		if err := a.Cancel(); err != nil {
			return err
		}
		cancelled = true
		return nil
	})

	return cancelled, err
}

// FindAppointment looks up a booked appointment by id.
func (e *Engine) FindAppointment(appointmentID string) (*appointment.Appointment, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	a, ok := e.byID[strings.TrimSpace(appointmentID)]
	return a, ok
}

// ListAppointments returns a copy of the clinician's appointments in booking order.
func (e *Engine) ListAppointments(clinicianID string) ([]*appointment.Appointment, error) {
	id, err := requireClinician(clinicianID)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	list := e.appointmentsFor(id)
	out := make([]*appointment.Appointment, len(list))
	copy(out, list)
	return out, nil
}

// ListActiveAppointments is ListAppointments without cancelled appointments.
func (e *Engine) ListActiveAppointments(clinicianID string) ([]*appointment.Appointment, error) {
	all, err := e.ListAppointments(clinicianID)
	if err != nil {
		return nil, err
	}

	active := make([]*appointment.Appointment, 0, len(all))
	for _, a := range all {
		if a.Active() {
			active = append(active, a)
		}
	}
	return active, nil
}

func (e *Engine) AvailabilityStats(clinicianID string) (Stats, error) {
	active, err := e.ListActiveAppointments(clinicianID)
	if err != nil {
		return Stats{}, err
	}

	e.mu.RLock()
	configured := len(e.slotsByClinician[strings.TrimSpace(clinicianID)])
	e.mu.RUnlock()

	occupied := len(active)
	return Stats{
		Configured: configured,
		Occupied:   occupied,
		Free:       max(0, configured-occupied),
	}, nil
}

// Appointments returns every booked appointment ordered by scheduled time.
func (e *Engine) Appointments() []*appointment.Appointment {
	e.mu.RLock()
	out := make([]*appointment.Appointment, 0, len(e.byID))
	for _, a := range e.byID {
		out = append(out, a)
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt().Equal(out[j].ScheduledAt()) {
			return out[i].ScheduledAt().Before(out[j].ScheduledAt())
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

// Clinicians returns the ids of clinicians with configured slots or bookings.
func (e *Engine) Clinicians() []string {
	e.mu.RLock()
	seen := make(map[string]struct{}, len(e.slotsByClinician))
	for id := range e.slotsByClinician {
		seen[id] = struct{}{}
	}
	for id := range e.appointmentsByClinician {
		seen[id] = struct{}{}
	}
	e.mu.RUnlock()

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
