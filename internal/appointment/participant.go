package appointment

import (
	"fmt"
	"strings"
	"sync"
)

type Role string

const (
	RolePatient       Role = "patient"
	RoleClinician     Role = "clinician"
	RoleStaff         Role = "staff"
	RoleAdministrator Role = "administrator"
)

var roleDescriptions = map[Role]string{
	RolePatient:       "Patient",
	RoleClinician:     "Clinician",
	RoleStaff:         "Staff",
	RoleAdministrator: "Administrator",
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleDescriptions[r]; !ok {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, s)
	}
	return r, nil
}

func (r Role) String() string { return string(r) }

// Description is the human readable role label.
func (r Role) Description() string { return roleDescriptions[r] }

func (r Role) valid() bool {
	_, ok := roleDescriptions[r]
	return ok
}

// Participant is a person known to the scheduler: a patient, clinician,
// staff member or administrator.
type Participant struct {
	id string

	mu         sync.RWMutex
	givenName  string
	familyName string
	email      string
	phone      string
	role       Role
	active     bool
}

func NewParticipant(id, givenName, familyName, email string, role Role) (*Participant, error) {
	id, err := requireID("participant id", id)
	if err != nil {
		return nil, err
	}
	p := &Participant{id: id, active: true}
	if p.givenName, err = validateName("given name", givenName); err != nil {
		return nil, err
	}
	if p.familyName, err = validateName("family name", familyName); err != nil {
		return nil, err
	}
	if p.email, err = normalizeEmail(email); err != nil {
		return nil, err
	}
	if !role.valid() {
		return nil, fmt.Errorf("%w: role is required", ErrInvalidArgument)
	}
	p.role = role
	return p, nil
}

func validateName(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidArgument, field)
	}
	if len([]rune(v)) < 2 {
		return "", fmt.Errorf("%w: %s must have at least 2 characters", ErrInvalidArgument, field)
	}
	return v, nil
}

func normalizeEmail(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidArgument)
	}
	if !strings.Contains(v, "@") || !strings.Contains(v, ".") {
		return "", fmt.Errorf("%w: malformed email %q", ErrInvalidArgument, v)
	}
	return v, nil
}

func (p *Participant) ID() string { return p.id }

func (p *Participant) GivenName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.givenName
}

func (p *Participant) FamilyName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.familyName
}

func (p *Participant) FullName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.givenName + " " + p.familyName
}

func (p *Participant) Email() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.email
}

func (p *Participant) Phone() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.phone
}

func (p *Participant) Role() Role {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.role
}

func (p *Participant) Active() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

func (p *Participant) SetGivenName(v string) error {
	name, err := validateName("given name", v)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.givenName = name
	p.mu.Unlock()
	return nil
}

func (p *Participant) SetFamilyName(v string) error {
	name, err := validateName("family name", v)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.familyName = name
	p.mu.Unlock()
	return nil
}

func (p *Participant) SetEmail(v string) error {
	email, err := normalizeEmail(v)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.email = email
	p.mu.Unlock()
	return nil
}

// SetPhone stores the phone number as given; it is not validated.
func (p *Participant) SetPhone(v string) {
	p.mu.Lock()
	p.phone = strings.TrimSpace(v)
	p.mu.Unlock()
}

func (p *Participant) SetRole(r Role) error {
	if !r.valid() {
		return fmt.Errorf("%w: role is required", ErrInvalidArgument)
	}
	p.mu.Lock()
	p.role = r
	p.mu.Unlock()
	return nil
}

func (p *Participant) Activate() {
	p.mu.Lock()
	p.active = true
	p.mu.Unlock()
}

// Deactivate fails for administrators, who always stay active.
func (p *Participant) Deactivate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.role == RoleAdministrator {
		return fmt.Errorf("%w: administrator %s cannot be deactivated", ErrInvalidState, p.id)
	}
	p.active = false
	return nil
}

func (p *Participant) CanBook() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active && (p.role == RolePatient || p.role == RoleStaff)
}

func (p *Participant) CanManageSchedules() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active && (p.role == RoleClinician || p.role == RoleAdministrator)
}

func (p *Participant) CanAdminister() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active && p.role == RoleAdministrator
}

func (p *Participant) Equal(other *Participant) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.id == other.id
}

func (p *Participant) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fmt.Sprintf("Participant{id=%s name=%s %s email=%s role=%s active=%t}",
		p.id, p.givenName, p.familyName, p.email, p.role.Description(), p.active)
}
