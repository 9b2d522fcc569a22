package booking

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/angeldev7/clinic-scheduling/internal/appointment"
)

// Registry is the in-memory participant directory the service resolves
// patients, clinicians and administrators against.
type Registry struct {
	mu           sync.RWMutex
	participants map[string]*appointment.Participant
}

func NewRegistry() *Registry {
	return &Registry{participants: make(map[string]*appointment.Participant)}
}

func (r *Registry) Add(p *appointment.Participant) error {
	if p == nil {
		return fmt.Errorf("%w: participant is required", appointment.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.participants[p.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrParticipantExists, p.ID())
	}
	r.participants[p.ID()] = p
	return nil
}

func (r *Registry) Get(id string) (*appointment.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrParticipantNotFound, id)
	}
	return p, nil
}

// List returns participants ordered by id.
func (r *Registry) List() []*appointment.Participant {
	r.mu.RLock()
	out := make([]*appointment.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}
