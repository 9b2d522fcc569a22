package availability

import "sync"

// clinicianLocker serializes mutations per clinician so a booking's
// check-then-act cannot interleave with another booking or a slot
// reconfiguration for the same clinician.
type clinicianLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newClinicianLocker() *clinicianLocker {
	return &clinicianLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *clinicianLocker) withClinicianLock(clinicianID string, fn func() error) error {
	l.mu.Lock()
	m, ok := l.locks[clinicianID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[clinicianID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	return fn()
}
