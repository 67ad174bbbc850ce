package dummyenroll

import (
	"context"
	"sync"

	"github.com/peakform/funnel/core"
)

// service records finalized enrollments in memory. Finalize is idempotent on
// SessionID so repeated completion attempts land on the same record.
type service struct {
	mu          sync.Mutex
	enrollments map[string]core.Enrollment
	calls       map[string]int
}

var _ core.EnrollmentService = (*service)(nil)

func NewService() *service {
	return &service{
		enrollments: make(map[string]core.Enrollment),
		calls:       make(map[string]int),
	}
}

func (svc *service) Finalize(ctx context.Context, enr core.Enrollment) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.calls[enr.SessionID]++
	if _, ok := svc.enrollments[enr.SessionID]; ok {
		return nil
	}
	svc.enrollments[enr.SessionID] = enr
	return nil
}

// Enrollment returns the recorded enrollment for a session, if any.
func (svc *service) Enrollment(sessionID string) (core.Enrollment, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	enr, ok := svc.enrollments[sessionID]
	return enr, ok
}

// FinalizeCalls returns how many times Finalize saw a session id.
func (svc *service) FinalizeCalls(sessionID string) int {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return svc.calls[sessionID]
}
