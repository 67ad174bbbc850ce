package session

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Reconcile restores the session a client-side pointer refers to, or creates a fresh
// one. It implements the recovery procedure run on every page load:
//
//	absent, malformed, unknown, expired, completed or wrong-funnel pointers (and any
//	storage failure while fetching) all fall back to a fresh session at step 0 with
//	empty data. The only error Reconcile ever returns is a failure to create.
func (svc *Service) Reconcile(ctx context.Context, ns NewSession, pointer string) (Session, error) {
	if ValidPointer(pointer) {
		sess, err := svc.repo.GetSessionByID(ctx, pointer)
		switch {
		case err == nil:
			if svc.restorable(sess, ns.FunnelID) {
				return sess, nil
			}
		case errors.Cause(err) != ErrNotFound:
			// storage/network failure gets the same treatment as corruption
			svc.logger.Warn(fmt.Sprintf("restoring session %s: %v; recreating", pointer, err), err)
		}
	}
	return svc.Create(ctx, ns)
}

func (svc *Service) restorable(sess Session, funnelID string) bool {
	if sess.Expired(time.Now().UTC()) {
		return false
	}
	// pointers are keyed by funnel id; one referring to another funnel is corrupt
	if sess.FunnelID != funnelID {
		return false
	}
	// a completed session's pointer is stale: the funnel starts over
	return !sess.Completed()
}
