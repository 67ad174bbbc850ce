package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/peakform/funnel/core/session"
	testutil "github.com/peakform/funnel/tests"
)

func TestService_Reconcile(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	f := testutil.CreateFunnel(t, fix.funnelRepo, "org1", "Funnel", testutil.CoachingSteps())
	other := testutil.CreateFunnel(t, fix.funnelRepo, "org1", "Other Funnel", testutil.CoachingSteps())

	live, err := fix.svc.Create(ctx, session.NewSession{FunnelID: f.ID})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	two := 2
	if _, err = fix.svc.Patch(ctx, live.ID, session.SessionPatch{
		CurrentStepIndex: &two,
		Data:             map[string]interface{}{"goal": "lose_weight"},
	}); err != nil {
		t.Fatalf("Patch() failed: %v", err)
	}

	otherFunnel, err := fix.svc.Create(ctx, session.NewSession{FunnelID: other.ID})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	completed, err := fix.svc.Create(ctx, session.NewSession{FunnelID: f.ID})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err = fix.svc.Complete(ctx, completed.ID, nil, nil); err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}

	expired := session.Session{
		ID:        session.NewToken(),
		FunnelID:  f.ID,
		OrgID:     "org1",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	if _, err = fix.repo.CreateSession(ctx, expired); err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}

	tests := []struct {
		name        string
		pointer     string
		wantRestore bool
	}{
		{name: "valid pointer restores in place", pointer: live.ID, wantRestore: true},
		{name: "absent pointer"},
		{name: "malformed pointer", pointer: "lolnope"},
		{name: "prefix only", pointer: "fnl_"},
		{name: "unknown pointer", pointer: "fnl_deadbeef"},
		{name: "pointer to another funnel", pointer: otherFunnel.ID},
		{name: "pointer to completed session", pointer: completed.ID},
		{name: "pointer to expired session", pointer: expired.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := fix.svc.Reconcile(ctx, session.NewSession{FunnelID: f.ID}, tt.pointer)
			if err != nil {
				t.Fatalf("Reconcile() failed: %v", err)
			}

			if tt.wantRestore {
				if sess.ID != live.ID {
					t.Errorf("Reconcile() id = %s, want restored %s", sess.ID, live.ID)
				}
				if sess.CurrentStepIndex != 2 || sess.Data["goal"] != "lose_weight" {
					t.Errorf("Reconcile() session = %+v, want restored state", sess)
				}
				return
			}

			// fresh session at step 0 with empty data
			if sess.ID == tt.pointer {
				t.Errorf("Reconcile() reused pointer %s, want fresh session", tt.pointer)
			}
			if sess.FunnelID != f.ID || sess.CurrentStepIndex != 0 || len(sess.Data) != 0 {
				t.Errorf("Reconcile() session = %+v, want fresh step-0 session", sess)
			}
		})
	}
}
