package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/peakform/funnel/core"
	"github.com/peakform/funnel/core/funnel"
)

// NopLogger drops everything; test services still need a core.Logger.
type NopLogger struct{}

var _ core.Logger = (*NopLogger)(nil)

func (NopLogger) Enable(bool)                        {}
func (NopLogger) Debug(string, ...interface{})       {}
func (NopLogger) Info(string, ...interface{})        {}
func (NopLogger) Warn(string, ...interface{})        {}
func (NopLogger) Error(string, ...interface{})       {}
func (NopLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

// CoachingSteps is the canonical paid-coaching flow used across tests: quiz,
// signup, payment, a linked upsell/downsell pair and a success page.
func CoachingSteps() []funnel.Step {
	return []funnel.Step{
		{ID: "s0", Order: 0, Type: funnel.StepQuestion, Config: funnel.StepConfig{Question: &funnel.QuestionConfig{FieldKey: "goal", Prompt: "What's your goal?"}}},
		{ID: "s1", Order: 1, Type: funnel.StepSignup, Config: funnel.StepConfig{Signup: &funnel.SignupConfig{}}},
		{ID: "s2", Order: 2, Type: funnel.StepPayment, Config: funnel.StepConfig{Payment: &funnel.PaymentConfig{PriceID: "price_base"}}},
		{
			ID: "s3", Order: 3, Type: funnel.StepUpsell,
			Config:               funnel.StepConfig{Upsell: &funnel.UpsellConfig{OfferID: "coaching-plus"}},
			LinkedDownsellStepID: "s4",
		},
		{ID: "s4", Order: 4, Type: funnel.StepDownsell, Config: funnel.StepConfig{Downsell: &funnel.DownsellConfig{OfferID: "coaching-lite", DiscountPct: 40}}},
		{ID: "s5", Order: 5, Type: funnel.StepSuccess, Config: funnel.StepConfig{Success: &funnel.SuccessConfig{}}},
	}
}

// CreateFunnel stores a funnel definition directly through the repository.
func CreateFunnel(t *testing.T, repo funnel.Repository, orgID, name string, steps []funnel.Step, opts ...func(*funnel.Funnel)) funnel.Funnel {
	t.Helper()

	now := time.Now().UTC()
	f := funnel.Funnel{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		Name:      name,
		Steps:     steps,
		Access:    funnel.AccessOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&f)
	}

	f, err := repo.CreateFunnel(context.Background(), f)
	if err != nil {
		t.Fatalf("CreateFunnel() failed: %v", err)
	}
	return f
}

// WithInvites switches the funnel to invite-only access with the given codes.
func WithInvites(codes ...funnel.InviteCode) func(*funnel.Funnel) {
	return func(f *funnel.Funnel) {
		f.Access = funnel.AccessInvite
		f.InviteCodes = codes
	}
}
