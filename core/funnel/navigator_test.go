package funnel

import "testing"

// coachingSteps is a typical paid-coaching flow: quiz, signup, payment, an upsell
// with a linked downsell fallback, then the success page.
func coachingSteps() []Step {
	return []Step{
		{ID: "s0", Order: 0, Type: StepQuestion, Config: StepConfig{Question: &QuestionConfig{FieldKey: "goal", Prompt: "What's your goal?"}}},
		{ID: "s1", Order: 1, Type: StepSignup, Config: StepConfig{Signup: &SignupConfig{}}},
		{ID: "s2", Order: 2, Type: StepPayment, Config: StepConfig{Payment: &PaymentConfig{PriceID: "price_base"}}},
		{
			ID: "s3", Order: 3, Type: StepUpsell,
			Config:               StepConfig{Upsell: &UpsellConfig{OfferID: "coaching-plus"}},
			LinkedDownsellStepID: "s4",
		},
		{ID: "s4", Order: 4, Type: StepDownsell, Config: StepConfig{Downsell: &DownsellConfig{OfferID: "coaching-lite", DiscountPct: 40}}},
		{ID: "s5", Order: 5, Type: StepSuccess, Config: StepConfig{Success: &SuccessConfig{}}},
	}
}

func TestNextStep(t *testing.T) {
	steps := coachingSteps()

	condSteps := []Step{
		{ID: "q", Order: 0, Type: StepQuestion, Config: StepConfig{Question: &QuestionConfig{FieldKey: "goal", Prompt: "Goal?"}}},
		{
			ID: "injury", Order: 1, Type: StepQuestion,
			Config: StepConfig{Question: &QuestionConfig{FieldKey: "injury", Prompt: "Which injury?"}},
			ShowIf: &ShowIfRule{Field: "goal", Op: OpIn, Value: []interface{}{"recover", "rehab"}},
		},
		{ID: "done", Order: 2, Type: StepSuccess, Config: StepConfig{Success: &SuccessConfig{}}},
	}

	skipSuccessSteps := []Step{
		{ID: "q", Order: 0, Type: StepQuestion, Config: StepConfig{Question: &QuestionConfig{FieldKey: "goal", Prompt: "Goal?"}}},
		{ID: "done", Order: 1, Type: StepSuccess, Config: StepConfig{Success: &SuccessConfig{SkipPage: true, RedirectURL: "/welcome"}}},
	}

	tests := []struct {
		name        string
		steps       []Step
		current     int
		data        map[string]interface{}
		skipPayment bool
		want        Advance
	}{
		{name: "first step", steps: steps, current: -1, want: Advance{NextIndex: 0}},
		{name: "linear advance", steps: steps, current: 0, want: Advance{NextIndex: 1}},
		{name: "payment shown by default", steps: steps, current: 1, want: Advance{NextIndex: 2}},
		{name: "payment skipped for prepaid", steps: steps, current: 1, skipPayment: true, want: Advance{NextIndex: 3}},
		{name: "downsell never reached by scanning", steps: steps, current: 3, want: Advance{NextIndex: 5}},
		{name: "end of list completes", steps: steps, current: 5, want: Advance{Complete: true}},

		{
			name: "show_if hides step", steps: condSteps, current: 0,
			data: map[string]interface{}{"goal": "lose_weight"},
			want: Advance{NextIndex: 2},
		},
		{
			name: "show_if shows step", steps: condSteps, current: 0,
			data: map[string]interface{}{"goal": "rehab"},
			want: Advance{NextIndex: 1},
		},
		{name: "show_if with absent field hides step", steps: condSteps, current: 0, want: Advance{NextIndex: 2}},

		{
			name: "skip-page success completes with redirect", steps: skipSuccessSteps, current: 0,
			want: Advance{Complete: true, RedirectURL: "/welcome"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextStep(tt.steps, tt.current, tt.data, tt.skipPayment); got != tt.want {
				t.Errorf("NextStep() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// A prepaid user walking a question, signup, payment, skip-page success funnel skips
// the payment step and short-circuits straight to completion with the redirect; the
// payment step is never landed on at any point of the walk.
func TestNextStep_prepaidSkipsToRedirect(t *testing.T) {
	steps := []Step{
		{ID: "q", Order: 0, Type: StepQuestion, Config: StepConfig{Question: &QuestionConfig{FieldKey: "goal", Prompt: "Goal?"}}},
		{ID: "signup", Order: 1, Type: StepSignup, Config: StepConfig{Signup: &SignupConfig{}}},
		{ID: "pay", Order: 2, Type: StepPayment, Config: StepConfig{Payment: &PaymentConfig{PriceID: "price_base"}}},
		{ID: "done", Order: 3, Type: StepSuccess, Config: StepConfig{Success: &SuccessConfig{SkipPage: true, RedirectURL: "/welcome"}}},
	}

	current := -1
	for _, want := range []Advance{{NextIndex: 0}, {NextIndex: 1}} {
		adv := NextStep(steps, current, nil, true)
		if adv != want {
			t.Fatalf("NextStep(current=%d) = %+v, want %+v", current, adv, want)
		}
		if steps[adv.NextIndex].Type == StepPayment {
			t.Fatalf("NextStep(current=%d) landed on payment step", current)
		}
		current = adv.NextIndex
	}

	adv := NextStep(steps, current, nil, true)
	want := Advance{Complete: true, RedirectURL: "/welcome"}
	if adv != want {
		t.Errorf("NextStep(current=%d) = %+v, want %+v", current, adv, want)
	}
}

// A downsell is only ever displayed via the decline jump, no matter where the scan
// starts from.
func TestNextStep_downsellUnreachableFromAnyPosition(t *testing.T) {
	steps := coachingSteps()

	for _, skipPayment := range []bool{false, true} {
		for current := -1; current < len(steps); current++ {
			adv := NextStep(steps, current, nil, skipPayment)
			if !adv.Complete && steps[adv.NextIndex].Type == StepDownsell {
				t.Errorf("NextStep(current=%d, skipPayment=%v) landed on downsell index %d", current, skipPayment, adv.NextIndex)
			}
		}
	}
}

func TestNavState_Next(t *testing.T) {
	steps := coachingSteps()
	ns := NewNavState(3)

	adv := ns.Next(steps, nil, false)
	if adv.Complete || adv.NextIndex != 5 {
		t.Errorf("Next() = %+v, want NextIndex 5", adv)
	}
	if ns.CurrentIndex != 5 {
		t.Errorf("CurrentIndex = %d, want 5", ns.CurrentIndex)
	}

	adv = ns.Next(steps, nil, false)
	if !adv.Complete {
		t.Errorf("Next() = %+v, want completion", adv)
	}
	if ns.CurrentIndex != len(steps) {
		t.Errorf("CurrentIndex = %d, want %d", ns.CurrentIndex, len(steps))
	}
}
