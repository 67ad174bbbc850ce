package funnel

type (
	// Advance is the Navigator's decision: either the index of the next step to
	// display, or completion (optionally with a step-configured redirect).
	Advance struct {
		NextIndex   int
		Complete    bool
		RedirectURL string
	}

	// NavState is the whole of a session's navigational state: current position plus
	// the upsell offers declined so far. The declined set is ephemeral; it is rebuilt
	// empty on every session load and never persisted.
	NavState struct {
		CurrentIndex int
		Branches     *BranchTracker
	}
)

func NewNavState(currentIndex int) NavState {
	return NavState{CurrentIndex: currentIndex, Branches: NewBranchTracker()}
}

// NextStep scans forward from currentIndex+1 and returns the first acceptable step,
// or completion when the list is exhausted.
//
// Skip checks run in precedence order: payment skip, downsell gating and the success
// short-circuit are structural routing decisions independent of user data, so the
// data-dependent ShowIf rule runs last and cannot override them.
//
// The set of declined upsells is not an input: decline routing lives entirely in
// BranchTracker.Decline, and the forward scan skips downsell steps unconditionally,
// declined or not.
func NextStep(steps []Step, currentIndex int, data map[string]interface{}, skipPayment bool) Advance {
	for i := currentIndex + 1; i < len(steps); i++ {
		step := steps[i]

		switch step.Type {
		case StepPayment:
			// pre-paid or free-invite sessions never see a payment step
			if skipPayment {
				continue
			}
		case StepDownsell:
			// downsells are reached only through BranchTracker.Decline's direct jump,
			// never by forward scanning
			continue
		case StepSuccess:
			if cfg := step.Config.Success; cfg != nil && cfg.SkipPage {
				return Advance{Complete: true, RedirectURL: cfg.RedirectURL}
			}
		case StepQuestion, StepSignup, StepGoalSetting, StepIdentity, StepAnalyzing,
			StepPlanReveal, StepExplainer, StepLandingPage, StepUpsell, StepInfo:
			// no structural routing
		}

		if step.ShowIf != nil && !step.ShowIf.Eval(data) {
			continue
		}
		return Advance{NextIndex: i}
	}
	return Advance{Complete: true}
}

// Next advances the navigational state. On completion the state's index moves to
// len(steps), the "complete" position.
func (ns *NavState) Next(steps []Step, data map[string]interface{}, skipPayment bool) Advance {
	adv := NextStep(steps, ns.CurrentIndex, data, skipPayment)
	if adv.Complete {
		ns.CurrentIndex = len(steps)
	} else {
		ns.CurrentIndex = adv.NextIndex
	}
	return adv
}
