package funnel

// BranchTracker records which upsell offers were declined during one session.
// Declining a linked upsell is the only way a downsell step is ever reached: the
// returned index is an immediate jump, not a NextStep computation.
type BranchTracker struct {
	declined map[string]struct{}
}

func NewBranchTracker() *BranchTracker {
	return &BranchTracker{declined: make(map[string]struct{})}
}

// Accept records an accepted offer. Accepting clears any earlier decline of the same
// step, so a user returning via browser navigation cannot leave a stale decline behind.
func (bt *BranchTracker) Accept(stepID string) {
	delete(bt.declined, stepID)
}

// Decline records a declined upsell. When the step links a downsell present in steps,
// the downsell's index is returned and navigation jumps there directly. Otherwise
// ok is false and ordinary forward navigation resumes from the upsell's position.
//
// Declining a downsell records it like any other decline but never returns a jump:
// offers are a single-level branch, downsells have no fallback of their own.
func (bt *BranchTracker) Decline(steps []Step, declined Step) (int, bool) {
	bt.declined[declined.ID] = struct{}{}

	if declined.Type != StepUpsell || declined.LinkedDownsellStepID == "" {
		return 0, false
	}
	for i, s := range steps {
		if s.ID == declined.LinkedDownsellStepID && s.Type == StepDownsell {
			return i, true
		}
	}
	return 0, false
}

// Declined reports whether the given step id was declined this session.
func (bt *BranchTracker) Declined(stepID string) bool {
	_, ok := bt.declined[stepID]
	return ok
}

func (bt *BranchTracker) Len() int { return len(bt.declined) }
