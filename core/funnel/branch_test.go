package funnel

import "testing"

func TestBranchTracker_Decline(t *testing.T) {
	steps := coachingSteps()
	upsell := steps[3]
	downsell := steps[4]

	brokenLink := upsell
	brokenLink.LinkedDownsellStepID = "nope"

	notADownsell := upsell
	notADownsell.LinkedDownsellStepID = "s5" // success step

	unlinked := upsell
	unlinked.LinkedDownsellStepID = ""

	tests := []struct {
		name     string
		declined Step
		wantIdx  int
		wantOK   bool
	}{
		{name: "linked upsell jumps to downsell", declined: upsell, wantIdx: 4, wantOK: true},
		{name: "unlinked upsell resumes forward", declined: unlinked},
		{name: "dangling link resumes forward", declined: brokenLink},
		{name: "link to non-downsell resumes forward", declined: notADownsell},
		{name: "declined downsell never jumps", declined: downsell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bt := NewBranchTracker()
			idx, ok := bt.Decline(steps, tt.declined)
			if idx != tt.wantIdx || ok != tt.wantOK {
				t.Errorf("Decline() = (%d, %v), want (%d, %v)", idx, ok, tt.wantIdx, tt.wantOK)
			}
			if !bt.Declined(tt.declined.ID) {
				t.Error("Declined() = false, want true")
			}
		})
	}
}

func TestBranchTracker_AcceptClearsDecline(t *testing.T) {
	steps := coachingSteps()
	bt := NewBranchTracker()

	if _, ok := bt.Decline(steps, steps[3]); !ok {
		t.Fatal("Decline() ok = false, want true")
	}
	bt.Accept("s3")

	if bt.Declined("s3") {
		t.Error("Declined() = true after Accept, want false")
	}
	if bt.Len() != 0 {
		t.Errorf("Len() = %d, want 0", bt.Len())
	}
}
