package session

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/peakform/funnel/core"
)

// PointerPrefix is the scheme prefix of every session token. Client-side pointers
// that do not carry it are corrupt by definition.
const PointerPrefix = "fnl_"

type (
	// Session is the authoritative record of one user's progress through one funnel.
	//
	// Invariants: CurrentStepIndex is a valid index into the funnel's steps, or equal
	// to their count (complete). Data is monotonically additive: keys are only ever
	// overlaid, never deleted, within one session.
	Session struct {
		ID       string `json:"id" bson:"_id"`
		FunnelID string `json:"funnel_id" bson:"funnel_id"`
		OrgID    string `json:"org_id" bson:"org_id"`

		CurrentStepIndex   int                    `json:"current_step_index" bson:"current_step_index"`
		CompletedStepIndex int                    `json:"completed_step_index" bson:"completed_step_index"` // -1 until a step completes
		Data               map[string]interface{} `json:"data" bson:"data"`

		UserID      string `json:"user_id,omitempty" bson:"user_id,omitempty"` // empty until authentication links it
		SkipPayment bool   `json:"skip_payment" bson:"skip_payment"`
		InviteCode  string `json:"invite_code,omitempty" bson:"invite_code,omitempty"`
		ReferrerID  string `json:"referrer_id,omitempty" bson:"referrer_id,omitempty"`

		RedirectURL string    `json:"redirect_url,omitempty" bson:"redirect_url,omitempty"` // set once, on completion
		CompletedAt time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`

		CreatedAt time.Time `json:"created_at" bson:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at" bson:"updated_at"` // UTC
		ExpiresAt time.Time `json:"expires_at" bson:"expires_at"` // UTC
	}

	// SessionPatch is a partial update. Data uses merge semantics: new keys overlay
	// old ones non-destructively.
	SessionPatch struct {
		CurrentStepIndex   *int                   `json:"current_step_index,omitempty"`
		CompletedStepIndex *int                   `json:"completed_step_index,omitempty"`
		Data               map[string]interface{} `json:"data,omitempty"`
	}

	// StepResult is the "step completed" event the UI emits.
	StepResult struct {
		StepID string                 `json:"step_id"`
		Data   map[string]interface{} `json:"data,omitempty"`
		// Accepted carries the accept/decline choice on upsell and downsell steps.
		Accepted *bool `json:"accepted,omitempty"`
	}
)

// NewToken generates a fresh session token.
func NewToken() string {
	return PointerPrefix + uuid.New().String()
}

// ValidPointer does the surface-shape check of the recovery procedure: the pointer
// must be a non-empty string carrying the scheme prefix.
func ValidPointer(p string) bool {
	return strings.HasPrefix(p, PointerPrefix) && len(p) > len(PointerPrefix)
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

func (s Session) Completed() bool {
	return !s.CompletedAt.IsZero()
}

// NewSession contains information needed to create a new Session.
type NewSession struct {
	FunnelID   string `json:"funnel_id" validate:"required"`
	InviteCode string `json:"invite_code,omitempty"`
	ReferrerID string `json:"referrer_id,omitempty"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.FunnelID = core.CleanString(ns.FunnelID)
	ns.InviteCode = core.CleanString(ns.InviteCode)
	ns.ReferrerID = core.CleanString(ns.ReferrerID)
	return validate.Struct(ns)
}
