package funnel

import (
	"time"

	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"

	"github.com/peakform/funnel/core"
)

// Step types
const (
	StepQuestion    StepType = "question"
	StepSignup      StepType = "signup"
	StepPayment     StepType = "payment"
	StepGoalSetting StepType = "goal_setting"
	StepIdentity    StepType = "identity"
	StepAnalyzing   StepType = "analyzing"
	StepPlanReveal  StepType = "plan_reveal"
	StepExplainer   StepType = "explainer"
	StepLandingPage StepType = "landing_page"
	StepUpsell      StepType = "upsell"
	StepDownsell    StepType = "downsell"
	StepInfo        StepType = "info"
	StepSuccess     StepType = "success"
)

// Access policies
const (
	AccessOpen   AccessPolicy = "open"
	AccessInvite AccessPolicy = "invite"
)

var AllStepTypes = []StepType{
	StepQuestion, StepSignup, StepPayment, StepGoalSetting, StepIdentity,
	StepAnalyzing, StepPlanReveal, StepExplainer, StepLandingPage,
	StepUpsell, StepDownsell, StepInfo, StepSuccess,
}

type (
	StepType     string
	AccessPolicy string

	// Per-type step configurations. Shapes are opaque to the Navigator except for
	// SuccessConfig.SkipPage / RedirectURL.
	QuestionConfig struct {
		FieldKey string   `json:"field_key" bson:"field_key" validate:"required,fieldkey"`
		Prompt   string   `json:"prompt" bson:"prompt" validate:"required"`
		Options  []string `json:"options,omitempty" bson:"options,omitempty"`
		Multi    bool     `json:"multi,omitempty" bson:"multi,omitempty"`
	}

	SignupConfig struct {
		Providers []string `json:"providers,omitempty" bson:"providers,omitempty"` // email, google, apple
	}

	PaymentConfig struct {
		PriceID   string `json:"price_id" bson:"price_id" validate:"required"`
		TrialDays int    `json:"trial_days,omitempty" bson:"trial_days,omitempty"`
	}

	GoalSettingConfig struct {
		FieldKey string `json:"field_key" bson:"field_key" validate:"required,fieldkey"`
		MaxGoals int    `json:"max_goals,omitempty" bson:"max_goals,omitempty"`
	}

	IdentityConfig struct {
		Fields []string `json:"fields,omitempty" bson:"fields,omitempty"` // name, birthdate, ...
	}

	AnalyzingConfig struct {
		DurationMS int      `json:"duration_ms,omitempty" bson:"duration_ms,omitempty"`
		Messages   []string `json:"messages,omitempty" bson:"messages,omitempty"`
	}

	PlanRevealConfig struct {
		PlanKey string `json:"plan_key" bson:"plan_key" validate:"required"`
	}

	ExplainerConfig struct {
		Headline string `json:"headline,omitempty" bson:"headline,omitempty"`
		MediaURL string `json:"media_url,omitempty" bson:"media_url,omitempty"`
	}

	LandingPageConfig struct {
		TemplateKey string `json:"template_key" bson:"template_key" validate:"required"`
	}

	UpsellConfig struct {
		OfferID string `json:"offer_id" bson:"offer_id" validate:"required"`
		PriceID string `json:"price_id,omitempty" bson:"price_id,omitempty"`
	}

	DownsellConfig struct {
		OfferID     string `json:"offer_id" bson:"offer_id" validate:"required"`
		PriceID     string `json:"price_id,omitempty" bson:"price_id,omitempty"`
		DiscountPct int    `json:"discount_pct,omitempty" bson:"discount_pct,omitempty"`
	}

	InfoConfig struct {
		Headline string `json:"headline,omitempty" bson:"headline,omitempty"`
		Body     string `json:"body,omitempty" bson:"body,omitempty"`
	}

	SuccessConfig struct {
		// SkipPage makes the Navigator signal completion instead of showing the page.
		SkipPage    bool   `json:"skip_page,omitempty" bson:"skip_page,omitempty"`
		RedirectURL string `json:"redirect_url,omitempty" bson:"redirect_url,omitempty"`
	}

	// StepConfig is the tagged union of per-type configurations: exactly one variant
	// is set, and it must match the step's Type.
	StepConfig struct {
		Question    *QuestionConfig    `json:"question,omitempty" bson:"question,omitempty"`
		Signup      *SignupConfig      `json:"signup,omitempty" bson:"signup,omitempty"`
		Payment     *PaymentConfig     `json:"payment,omitempty" bson:"payment,omitempty"`
		GoalSetting *GoalSettingConfig `json:"goal_setting,omitempty" bson:"goal_setting,omitempty"`
		Identity    *IdentityConfig    `json:"identity,omitempty" bson:"identity,omitempty"`
		Analyzing   *AnalyzingConfig   `json:"analyzing,omitempty" bson:"analyzing,omitempty"`
		PlanReveal  *PlanRevealConfig  `json:"plan_reveal,omitempty" bson:"plan_reveal,omitempty"`
		Explainer   *ExplainerConfig   `json:"explainer,omitempty" bson:"explainer,omitempty"`
		LandingPage *LandingPageConfig `json:"landing_page,omitempty" bson:"landing_page,omitempty"`
		Upsell      *UpsellConfig      `json:"upsell,omitempty" bson:"upsell,omitempty"`
		Downsell    *DownsellConfig    `json:"downsell,omitempty" bson:"downsell,omitempty"`
		Info        *InfoConfig        `json:"info,omitempty" bson:"info,omitempty"`
		Success     *SuccessConfig     `json:"success,omitempty" bson:"success,omitempty"`
	}

	Step struct {
		ID    string   `json:"id" bson:"id" validate:"required"`
		Order int      `json:"order" bson:"order" validate:"min=0"`
		Type  StepType `json:"type" bson:"type" validate:"required,steptype"`

		Config StepConfig `json:"config" bson:"config"`

		// ShowIf hides the step unless the rule evaluates true against answer data.
		ShowIf *ShowIfRule `json:"show_if,omitempty" bson:"show_if,omitempty"`

		// LinkedDownsellStepID is only meaningful on upsell steps: the fallback offer
		// shown when this upsell is declined.
		LinkedDownsellStepID string `json:"linked_downsell_step_id,omitempty" bson:"linked_downsell_step_id,omitempty"`
	}

	InviteCode struct {
		Code string `json:"code" bson:"code" validate:"required"`
		// Prepaid invites skip the payment step entirely.
		Prepaid bool `json:"prepaid,omitempty" bson:"prepaid,omitempty"`
	}

	Tracking struct {
		PixelID     string `json:"pixel_id,omitempty" bson:"pixel_id,omitempty"`
		GoogleTagID string `json:"google_tag_id,omitempty" bson:"google_tag_id,omitempty"`
	}

	// Funnel is the ordered step sequence for one offer. It is read-only input to the
	// session engine: immutable for the lifetime of any session traversing it.
	Funnel struct {
		ID          string       `json:"id" bson:"_id,omitempty"`
		OrgID       string       `json:"org_id" bson:"org_id"`
		Name        string       `json:"name" bson:"name"`
		Steps       []Step       `json:"steps" bson:"steps"`
		Access      AccessPolicy `json:"access" bson:"access"`
		InviteCodes []InviteCode `json:"invite_codes,omitempty" bson:"invite_codes,omitempty"`
		Tracking    Tracking     `json:"tracking,omitempty" bson:"tracking,omitempty"`
		CreatedAt   time.Time    `json:"created_at" bson:"created_at"` // UTC
		UpdatedAt   time.Time    `json:"updated_at" bson:"updated_at"` // UTC
	}
)

func (t StepType) Valid() bool {
	for _, st := range AllStepTypes {
		if t == st {
			return true
		}
	}
	return false
}

// setTypes returns the step types whose config variant is set.
// Exactly one is expected, matching Step.Type.
func (c StepConfig) setTypes() []StepType {
	var types []StepType
	if c.Question != nil {
		types = append(types, StepQuestion)
	}
	if c.Signup != nil {
		types = append(types, StepSignup)
	}
	if c.Payment != nil {
		types = append(types, StepPayment)
	}
	if c.GoalSetting != nil {
		types = append(types, StepGoalSetting)
	}
	if c.Identity != nil {
		types = append(types, StepIdentity)
	}
	if c.Analyzing != nil {
		types = append(types, StepAnalyzing)
	}
	if c.PlanReveal != nil {
		types = append(types, StepPlanReveal)
	}
	if c.Explainer != nil {
		types = append(types, StepExplainer)
	}
	if c.LandingPage != nil {
		types = append(types, StepLandingPage)
	}
	if c.Upsell != nil {
		types = append(types, StepUpsell)
	}
	if c.Downsell != nil {
		types = append(types, StepDownsell)
	}
	if c.Info != nil {
		types = append(types, StepInfo)
	}
	if c.Success != nil {
		types = append(types, StepSuccess)
	}
	return types
}

// StepIndexByID returns the index of the step with the given id.
func (f Funnel) StepIndexByID(id string) (int, bool) {
	for i, s := range f.Steps {
		if s.ID == id {
			return i, true
		}
	}
	return 0, false
}

// FindInvite looks up a configured invite code. Codes are matched case-insensitively.
func (f Funnel) FindInvite(code string) (InviteCode, bool) {
	code = core.CleanString(code, true /* lower */)
	for _, ic := range f.InviteCodes {
		if core.CleanString(ic.Code, true /* lower */) == code {
			return ic, true
		}
	}
	return InviteCode{}, false
}

// NewFunnel contains information needed to seed a new Funnel definition.
type NewFunnel struct {
	OrgID       string       `json:"org_id" validate:"required"`
	Name        string       `json:"name" validate:"required"`
	Steps       []Step       `json:"steps" validate:"required,min=1,dive"`
	Access      AccessPolicy `json:"access" validate:"omitempty,accesspolicy"`
	InviteCodes []InviteCode `json:"invite_codes" validate:"omitempty,dive"`
	Tracking    Tracking     `json:"tracking"`
}

func (nf *NewFunnel) Validate(validate *validator.Validate, translator ut.Translator) error {
	nf.Name = core.CleanString(nf.Name)
	if nf.Access == "" {
		nf.Access = AccessOpen
	}
	if err := validate.Struct(nf); err != nil {
		return err
	}
	return validateStepGraph(nf.Steps)
}
