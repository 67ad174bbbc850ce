package funnel

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/peakform/funnel/core"
)

var (
	stepTypeTag  = "steptype"
	stepTypeText = "invalid step type"

	showIfOpTag  = "showifop"
	showIfOpText = "invalid show_if operator"

	accessPolicyTag  = "accesspolicy"
	accessPolicyText = "access must be one of: open, invite"

	errStepGraph = errors.New("invalid step sequence")
)

// RegisterValidators registers the funnel domain's custom validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(stepTypeTag, stepTypeValidation)
	core.RegisterCustomTranslation(validate, translator, stepTypeTag, stepTypeText)

	_ = validate.RegisterValidation(showIfOpTag, showIfOpValidation)
	core.RegisterCustomTranslation(validate, translator, showIfOpTag, showIfOpText)

	_ = validate.RegisterValidation(accessPolicyTag, accessPolicyValidation)
	core.RegisterCustomTranslation(validate, translator, accessPolicyTag, accessPolicyText)
}

// stepTypeValidation checks that the value is in the closed StepType set.
func stepTypeValidation(fl validator.FieldLevel) bool {
	return StepType(fl.Field().String()).Valid()
}

func showIfOpValidation(fl validator.FieldLevel) bool {
	switch ShowIfOp(fl.Field().String()) {
	case OpEq, OpNeq, OpIn, OpNin:
		return true
	}
	return false
}

func accessPolicyValidation(fl validator.FieldLevel) bool {
	switch AccessPolicy(fl.Field().String()) {
	case AccessOpen, AccessInvite:
		return true
	}
	return false
}

// validateStepGraph enforces the structural invariants of a step sequence:
// strictly ascending orders, unique step ids, exactly one config variant matching
// each step's type, and upsell links resolving to downsell steps.
func validateStepGraph(steps []Step) error {
	fldErr := func(i int, msg string) error {
		return core.NewValidationError(errStepGraph, core.FieldError{
			Field: fmt.Sprintf("steps[%d]", i),
			Error: msg,
		})
	}

	seen := make(map[string]struct{}, len(steps))
	lastOrder := -1
	for i, s := range steps {
		if _, ok := seen[s.ID]; ok {
			return fldErr(i, "duplicate step id "+s.ID)
		}
		seen[s.ID] = struct{}{}

		if s.Order <= lastOrder {
			return fldErr(i, "step orders must be strictly ascending")
		}
		lastOrder = s.Order

		set := s.Config.setTypes()
		if len(set) != 1 || set[0] != s.Type {
			return fldErr(i, fmt.Sprintf("config must set exactly the %q variant", s.Type))
		}

		if s.LinkedDownsellStepID != "" && s.Type != StepUpsell {
			return fldErr(i, "linked_downsell_step_id is only allowed on upsell steps")
		}
	}

	for i, s := range steps {
		if s.Type != StepUpsell || s.LinkedDownsellStepID == "" {
			continue
		}
		var linked *Step
		for j := range steps {
			if steps[j].ID == s.LinkedDownsellStepID {
				linked = &steps[j]
				break
			}
		}
		if linked == nil {
			return fldErr(i, "linked downsell step not found: "+s.LinkedDownsellStepID)
		}
		if linked.Type != StepDownsell {
			return fldErr(i, "linked step "+linked.ID+" is not a downsell")
		}
	}
	return nil
}
