package funnel

import "testing"

func TestShowIfRule_Eval(t *testing.T) {
	data := map[string]interface{}{
		"goal":     "lose_weight",
		"age":      float64(34), // as a JSON decode produces
		"injuries": []interface{}{"knee", "back"},
	}

	tests := []struct {
		name string
		rule ShowIfRule
		want bool
	}{
		{name: "eq match", rule: ShowIfRule{Field: "goal", Op: OpEq, Value: "lose_weight"}, want: true},
		{name: "eq mismatch", rule: ShowIfRule{Field: "goal", Op: OpEq, Value: "gain_muscle"}, want: false},
		{name: "eq numeric int vs float64", rule: ShowIfRule{Field: "age", Op: OpEq, Value: 34}, want: true},
		{name: "neq match", rule: ShowIfRule{Field: "goal", Op: OpNeq, Value: "gain_muscle"}, want: true},
		{name: "neq mismatch", rule: ShowIfRule{Field: "goal", Op: OpNeq, Value: "lose_weight"}, want: false},
		{name: "in member", rule: ShowIfRule{Field: "goal", Op: OpIn, Value: []interface{}{"lose_weight", "tone"}}, want: true},
		{name: "in non-member", rule: ShowIfRule{Field: "goal", Op: OpIn, Value: []interface{}{"gain_muscle", "tone"}}, want: false},
		{name: "in non-list value", rule: ShowIfRule{Field: "goal", Op: OpIn, Value: "lose_weight"}, want: false},
		{name: "in numeric members", rule: ShowIfRule{Field: "age", Op: OpIn, Value: []interface{}{30, 34}}, want: true},
		{name: "nin non-member", rule: ShowIfRule{Field: "goal", Op: OpNin, Value: []interface{}{"gain_muscle"}}, want: true},
		{name: "nin member", rule: ShowIfRule{Field: "goal", Op: OpNin, Value: []interface{}{"lose_weight"}}, want: false},
		{name: "unknown operator", rule: ShowIfRule{Field: "goal", Op: "matches", Value: "lose_weight"}, want: false},

		// a missing field is a distinct unset value
		{name: "absent field: eq", rule: ShowIfRule{Field: "diet", Op: OpEq, Value: "vegan"}, want: false},
		{name: "absent field: eq nil", rule: ShowIfRule{Field: "diet", Op: OpEq, Value: nil}, want: false},
		{name: "absent field: neq", rule: ShowIfRule{Field: "diet", Op: OpNeq, Value: "vegan"}, want: true},
		{name: "absent field: in", rule: ShowIfRule{Field: "diet", Op: OpIn, Value: []interface{}{"vegan"}}, want: false},
		{name: "absent field: nin", rule: ShowIfRule{Field: "diet", Op: OpNin, Value: []interface{}{"vegan"}}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Eval(data); got != tt.want {
				t.Errorf("Eval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShowIfRule_Eval_nilStoredValue(t *testing.T) {
	// a field explicitly set to nil is present, unlike a missing one
	data := map[string]interface{}{"diet": nil}

	if got := (ShowIfRule{Field: "diet", Op: OpEq, Value: nil}).Eval(data); !got {
		t.Errorf("Eval(eq nil) = %v, want true", got)
	}
	if got := (ShowIfRule{Field: "diet", Op: OpNeq, Value: nil}).Eval(data); got {
		t.Errorf("Eval(neq nil) = %v, want false", got)
	}
}
