package funnel

import "reflect"

// ShowIf operators
const (
	OpEq  ShowIfOp = "eq"
	OpNeq ShowIfOp = "neq"
	OpIn  ShowIfOp = "in"
	OpNin ShowIfOp = "nin"
)

type (
	ShowIfOp string

	// ShowIfRule is a per-step conditional-display rule evaluated against the
	// session's accumulated answer data.
	ShowIfRule struct {
		Field string      `json:"field" bson:"field" validate:"required,fieldkey"`
		Op    ShowIfOp    `json:"operator" bson:"operator" validate:"required,showifop"`
		Value interface{} `json:"value" bson:"value"`
	}
)

// Eval reports whether the rule holds for the given answer data.
//
// Absent-field policy: a field missing from data is a distinct "unset" value, never
// equal to any comparison value and never a member of any list. So eq and in
// evaluate to false, neq and nin to true.
func (r ShowIfRule) Eval(data map[string]interface{}) bool {
	got, present := data[r.Field]

	switch r.Op {
	case OpEq:
		return present && looseEqual(got, r.Value)
	case OpNeq:
		return !present || !looseEqual(got, r.Value)
	case OpIn:
		return present && contains(r.Value, got)
	case OpNin:
		return !present || !contains(r.Value, got)
	}
	return false
}

// contains tests membership of v in list. A non-list comparison value has no members.
func contains(list, v interface{}) bool {
	rv := reflect.ValueOf(list)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if looseEqual(rv.Index(i).Interface(), v) {
			return true
		}
	}
	return false
}

// looseEqual compares answer values the way they round-trip through JSON/BSON:
// all numerics compare by value (an int 3 stored server-side equals the float64 3
// a JSON decode produces), everything else by deep equality.
func looseEqual(a, b interface{}) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
