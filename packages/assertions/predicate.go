package assertions

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Predicate is a composable test over a decoded JSON value. The zero value
// never passes.
type Predicate struct {
	desc string
	test func(actual any) (bool, string)
}

// NewPredicate wraps a custom test function. The test returns a message
// explaining the mismatch when it fails.
func NewPredicate(desc string, test func(actual any) (bool, string)) Predicate {
	return Predicate{desc: desc, test: test}
}

// Describe returns a human-readable form of the expectation.
func (p Predicate) Describe() string {
	if p.desc == "" {
		return "<empty predicate>"
	}
	return p.desc
}

func (p Predicate) String() string {
	return p.Describe()
}

// IsZero reports whether p was never initialized.
func (p Predicate) IsZero() bool {
	return p.test == nil
}

// Test applies the predicate to actual.
func (p Predicate) Test(actual any) (bool, string) {
	if p.test == nil {
		return false, "empty predicate"
	}
	return p.test(actual)
}

func Equal(expected any) Predicate {
	return Predicate{
		desc: "equal to " + formatExpected(expected),
		test: func(actual any) (bool, string) {
			if equals(actual, expected) {
				return true, ""
			}
			return false, fmt.Sprintf("expected %s, got %s", formatExpected(expected), formatExpected(actual))
		},
	}
}

func Null() Predicate {
	return Predicate{
		desc: "null",
		test: func(actual any) (bool, string) {
			if actual == nil {
				return true, ""
			}
			return false, fmt.Sprintf("expected null, got %s", formatExpected(actual))
		},
	}
}

// AnyOf passes when at least one of ps passes. With no sub-predicates it
// never passes.
func AnyOf(ps ...Predicate) Predicate {
	descs := make([]string, len(ps))
	for i, p := range ps {
		descs[i] = p.Describe()
	}
	return Predicate{
		desc: "any of (" + strings.Join(descs, ", ") + ")",
		test: func(actual any) (bool, string) {
			msgs := make([]string, 0, len(ps))
			for _, p := range ps {
				passed, msg := p.Test(actual)
				if passed {
					return true, ""
				}
				msgs = append(msgs, msg)
			}
			return false, "no alternative matched: " + strings.Join(msgs, "; ")
		},
	}
}

// EveryItem passes when actual is an array whose elements all satisfy p.
// An empty array passes.
func EveryItem(p Predicate) Predicate {
	return Predicate{
		desc: "every item " + p.Describe(),
		test: func(actual any) (bool, string) {
			items, ok := actual.([]any)
			if !ok {
				return false, fmt.Sprintf("expected array, got %s", typeName(actual))
			}
			for i, item := range items {
				if passed, msg := p.Test(item); !passed {
					return false, fmt.Sprintf("item[%d]: %s", i, msg)
				}
			}
			return true, ""
		},
	}
}

// Is matches the whole body against a literal. When the literal is JSON the
// comparison is structural, otherwise it compares trimmed text.
func Is(literal string) Predicate {
	var want any
	wantErr := json.Unmarshal([]byte(literal), &want)
	return Predicate{
		desc: "is " + literal,
		test: func(actual any) (bool, string) {
			if wantErr == nil && equals(actual, want) {
				return true, ""
			}
			if s, ok := actual.(string); ok && strings.TrimSpace(s) == strings.TrimSpace(literal) {
				return true, ""
			}
			return false, fmt.Sprintf("expected %s, got %s", literal, formatExpected(actual))
		},
	}
}

func equals(actual, expected any) bool {
	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if aOk || eOk {
		return aOk && eOk && actualNum == expectedNum
	}

	if reflect.DeepEqual(actual, expected) {
		return true
	}

	// Composite values from different sources (gjson, yaml, Go literals)
	// are compared through their JSON form.
	switch reflect.ValueOf(expected).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		return reflect.DeepEqual(canonical(actual), canonical(expected))
	}
	return false
}

func canonical(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if _, ok := toFloat64(v); ok {
		return "number"
	}
	return reflect.TypeOf(v).String()
}

// formatExpected renders a value for messages, quoting strings and
// summarizing large composites.
func formatExpected(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", val)
	case []any:
		if len(val) > 5 {
			return fmt.Sprintf("[array with %d items]", len(val))
		}
	case map[string]any:
		if len(val) > 5 {
			return fmt.Sprintf("{object with %d keys}", len(val))
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
