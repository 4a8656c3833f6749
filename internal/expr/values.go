package expr

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Numeric is implemented by values that display as text but compare as
// numbers, such as formatted currency amounts.
type Numeric interface {
	Float64() float64
}

// DateLayout is used when a time.Time reaches Stringify.
const DateLayout = "2006-01-02"

// Stringify renders a resolved value as template text. Missing values
// render as the empty string.
func Stringify(value any) string {
	return StringifyLayout(value, DateLayout)
}

// StringifyLayout is Stringify with dates formatted by layout. An empty
// layout means DateLayout.
func StringifyLayout(value any, layout string) string {
	if layout == "" {
		layout = DateLayout
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(layout)
	case fmt.Stringer:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case []byte:
		return string(v)
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, StringifyLayout(item, layout))
		}
		return strings.Join(parts, ", ")
	case map[string]any, Mapping:
		return ""
	default:
		return fmt.Sprint(value)
	}
}

// Truthy follows the section rules: nil, false, zero, empty strings and
// empty collections are false.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case Numeric:
		return v.Float64() != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case int32:
		return v != 0
	case float64:
		return v != 0
	case float32:
		return v != 0
	case []any:
		return len(v) > 0
	case []string:
		return len(v) > 0
	case []map[string]any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case Mapping:
		return len(v) > 0
	}
	return true
}

// AsList returns the elements of list-shaped values.
func AsList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out, true
	case []Mapping:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case Numeric:
		return v.Float64(), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func isNumberLike(value any) bool {
	switch value.(type) {
	case Numeric, float64, float32, int, int64, int32, uint, uint64:
		return true
	}
	return false
}

// looseEqual compares values the way template authors expect: numbers by
// value, everything else by rendered text. Undefined only equals undefined.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab == bb
		}
	}
	if isNumberLike(a) || isNumberLike(b) {
		af, aok := coerceNumber(a)
		bf, bok := coerceNumber(b)
		if aok && bok {
			return af == bf
		}
	}
	return Stringify(a) == Stringify(b)
}

// compareOrder returns -1, 0 or 1, or false when the values have no order.
func compareOrder(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	af, aok := coerceNumber(a)
	bf, bok := coerceNumber(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.Compare(as, bs), true
	}
	return 0, false
}
