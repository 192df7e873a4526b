package formkit

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// IsTruthy reports whether a value counts as "present".
// nil, false, 0, NaN, "" and empty lists are falsy. Everything else is truthy.
func IsTruthy(value any) bool {
	if value == nil {
		return false
	}

	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	case string:
		return v != ""
	case []string:
		return len(v) > 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

// valueLength returns the length of string-like and list values.
// ok is false for values that have no length (numbers, booleans, nil).
func valueLength(value any) (int, bool) {
	switch v := value.(type) {
	case string:
		return utf8.RuneCountInString(v), true
	case []string:
		return len(v), true
	case []any:
		return len(v), true
	default:
		return 0, false
	}
}

// toText renders a value the way a text input would show it.
func toText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, len(v))
		for i, elem := range v {
			parts[i] = toText(elem)
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

// toFloat coerces a value to a number.
// Numeric strings are parsed after trimming; anything else is not a number.
// NaN and the infinities ("inf", "Infinity", overflow) are not numbers either.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if !isFinite(n) {
			return 0, false
		}
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || !isFinite(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// parseDate parses a calendar date value (string or time.Time).
// Supports ISO 8601 formats.
func parseDate(v any) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}

	switch d := v.(type) {
	case time.Time:
		return d, !d.IsZero()
	case string:
		s := strings.TrimSpace(d)
		formats := []string{
			"2006-01-02",
			"2006-01-02T15:04:05",
			time.RFC3339,
			time.RFC3339Nano,
		}
		for _, format := range formats {
			if t, err := time.Parse(format, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// NormalizeValue converts decoded values (JSON, YAML, msgpack) into the
// canonical shapes the engine works with: string, float64, bool, []string
// and nil. Lists whose elements are all scalars become []string.
func NormalizeValue(value any) any {
	switch v := value.(type) {
	case nil, string, bool, float64:
		return v
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			out = append(out, toText(NormalizeValue(elem)))
		}
		return out
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return v
	}
}

// NormalizeFields returns a copy of fields with every default value normalised.
func NormalizeFields(fields []FieldDefinition) []FieldDefinition {
	out := CloneFields(fields)
	for i := range out {
		out[i].DefaultValue = NormalizeValue(out[i].DefaultValue)
	}
	return out
}

// cloneValue copies list values so maps handed out never alias internal state.
func cloneValue(value any) any {
	switch v := value.(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		return append([]any{}, v...)
	default:
		return v
	}
}

// valuesEqual compares two values, treating numbers and numeric strings alike.
// nil == nil is true, nil == anything_else is false.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	aNum, aOk := toFloat(a)
	bNum, bOk := toFloat(b)
	if aOk && bOk {
		return aNum == bNum
	}

	return toText(a) == toText(b)
}
