package region

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CodeString renders a code value the way it is keyed in a StatsIndex.
// Integral numbers print without a fraction; width > 0 left-pads with zeros.
func CodeString(v any, width int) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		s = strings.Trim(string(b), `"`)
	}
	if width > 0 && len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

// Number coerces a decoded JSON value to a float. nil, non-numeric strings and
// NaN yield nil so that absence stays distinguishable from zero.
func Number(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case *float64:
		if t == nil {
			return nil
		}
		f = *t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) {
		return nil
	}
	return &f
}

// Count coerces a decoded JSON value to an integer count, nil when absent.
func Count(v any) *int64 {
	f := Number(v)
	if f == nil {
		return nil
	}
	n := int64(math.Round(*f))
	return &n
}

// Text returns v as a string when it is a non-empty string.
func Text(v any) string {
	s, _ := v.(string)
	return s
}

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// Int returns a pointer to n.
func Int(n int64) *int64 { return &n }
