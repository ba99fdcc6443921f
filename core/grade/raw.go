package grade

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawGrade is a grade record as decoded from the upstream, field names unchanged.
type RawGrade map[string]interface{}

// OptionalString returns the first non-empty value among keys, formatted as a string.
func (r RawGrade) OptionalString(keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := stringify(r[key]); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// StringOr returns the first non-empty value among keys, or def.
func (r RawGrade) StringOr(def string, keys ...string) string {
	if s, ok := r.OptionalString(keys...); ok {
		return s
	}
	return def
}

// NumericLike parses the value under key as a grade value, returning it with its display form.
func (r RawGrade) NumericLike(key string) (float64, string, bool) {
	display, ok := r.OptionalString(key)
	if !ok {
		return 0, "", false
	}
	value, ok := ParseValue(display)
	return value, display, ok
}

func stringify(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	}
	return "", false
}
