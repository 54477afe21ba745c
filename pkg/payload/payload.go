// Package payload reads loosely typed upstream JSON with explicit field precedence.
//
// Venue payloads name the same field several ways (id, marketId, slug). Every accessor
// takes the candidate keys in precedence order and the order is behaviourally significant.
package payload

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Object is a decoded JSON object.
type Object map[string]any

// Decode parses body into a generic value. Numbers are kept as json.Number so ids
// survive without float formatting.
func Decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

// AsObject returns v as an Object when it is a JSON object.
func AsObject(v any) (Object, bool) {
	switch o := v.(type) {
	case map[string]any:
		return Object(o), true
	case Object:
		return o, true
	default:
		return nil, false
	}
}

// AsList returns v as a slice when it is a JSON array.
func AsList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// ListOrWrapped accepts either a bare array or an object carrying the array under key.
func ListOrWrapped(v any, key string) ([]any, bool) {
	if l, ok := AsList(v); ok {
		return l, true
	}
	if o, ok := AsObject(v); ok {
		return o.List(key)
	}
	return nil, false
}

// String returns the first key holding a non-empty scalar, as text.
// Empty strings, zero numbers, booleans and null are skipped.
func (o Object) String(keys ...string) string {
	for _, k := range keys {
		if s, ok := scalarText(o[k]); ok {
			return s
		}
	}
	return ""
}

// Float returns the first key that is present, non-null and convertible to a number.
// Unlike String, a zero value counts as present.
func (o Object) Float(keys ...string) (float64, bool) {
	for _, k := range keys {
		v, present := o[k]
		if !present || v == nil {
			continue
		}
		if f, ok := ToFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

// Bool reports whether key holds a truthy value.
func (o Object) Bool(key string) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		return parseBool(v)
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case float64:
		return v != 0
	default:
		return false
	}
}

// parseBool accepts strconv's spellings plus yes/no. Anything else is false.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "yes", "y", "on":
		return true
	case "no", "n", "off":
		return false
	}
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// List returns the array stored under key.
func (o Object) List(key string) ([]any, bool) {
	return AsList(o[key])
}

// Raw returns the value under the first present, non-null key.
func (o Object) Raw(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := o[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// ToFloat converts numbers and numeric strings. Non-finite results are rejected.
func ToFloat(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch n := v.(type) {
	case json.Number:
		f, err = n.Float64()
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToInt converts a value to an integer, rejecting fractional numbers.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	f, ok := ToFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func scalarText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		s = strings.TrimSpace(s)
		return s, s != ""
	case json.Number:
		f, err := s.Float64()
		if err != nil || f == 0 {
			return "", false
		}
		return s.String(), true
	case float64:
		if s == 0 {
			return "", false
		}
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		if s == 0 {
			return "", false
		}
		return strconv.Itoa(s), true
	default:
		return "", false
	}
}
