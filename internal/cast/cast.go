// Package cast converts loosely typed invocation parameter values (decoded YAML or JSON)
// into the typed values provider SDKs expect.
package cast

import (
	"encoding/json"
	"math"
	"reflect"
)

// ToFloat64 converts any integer or float kind, or a json.Number, to float64.
func ToFloat64(v any) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return float64(rv.Int()), true
	case rv.CanUint():
		return float64(rv.Uint()), true
	case rv.CanFloat():
		return rv.Float(), true
	}
	return 0, false
}

// ToInt64 converts a numeric value to int64. Floats are truncated; NaN and
// infinities are rejected; unsigned values above math.MaxInt64 are clamped.
func ToInt64(v any) (int64, bool) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return ToInt64(f)
	}
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return rv.Int(), true
	case rv.CanUint():
		return int64(min(rv.Uint(), math.MaxInt64)), true
	case rv.CanFloat():
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

// ToInt32 is ToInt64 clamped to the int32 range.
func ToInt32(v any) (int32, bool) {
	i, ok := ToInt64(v)
	if !ok {
		return 0, false
	}
	return int32(max(min(i, math.MaxInt32), math.MinInt32)), true
}

// ToStringSlice accepts a single string, a []string, or a []any of strings.
func ToStringSlice(v any) ([]string, bool) {
	switch x := v.(type) {
	case string:
		return []string{x}, true
	case []string:
		return x, true
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// ToBool does not parse strings.
func ToBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}
