// Package options reads typed values from free-form option tables.
package options

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalid is returned when an option has the wrong type or shape.
var ErrInvalid = errors.New("invalid option")

// Map wraps a free-form option table. Values arrive from TOML (int64,
// float64) or JSON (float64), so numeric accessors accept either.
type Map map[string]any

// Int returns key as an int, or def when absent.
func (o Map) Int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	n, ok := toInt(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalid, key, v)
	}
	return n, nil
}

// Float returns key as a float64, or def when absent.
func (o Map) Float(key string, def float64) (float64, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	}
	if n, ok := toInt(v); ok {
		return float64(n), nil
	}
	return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalid, key, v)
}

// Bool returns key as a bool, or def when absent.
func (o Map) Bool(key string, def bool) (bool, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean, got %T", ErrInvalid, key, v)
	}
	return b, nil
}

// String returns key as a string, or def when absent.
func (o Map) String(key, def string) (string, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalid, key, v)
	}
	return s, nil
}

// Ints returns key as an int slice of exactly n elements. ok is false when
// the key is absent.
func (o Map) Ints(key string, n int) (vals []int, ok bool, err error) {
	v, present := o[key]
	if !present {
		return nil, false, nil
	}
	items, isSlice := v.([]any)
	if !isSlice {
		if ints, isInts := v.([]int); isInts {
			items = make([]any, len(ints))
			for i, x := range ints {
				items[i] = x
			}
		} else {
			return nil, false, fmt.Errorf("%w: %s must be a list, got %T", ErrInvalid, key, v)
		}
	}
	if len(items) != n {
		return nil, false, fmt.Errorf("%w: %s must have %d elements, got %d", ErrInvalid, key, n, len(items))
	}
	vals = make([]int, n)
	for i, item := range items {
		x, isInt := toInt(item)
		if !isInt {
			return nil, false, fmt.Errorf("%w: %s[%d] must be an integer, got %T", ErrInvalid, key, i, item)
		}
		vals[i] = x
	}
	return vals, true, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int(n), true
		}
	}
	return 0, false
}
