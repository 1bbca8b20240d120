package model

import (
	"fmt"
	"math"
)

// ParamInt converts a SetParams value to int. Integral floats are accepted.
func ParamInt(key string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("parameter %s: expected integer, got %T(%v)", key, value, value)
}

// ParamInt64 converts a SetParams value to int64.
func ParamInt64(key string, value interface{}) (int64, error) {
	if v, ok := value.(int64); ok {
		return v, nil
	}
	i, err := ParamInt(key, value)
	return int64(i), err
}

// ParamFloat converts a SetParams value to float64.
func ParamFloat(key string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("parameter %s: expected number, got %T(%v)", key, value, value)
}

// ParamBool converts a SetParams value to bool.
func ParamBool(key string, value interface{}) (bool, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return false, fmt.Errorf("parameter %s: expected bool, got %T(%v)", key, value, value)
}
