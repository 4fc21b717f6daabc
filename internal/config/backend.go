package config

import (
	"fmt"
	"math"
	"strconv"
)

// Backend is where non-secret settings persist between runs. Values are
// addressed by dotted key names such as "server.port".
type Backend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}

// toInt converts a stored value to an int. JSON numbers arrive as float64
// and the defaults tool returns text.
func toInt(key string, v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case float64:
		if val < math.MinInt || val > math.MaxInt || val != math.Trunc(val) {
			return 0, fmt.Errorf("value %v for %s is not a valid integer or is out of range", val, key)
		}
		return int(val), nil
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("invalid type %T for %s", v, key)
	}
}
