package config

import (
	"fmt"
	"sort"
	"time"
)

// KeyInfo is one setting as shown by `folio config show`.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll lists every non-secret setting of cfg sorted by key.
func ShowAll(cfg Config) []KeyInfo {
	out := make([]KeyInfo, 0, len(specs))
	for _, s := range specs {
		if s.secret {
			continue
		}
		v := s.extract(cfg)
		if d, ok := v.(time.Duration); ok {
			v = d.String()
		}
		out = append(out, KeyInfo{Key: s.key, EnvVar: s.env, Value: fmt.Sprint(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ValidKeys returns the names accepted by SetKey and UnsetKey.
func ValidKeys() []string {
	keys := make([]string, 0, len(specs))
	for _, s := range specs {
		if !s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}

// SetKey persists one setting in the platform backend.
func SetKey(key, value string) error {
	return setKey(newPlatformBackend(), key, value)
}

// UnsetKey removes a persisted setting so its default applies again.
func UnsetKey(key string) error {
	return unsetKey(newPlatformBackend(), key)
}

func settable(key string) (keySpec, error) {
	s, ok := lookup(key)
	if !ok {
		return keySpec{}, fmt.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		return keySpec{}, fmt.Errorf("cannot set secret %q via config; use environment variable %s%s", key, s.env, secretHint(secretAccount(key)))
	}
	return s, nil
}

func setKey(b Backend, key, value string) error {
	s, err := settable(key)
	if err != nil {
		return err
	}
	v, err := s.parse(value)
	if err != nil {
		return err
	}
	if i, ok := v.(int); ok {
		return b.SetInt(key, i)
	}
	// Durations are stored in their text form.
	return b.SetString(key, value)
}

func unsetKey(b Backend, key string) error {
	if _, err := settable(key); err != nil {
		return err
	}
	return b.Delete(key)
}
