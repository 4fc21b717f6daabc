package config

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// runner executes an external tool and returns its combined output.
type runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// defaultsBackend stores settings in macOS user defaults through the
// defaults tool.
type defaultsBackend struct {
	domain string
	run    runner
}

func (b *defaultsBackend) read(key string) (string, bool, error) {
	out, err := b.run("defaults", "read", b.domain, key)
	s := strings.TrimSpace(string(out))
	if err != nil {
		// defaults exits 1 when the key does not exist.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading default %s: %w (output: %s)", key, err, s)
	}
	return s, true, nil
}

func (b *defaultsBackend) write(key string, args ...string) error {
	out, err := b.run("defaults", append([]string{"write", b.domain, key}, args...)...)
	if err != nil {
		return fmt.Errorf("writing default %s: %w (output: %s)", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (b *defaultsBackend) GetString(key string) (string, bool, error) {
	return b.read(key)
}

func (b *defaultsBackend) GetInt(key string) (int, bool, error) {
	s, ok, err := b.read(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := toInt(key, s)
	return i, true, err
}

func (b *defaultsBackend) SetString(key, val string) error {
	return b.write(key, "-string", val)
}

func (b *defaultsBackend) SetInt(key string, val int) error {
	return b.write(key, "-int", strconv.Itoa(val))
}

func (b *defaultsBackend) Delete(key string) error {
	if _, ok, err := b.read(key); err != nil || !ok {
		return err
	}
	if out, err := b.run("defaults", "delete", b.domain, key); err != nil {
		return fmt.Errorf("deleting default %s: %w (output: %s)", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}
