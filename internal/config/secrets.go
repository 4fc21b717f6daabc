package config

import (
	"errors"
	"fmt"
	"strings"
)

// secretStore holds values that must not live in the settings backend.
type secretStore interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

// secretsFile keeps secrets in a private JSON file, one key per
// service/account pair.
type secretsFile struct {
	path string
}

func (s secretsFile) open() (*fileBackend, error) {
	b := &fileBackend{path: s.path, data: make(map[string]any)}
	if err := b.load(); err != nil {
		return nil, err
	}
	return b, nil
}

func (s secretsFile) Get(service, account string) (string, error) {
	b, err := s.open()
	if err != nil {
		return "", err
	}
	v, ok, _ := b.GetString(service + "/" + account)
	if !ok {
		return "", fmt.Errorf("secret %s/%s not found in %s", service, account, s.path)
	}
	return v, nil
}

func (s secretsFile) Set(service, account, value string) error {
	b, err := s.open()
	if err != nil {
		return err
	}
	return b.SetString(service+"/"+account, value)
}

// securityKeychain reads and writes generic passwords in the macOS login
// keychain through the security tool.
type securityKeychain struct {
	run runner
}

func (k securityKeychain) Get(service, account string) (string, error) {
	out, err := k.run("security", "find-generic-password", "-s", service, "-a", account, "-w")
	if err != nil {
		return "", fmt.Errorf("keychain item %s/%s: %w", service, account, err)
	}
	v := strings.TrimSpace(string(out))
	if v == "" {
		return "", errors.New("empty keychain item")
	}
	return v, nil
}

func (k securityKeychain) Set(service, account, value string) error {
	if _, err := k.run("security", "add-generic-password", "-U", "-s", service, "-a", account, "-w", value); err != nil {
		return fmt.Errorf("storing keychain item %s/%s: %w", service, account, err)
	}
	return nil
}
