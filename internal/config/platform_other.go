//go:build !darwin

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// xdgDir resolves an XDG base directory, falling back to a path under the
// home directory.
func xdgDir(env string, homeRel ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append([]string{home}, homeRel...)...)
	}
	return "."
}

func defaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "folio")
}

func configFilePath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "folio", "config.json")
}

func secretsFilePath() string {
	return filepath.Join(defaultDataDir(), "secrets.json")
}

func newPlatformBackend() Backend {
	return newFileBackend(configFilePath())
}

func newSecretStore() secretStore {
	return secretsFile{path: secretsFilePath()}
}

func secretHint(account string) string {
	return fmt.Sprintf(" or %s (key: %s/%s)", secretsFilePath(), secretService, account)
}
