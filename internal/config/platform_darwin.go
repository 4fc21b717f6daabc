//go:build darwin

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultsDomain = "com.folio.app"

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Library", "Application Support", "folio")
	}
	return "folio-data"
}

func newPlatformBackend() Backend {
	return &defaultsBackend{domain: defaultsDomain, run: execRunner}
}

func newSecretStore() secretStore {
	return securityKeychain{run: execRunner}
}

func secretHint(account string) string {
	return fmt.Sprintf(" or the macOS Keychain (service: %s, account: %s)", secretService, account)
}
