// Package cache is the on-device store: the last known profile document
// plus small JSON state files such as the signed-in session.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kalambet/folio/internal/profile"
)

// DocumentKey is the well-known key the document is stored under.
const DocumentKey = "profileData"

// Store keeps whole JSON values under string keys, one file per key.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New returns a Store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{dir: dir, logger: slog.Default()}
}

// WithLogger returns a copy of s logging to l.
func (s *Store) WithLogger(l *slog.Logger) *Store {
	cp := *s
	cp.logger = l
	return &cp
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load returns the cached document. A missing, unreadable or corrupt file
// reads as absent.
func (s *Store) Load() (profile.Document, bool) {
	data, err := os.ReadFile(s.path(DocumentKey))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("reading cached document failed", "path", s.path(DocumentKey), "error", err)
		}
		return profile.Document{}, false
	}
	doc, err := profile.ParseDocument(data)
	if err != nil {
		s.logger.Warn("cached document is corrupt, ignoring", "path", s.path(DocumentKey), "error", err)
		return profile.Document{}, false
	}
	return doc, true
}

// Save writes the whole document. Failures are logged and otherwise ignored.
func (s *Store) Save(doc profile.Document) {
	data, err := doc.MarshalJSON()
	if err == nil {
		err = s.write(DocumentKey, data)
	}
	if err != nil {
		s.logger.Warn("caching document failed", "path", s.path(DocumentKey), "error", err)
	}
}

// Get decodes the value stored under key into v. It reports false when
// nothing is stored.
func (s *Store) Get(key string, v any) (bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// Put stores v under key, replacing any previous value.
func (s *Store) Put(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.write(key, data)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// write replaces the file for key via a temp file and rename, so readers
// see either the old or the new value in full.
func (s *Store) write(key string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(key))
}
