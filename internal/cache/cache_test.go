package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/folio/internal/profile"
)

func TestLoad_Missing(t *testing.T) {
	s := New(t.TempDir())
	_, ok := s.Load()
	assert.False(t, ok)
}

func TestSaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s := New(dir)

	doc, err := profile.NewDocument().With(profile.KeyHero, profile.Hero{Name: "Ada", Tagline: "new"})
	require.NoError(t, err)
	s.Save(doc)

	got, ok := s.Load()
	require.True(t, ok)
	assert.Equal(t, "new", got.Hero().Tagline)
	assert.Equal(t, doc.Bytes(), got.Bytes())

	raw, err := os.ReadFile(filepath.Join(dir, "profileData.json"))
	require.NoError(t, err)
	assert.Equal(t, doc.Bytes(), raw)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLoad_CorruptReadsAsAbsent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profileData.json"), []byte("{not json"), 0o600))

	_, ok := New(dir).Load()
	assert.False(t, ok)
}

func TestSave_FailureIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	// The cache dir cannot be created below a regular file.
	s := New(filepath.Join(blocker, "cache"))
	assert.NotPanics(t, func() { s.Save(profile.Default()) })
	_, ok := s.Load()
	assert.False(t, ok)
}

func TestGetPutDelete(t *testing.T) {
	s := New(t.TempDir())

	type state struct {
		Token string `json:"token"`
	}
	var got state
	ok, err := s.Get("session", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put("session", state{Token: "abc"}))
	ok, err = s.Get("session", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", got.Token)

	require.NoError(t, s.Delete("session"))
	require.NoError(t, s.Delete("session"))
	ok, err = s.Get("session", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
