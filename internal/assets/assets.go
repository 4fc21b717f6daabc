// Package assets stores files uploaded for the portfolio: profile photos,
// project media, event images and resume or thesis PDFs.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/kalambet/folio/internal/storage"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
)

// DefaultMaxBytes is the upload limit when none is configured.
const DefaultMaxBytes = 10 << 20

// MetaStore records asset metadata. Implemented by storage.Store.
type MetaStore interface {
	SaveAsset(ctx context.Context, a storage.Asset) error
	GetAsset(ctx context.Context, id string) (storage.Asset, error)
	DeleteAsset(ctx context.Context, id string) error
}

// extension fallbacks for types mime.ExtensionsByType may not know.
var typeExts = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/ogg":       ".ogg",
	"video/quicktime": ".mov",
}

var extTypes = func() map[string]string {
	m := map[string]string{".jpeg": "image/jpeg"}
	for ct, ext := range typeExts {
		m[ext] = ct
	}
	return m
}()

// Store keeps file bodies on disk under dir and metadata in a MetaStore.
type Store struct {
	dir      string
	meta     MetaStore
	maxBytes int64
}

func New(dir string, meta MetaStore, maxBytes int64) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{dir: dir, meta: meta, maxBytes: maxBytes}
}

func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Put validates and stores an upload for ownerID. Images, videos and
// PDFs are accepted; PDFs must parse and contain at least one page.
func (s *Store) Put(ctx context.Context, ownerID, name string, r io.Reader) (storage.Asset, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return storage.Asset{}, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return storage.Asset{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
	}
	if len(data) == 0 {
		return storage.Asset{}, fmt.Errorf("%w: empty file", ErrUnsupportedType)
	}

	ct := DetectType(name, data)
	if !Allowed(ct) {
		return storage.Asset{}, fmt.Errorf("%w: %s", ErrUnsupportedType, ct)
	}
	if ct == "application/pdf" {
		if err := checkPDF(data); err != nil {
			return storage.Asset{}, err
		}
	}

	now := time.Now().UTC()
	id := uuid.New().String()
	rel := path.Join(ownerID, strconv.FormatInt(now.UnixMilli(), 10)+"-"+id[:8]+extFor(name, ct))
	full := filepath.Join(s.dir, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return storage.Asset{}, fmt.Errorf("creating asset dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return storage.Asset{}, fmt.Errorf("writing asset: %w", err)
	}

	a := storage.Asset{
		ID:          id,
		OwnerID:     ownerID,
		Name:        filepath.Base(name),
		ContentType: ct,
		Size:        int64(len(data)),
		Path:        rel,
		CreatedAt:   now,
	}
	if err := s.meta.SaveAsset(ctx, a); err != nil {
		os.Remove(full)
		return storage.Asset{}, fmt.Errorf("recording asset: %w", err)
	}
	return a, nil
}

// Open returns an asset's metadata and body. The caller closes the file.
func (s *Store) Open(ctx context.Context, id string) (storage.Asset, *os.File, error) {
	a, err := s.meta.GetAsset(ctx, id)
	if err != nil {
		return storage.Asset{}, nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, filepath.FromSlash(a.Path)))
	if err != nil {
		return storage.Asset{}, nil, fmt.Errorf("opening asset %s: %w", id, err)
	}
	return a, f, nil
}

// Delete removes an asset's metadata and body.
func (s *Store) Delete(ctx context.Context, id string) error {
	a, err := s.meta.GetAsset(ctx, id)
	if err != nil {
		return err
	}
	if err := s.meta.DeleteAsset(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(a.Path))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing asset file: %w", err)
	}
	return nil
}

// DetectType sniffs the content type, falling back to the file extension
// when sniffing is inconclusive.
func DetectType(name string, data []byte) string {
	ct := http.DetectContentType(data)
	if ct == "application/octet-stream" || strings.HasPrefix(ct, "text/plain") {
		ext := strings.ToLower(filepath.Ext(name))
		if byExt, ok := extTypes[ext]; ok {
			ct = byExt
		} else if byExt := mime.TypeByExtension(ext); byExt != "" {
			ct = byExt
		}
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// Allowed reports whether uploads of content type ct are accepted.
func Allowed(ct string) bool {
	return ct == "application/pdf" || strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/")
}

func extFor(name, ct string) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" && len(ext) <= 6 {
		return ext
	}
	if ext, ok := typeExts[ct]; ok {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(ct); len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func checkPDF(data []byte) (err error) {
	// The reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: unreadable pdf", ErrUnsupportedType)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: unreadable pdf: %v", ErrUnsupportedType, err)
	}
	if r.NumPage() < 1 {
		return fmt.Errorf("%w: pdf has no pages", ErrUnsupportedType)
	}
	return nil
}
