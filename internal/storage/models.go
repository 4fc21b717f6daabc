package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert violates a uniqueness constraint.
	ErrConflict = errors.New("already exists")
)

type Owner struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type Session struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Active reports whether the session can still authorize requests at now.
func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Document is the stored profile document of one owner. Data is the
// serialized document exactly as it was written.
type Document struct {
	OwnerID   string
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Asset struct {
	ID          string
	OwnerID     string
	Name        string
	ContentType string
	Size        int64
	Path        string // relative to the asset directory
	CreatedAt   time.Time
}
