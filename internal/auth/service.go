// Package auth decides who may write the profile document: a server-side
// Service that signs the single owner in, and a client-side Gate that holds
// the signed-in identity between commands.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kalambet/folio/internal/storage"
)

var (
	// ErrInvalidCredentials is returned by SignIn for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized is returned when a token is missing, malformed, expired or revoked.
	ErrUnauthorized = errors.New("unauthorized")
)

const issuer = "folio"

// Identity is an authenticated owner.
type Identity struct {
	OwnerID   string    `json:"owner_id"`
	Email     string    `json:"email"`
	SessionID string    `json:"session_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Token is a signed access token and the identity it carries.
type Token struct {
	Value    string
	Identity Identity
}

// Store is the persistence the Service needs. Implemented by storage.Store.
type Store interface {
	CreateOwner(ctx context.Context, o storage.Owner) error
	GetOwner(ctx context.Context, id string) (storage.Owner, error)
	GetOwnerByEmail(ctx context.Context, email string) (storage.Owner, error)
	ListOwners(ctx context.Context) ([]storage.Owner, error)
	UpdateOwnerPassword(ctx context.Context, id, passwordHash string) error
	CreateSession(ctx context.Context, s storage.Session) error
	GetSession(ctx context.Context, id string) (storage.Session, error)
	RevokeSession(ctx context.Context, id string, at time.Time) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service issues and verifies owner access tokens.
type Service struct {
	store  Store
	secret []byte
	ttl    time.Duration
	clock  Clock
	cost   int
}

// NewService creates a Service signing HS256 tokens with secret.
func NewService(store Store, secret []byte, ttl time.Duration) *Service {
	return &Service{store: store, secret: secret, ttl: ttl, clock: realClock{}, cost: bcrypt.DefaultCost}
}

// NewServiceWithClock creates a Service with a custom clock (for testing).
// It also uses the minimum bcrypt cost to keep tests fast.
func NewServiceWithClock(store Store, secret []byte, ttl time.Duration, clock Clock) *Service {
	s := NewService(store, secret, ttl)
	s.clock = clock
	s.cost = bcrypt.MinCost
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnsureOwner makes the configured account the portfolio owner. It creates
// the owner on first run and updates the stored password when it changed.
// A second, different owner is refused.
func (s *Service) EnsureOwner(ctx context.Context, email, password string) (storage.Owner, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return storage.Owner{}, errors.New("owner email and password are required")
	}

	owner, err := s.store.GetOwnerByEmail(ctx, email)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte(password)) == nil {
			return owner, nil
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return storage.Owner{}, fmt.Errorf("hashing password: %w", err)
		}
		if err := s.store.UpdateOwnerPassword(ctx, owner.ID, string(hash)); err != nil {
			return storage.Owner{}, fmt.Errorf("updating owner password: %w", err)
		}
		owner.PasswordHash = string(hash)
		return owner, nil
	case !errors.Is(err, storage.ErrNotFound):
		return storage.Owner{}, fmt.Errorf("looking up owner: %w", err)
	}

	existing, err := s.store.ListOwners(ctx)
	if err != nil {
		return storage.Owner{}, fmt.Errorf("listing owners: %w", err)
	}
	if len(existing) > 0 {
		return storage.Owner{}, fmt.Errorf("portfolio already has an owner (%s)", existing[0].Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return storage.Owner{}, fmt.Errorf("hashing password: %w", err)
	}
	owner = storage.Owner{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.store.CreateOwner(ctx, owner); err != nil {
		return storage.Owner{}, err
	}
	return owner, nil
}

// SignIn checks the owner's credentials and opens a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Token, error) {
	owner, err := s.store.GetOwnerByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, storage.ErrNotFound) {
		return Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return Token{}, fmt.Errorf("looking up owner: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte(password)); err != nil {
		return Token{}, ErrInvalidCredentials
	}

	now := s.clock.Now().UTC()
	sess := storage.Session{
		ID:        uuid.New().String(),
		OwnerID:   owner.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return Token{}, fmt.Errorf("creating session: %w", err)
	}

	c := claims{
		Email: owner.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   owner.ID,
			ID:        sess.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("signing token: %w", err)
	}
	return Token{
		Value: signed,
		Identity: Identity{
			OwnerID:   owner.ID,
			Email:     owner.Email,
			SessionID: sess.ID,
			ExpiresAt: sess.ExpiresAt.Truncate(time.Second),
		},
	}, nil
}

// Verify checks the token signature and expiry and that its session is
// still open.
func (s *Service) Verify(ctx context.Context, token string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	sess, err := s.store.GetSession(ctx, c.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return Identity{}, fmt.Errorf("%w: unknown session", ErrUnauthorized)
	}
	if err != nil {
		return Identity{}, fmt.Errorf("loading session: %w", err)
	}
	if sess.OwnerID != c.Subject || !sess.Active(s.clock.Now()) {
		return Identity{}, fmt.Errorf("%w: session is no longer active", ErrUnauthorized)
	}

	return Identity{
		OwnerID:   c.Subject,
		Email:     c.Email,
		SessionID: sess.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// SignOut revokes the session behind token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	id, err := s.Verify(ctx, token)
	if err != nil {
		return err
	}
	if err := s.store.RevokeSession(ctx, id.SessionID, s.clock.Now().UTC()); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}
