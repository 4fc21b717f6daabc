package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour a Store speaks.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Store wraps a SQL database with methods for owners, sessions, the profile
// document and uploaded assets.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// sqlitePragmas apply to every pooled connection through the DSN.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// Open opens the SQLite database folio.db in dataDir, creating it when
// needed. dataDir ":memory:" gives a private in-memory database.
func Open(dataDir string) (*Store, error) {
	path := ":memory:"
	if dataDir != path {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		path = filepath.Join(dataDir, "folio.db")
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}
	return newStore(context.Background(), db, SQLite)
}

// Connect opens the store named by driver: "sqlite" uses dataDir, "postgres" uses dsn.
func Connect(ctx context.Context, driver, dataDir, dsn string) (*Store, error) {
	switch Dialect(driver) {
	case "", SQLite:
		return Open(dataDir)
	case Postgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func newStore(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Dialect() Dialect { return s.dialect }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

// timeLayout is fixed width so stored timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(field, v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", field, err)
	}
	return t, nil
}

// isUniqueViolation recognises duplicate-key errors from both drivers
// without importing driver-specific error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value")
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Owners ---

// CreateOwner inserts a new owner. A duplicate email yields ErrConflict.
func (s *Store) CreateOwner(ctx context.Context, o Owner) error {
	_, err := s.exec(ctx, `
		INSERT INTO owners (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		o.ID, o.Email, o.PasswordHash, formatTime(o.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("owner %s: %w", o.Email, ErrConflict)
	}
	return err
}

func (s *Store) GetOwner(ctx context.Context, id string) (Owner, error) {
	return s.scanOwner(s.queryRow(ctx, `SELECT id, email, password_hash, created_at FROM owners WHERE id = ?`, id))
}

func (s *Store) GetOwnerByEmail(ctx context.Context, email string) (Owner, error) {
	return s.scanOwner(s.queryRow(ctx, `SELECT id, email, password_hash, created_at FROM owners WHERE email = ?`, email))
}

func (s *Store) scanOwner(row *sql.Row) (Owner, error) {
	var o Owner
	var createdAt string
	err := row.Scan(&o.ID, &o.Email, &o.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Owner{}, ErrNotFound
	}
	if err != nil {
		return Owner{}, err
	}
	if o.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Owner{}, err
	}
	return o, nil
}

func (s *Store) ListOwners(ctx context.Context) ([]Owner, error) {
	rows, err := s.query(ctx, `SELECT id, email, password_hash, created_at FROM owners ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []Owner
	for rows.Next() {
		var o Owner
		var createdAt string
		if err := rows.Scan(&o.ID, &o.Email, &o.PasswordHash, &createdAt); err != nil {
			return nil, err
		}
		if o.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

func (s *Store) UpdateOwnerPassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.exec(ctx, `UPDATE owners SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// --- Sessions ---

func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.exec(ctx, `
		INSERT INTO sessions (id, owner_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.OwnerID, formatTime(sess.CreatedAt), formatTime(sess.ExpiresAt),
	)
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	var createdAt, expiresAt string
	var revokedAt sql.NullString
	err := s.queryRow(ctx, `
		SELECT id, owner_id, created_at, expires_at, revoked_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.OwnerID, &createdAt, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	if sess.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Session{}, err
	}
	if sess.ExpiresAt, err = parseTime("expires_at", expiresAt); err != nil {
		return Session{}, err
	}
	if revokedAt.Valid {
		t, err := parseTime("revoked_at", revokedAt.String)
		if err != nil {
			return Session{}, err
		}
		sess.RevokedAt = &t
	}
	return sess, nil
}

// RevokeSession marks a session revoked. Revoking twice keeps the first time.
func (s *Store) RevokeSession(ctx context.Context, id string, at time.Time) error {
	res, err := s.exec(ctx, `UPDATE sessions SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// DeleteExpiredSessions removes sessions that expired before cutoff and
// returns how many were removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM sessions WHERE expires_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Profile document ---

// UpsertDocument inserts or replaces the document owned by ownerID.
func (s *Store) UpsertDocument(ctx context.Context, ownerID string, data []byte) error {
	now := formatTime(time.Now())
	_, err := s.exec(ctx, `
		INSERT INTO profile_documents (owner_id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		ownerID, string(data), now, now,
	)
	return err
}

func (s *Store) GetDocument(ctx context.Context, ownerID string) (Document, error) {
	return s.scanDocument(s.queryRow(ctx, `
		SELECT owner_id, data, created_at, updated_at FROM profile_documents WHERE owner_id = ?`, ownerID))
}

// FirstDocument returns the earliest stored document. The portfolio has a
// single owner, so this is the document anonymous readers see.
func (s *Store) FirstDocument(ctx context.Context) (Document, error) {
	return s.scanDocument(s.queryRow(ctx, `
		SELECT owner_id, data, created_at, updated_at FROM profile_documents
		ORDER BY created_at ASC, owner_id ASC LIMIT 1`))
}

func (s *Store) scanDocument(row *sql.Row) (Document, error) {
	var d Document
	var data, createdAt, updatedAt string
	err := row.Scan(&d.OwnerID, &data, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	d.Data = []byte(data)
	if d.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Document{}, err
	}
	if d.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return Document{}, err
	}
	return d, nil
}

// --- Assets ---

func (s *Store) SaveAsset(ctx context.Context, a Asset) error {
	_, err := s.exec(ctx, `
		INSERT INTO assets (id, owner_id, name, content_type, size, path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Name, a.ContentType, a.Size, a.Path, formatTime(a.CreatedAt),
	)
	return err
}

const assetColumns = `id, owner_id, name, content_type, size, path, created_at`

func (s *Store) GetAsset(ctx context.Context, id string) (Asset, error) {
	var a Asset
	var createdAt string
	err := s.queryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id).
		Scan(&a.ID, &a.OwnerID, &a.Name, &a.ContentType, &a.Size, &a.Path, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Asset{}, ErrNotFound
	}
	if err != nil {
		return Asset{}, err
	}
	if a.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Asset{}, err
	}
	return a, nil
}

// ListAssets returns an owner's assets, newest first.
func (s *Store) ListAssets(ctx context.Context, ownerID string, limit int) ([]Asset, error) {
	rows, err := s.query(ctx, `
		SELECT `+assetColumns+` FROM assets WHERE owner_id = ?
		ORDER BY created_at DESC LIMIT ?`, ownerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Asset
	for rows.Next() {
		var a Asset
		var createdAt string
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name, &a.ContentType, &a.Size, &a.Path, &createdAt); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

func (s *Store) DeleteAsset(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}
