package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LocalCache is durable storage on the editing device. Save is best effort
// and must never fail the caller.
type LocalCache interface {
	Load() (Document, bool)
	Save(doc Document)
}

// RemoteStore is the shared store holding the owner's document.
// Implemented by remote.Client.
type RemoteStore interface {
	FetchOwnerDocument(ctx context.Context) (Document, bool, error)
	UpsertOwnerDocument(ctx context.Context, ownerID string, doc Document) error
}

// Session reports the identity currently allowed to write remotely.
// Implemented by auth.Gate.
type Session interface {
	OwnerID() (string, bool)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type anonymous struct{}

func (anonymous) OwnerID() (string, bool) { return "", false }

// State is the lifecycle state of a Manager.
type State int

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "uninitialized"
}

// NotificationKind classifies a Notification.
type NotificationKind int

const (
	RemoteLoaded NotificationKind = iota
	SaveSucceeded
	SaveFailed
)

func (k NotificationKind) String() string {
	switch k {
	case RemoteLoaded:
		return "remote_loaded"
	case SaveSucceeded:
		return "save_succeeded"
	case SaveFailed:
		return "save_failed"
	default:
		return fmt.Sprintf("NotificationKind(%d)", int(k))
	}
}

// Notification reports the outcome of background remote work.
type Notification struct {
	Kind    NotificationKind
	OwnerID string
	Err     error
	At      time.Time
}

// Notifier receives notifications. It may be called from any goroutine.
type Notifier func(Notification)

// Option configures a Manager.
type Option func(*Manager)

func WithClock(c Clock) Option { return func(m *Manager) { m.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.logger = l } }

func WithNotifier(n Notifier) Option { return func(m *Manager) { m.notify = n } }

// WithWriteTimeout bounds each background remote save. Defaults to 15s.
func WithWriteTimeout(d time.Duration) Option { return func(m *Manager) { m.writeTimeout = d } }

// WithFallback sets the document used when the local cache is empty.
// Defaults to Default().
func WithFallback(d Document) Option { return func(m *Manager) { m.fallback = d.Clone() } }

// Manager owns the single in-memory profile document of a running
// application. Edits are applied to memory and the local cache synchronously
// and in call order; remote saves run in the background and only when the
// session has an owner identity at the time of the edit.
type Manager struct {
	cache   LocalCache
	remote  RemoteStore
	session Session

	clock        Clock
	logger       *slog.Logger
	notify       Notifier
	writeTimeout time.Duration
	fallback     Document

	// writeMu serializes edits and remote loads: read, compute, install,
	// cache, notify.
	writeMu sync.Mutex

	mu      sync.RWMutex
	state   State
	doc     Document
	subs    map[int]func(Document)
	nextSub int

	fetches singleflight.Group
	pending sync.WaitGroup
}

// NewManager creates a Manager. remote may be nil for a cache-only manager;
// a nil session is treated as anonymous.
func NewManager(cache LocalCache, remote RemoteStore, session Session, opts ...Option) *Manager {
	if session == nil {
		session = anonymous{}
	}
	m := &Manager{
		cache:        cache,
		remote:       remote,
		session:      session,
		clock:        realClock{},
		logger:       slog.Default(),
		writeTimeout: 15 * time.Second,
		fallback:     Default(),
		subs:         make(map[int]func(Document)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Load seeds the manager from the local cache, or the fallback document if
// the cache is empty, and moves it to StateReady. Later calls are no-ops.
func (m *Manager) Load() Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadLocked()
	return m.doc.Clone()
}

func (m *Manager) loadLocked() {
	if m.state == StateReady {
		return
	}
	if doc, ok := m.cache.Load(); ok {
		m.doc = doc
	} else {
		m.doc = m.fallback.Clone()
	}
	m.state = StateReady
}

// Start loads the manager and fetches the remote document in the
// background. The returned channel is closed when that fetch finishes.
func (m *Manager) Start(ctx context.Context) <-chan struct{} {
	m.Load()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Refresh(ctx)
	}()
	return done
}

// Refresh fetches the owner document and, if one exists, replaces the
// in-memory document with it and caches it. On failure the current
// document is kept. Concurrent calls share one fetch.
func (m *Manager) Refresh(ctx context.Context) error {
	if m.remote == nil {
		return nil
	}
	m.Load()
	_, err, _ := m.fetches.Do("owner", func() (any, error) {
		doc, ok, err := m.remote.FetchOwnerDocument(ctx)
		if err != nil {
			m.logger.Warn("fetching remote document failed, keeping local copy", "error", err)
			return nil, err
		}
		if !ok {
			m.logger.Debug("no remote document yet, keeping local copy")
			return nil, nil
		}
		m.replace(doc)
		m.emit(Notification{Kind: RemoteLoaded})
		return nil, nil
	})
	return err
}

// Snapshot returns a copy of the current document.
func (m *Manager) Snapshot() Document {
	m.mu.RLock()
	if m.state == StateReady {
		defer m.mu.RUnlock()
		return m.doc.Clone()
	}
	m.mu.RUnlock()
	return m.Load()
}

// Update replaces the whole document. Memory and the local cache are
// updated before Update returns; when the session has an owner, a remote
// save of this exact snapshot is started in the background.
func (m *Manager) Update(next Document) {
	_ = m.mutate(func(Document) (Document, error) { return next, nil })
}

// mutate derives the next document from the current one and installs it.
// writeMu is held from reading the current document until the remote save
// is spawned, so concurrent edits apply one after another and each save
// carries the document its edit produced.
func (m *Manager) mutate(fn func(cur Document) (Document, error)) error {
	m.Load()
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.RLock()
	cur := m.doc.Clone()
	m.mu.RUnlock()

	next, err := fn(cur)
	if err != nil {
		return err
	}
	next = next.Clone()
	m.replaceLocked(next)

	ownerID, ok := m.session.OwnerID()
	if !ok || m.remote == nil {
		return nil
	}
	m.pending.Add(1)
	go m.save(ownerID, next)
	return nil
}

func (m *Manager) replace(doc Document) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.replaceLocked(doc)
}

// replaceLocked installs doc, caches it and notifies subscribers in the
// order documents were installed. The caller holds writeMu.
func (m *Manager) replaceLocked(doc Document) {
	m.mu.Lock()
	m.doc = doc
	m.state = StateReady
	subs := make([]func(Document), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	m.cache.Save(doc)

	for _, fn := range subs {
		fn(doc.Clone())
	}
}

func (m *Manager) save(ownerID string, doc Document) {
	defer m.pending.Done()
	ctx, cancel := context.WithTimeout(context.Background(), m.writeTimeout)
	defer cancel()

	if err := m.remote.UpsertOwnerDocument(ctx, ownerID, doc); err != nil {
		m.logger.Error("saving document failed", "owner_id", ownerID, "error", err)
		m.emit(Notification{Kind: SaveFailed, OwnerID: ownerID, Err: err})
		return
	}
	m.emit(Notification{Kind: SaveSucceeded, OwnerID: ownerID})
}

func (m *Manager) emit(n Notification) {
	if m.notify == nil {
		return
	}
	n.At = m.clock.Now()
	m.notify(n)
}

// Wait blocks until every background save started so far has finished.
func (m *Manager) Wait() {
	m.pending.Wait()
}

// Subscribe registers fn to receive every new document, in the order the
// documents were installed. fn runs while edits are held off, so it must
// not edit through the Manager. The returned function removes the
// subscription.
func (m *Manager) Subscribe(fn func(Document)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// UpdateSection replaces one top-level subtree and leaves every other key
// byte-for-byte unchanged.
func (m *Manager) UpdateSection(key string, v any) error {
	return m.mutate(func(cur Document) (Document, error) {
		return cur.With(key, v)
	})
}

// SetHeroField sets one hero field, keeping every other hero field as is.
func (m *Manager) SetHeroField(field, value string) error {
	if !isHeroField(field) {
		return fmt.Errorf("unknown hero field %q", field)
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return m.mutate(func(cur Document) (Document, error) {
		hero := Section[map[string]json.RawMessage](cur, KeyHero)
		if hero == nil {
			hero = make(map[string]json.RawMessage)
		}
		hero[field] = b
		return cur.With(KeyHero, hero)
	})
}

func isHeroField(field string) bool {
	info, _ := Lookup(KeyHero)
	for _, f := range info.fields {
		if f == field {
			return true
		}
	}
	return false
}

// SetSkills replaces both skill lists from comma-separated input.
func (m *Manager) SetSkills(technical, soft string) error {
	return m.mutate(func(cur Document) (Document, error) {
		next, err := cur.With(KeyTechnicalSkills, SplitComma(technical))
		if err != nil {
			return Document{}, err
		}
		return next.With(KeySoftSkills, SplitComma(soft))
	})
}

// AppendItem adds a record to the end of a list section and returns its
// index. A nil item appends the section's default record.
func (m *Manager) AppendItem(key string, item json.RawMessage) (int, error) {
	info, ok := Lookup(key)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSection, key)
	}
	if info.Kind == KindRecord {
		return 0, fmt.Errorf("section %q is a single record, not a list", key)
	}
	if item == nil {
		def, err := NewItem(key)
		if err != nil {
			return 0, err
		}
		item = def
	}
	if !json.Valid(item) {
		return 0, fmt.Errorf("%w: item for %q is not valid JSON", ErrInvalidDocument, key)
	}
	var index int
	err := m.mutate(func(cur Document) (Document, error) {
		items := Append(RawList(cur, key), item)
		index = len(items) - 1
		return cur.With(key, items)
	})
	if err != nil {
		return 0, err
	}
	return index, nil
}

// RemoveItem deletes the record at index; later records shift down.
func (m *Manager) RemoveItem(key string, index int) error {
	return m.mutate(func(cur Document) (Document, error) {
		items, err := RemoveAt(RawList(cur, key), index)
		if err != nil {
			return Document{}, fmt.Errorf("removing %s[%d]: %w", key, index, err)
		}
		return cur.With(key, items)
	})
}

// MoveItem moves the record at from so that it ends up at index to.
func (m *Manager) MoveItem(key string, from, to int) error {
	return m.mutate(func(cur Document) (Document, error) {
		items, err := Move(RawList(cur, key), from, to)
		if err != nil {
			return Document{}, fmt.Errorf("moving %s[%d] to %d: %w", key, from, to, err)
		}
		return cur.With(key, items)
	})
}

// SetItemField replaces one field of the record at index, keeping the
// record's other fields.
func (m *Manager) SetItemField(key string, index int, field string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling %s[%d].%s: %w", key, index, field, err)
	}
	return m.mutate(func(cur Document) (Document, error) {
		items := RawList(cur, key)
		raw, ok := At(items, index)
		if !ok {
			return Document{}, fmt.Errorf("%s[%d]: %w", key, index, ErrIndexOutOfRange)
		}
		var rec map[string]json.RawMessage
		if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
			rec = make(map[string]json.RawMessage)
		}
		rec[field] = b
		updated, err := json.Marshal(rec)
		if err != nil {
			return Document{}, err
		}
		items[index] = updated
		return cur.With(key, items)
	})
}

// Project resolves a project detail reference. The index is only
// meaningful against the list it was taken from.
func (m *Manager) Project(index int) (PetProject, bool) {
	return At(m.Snapshot().PetProjects(), index)
}
