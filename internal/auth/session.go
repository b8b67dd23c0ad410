package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// ErrSessionNotFound is returned when the store has no live session for an id.
var ErrSessionNotFound = errors.New("session not found")

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Session is the per-client state kept between requests.
type Session struct {
	ID       string  `json:"-"`
	UserName string  `json:"user_name,omitempty"`
	UserRole string  `json:"user_role,omitempty"`
	Flashes  []Flash `json:"flashes,omitempty"`

	dirty bool
}

// SetIdentity stores the acting user.
func (s *Session) SetIdentity(identity domain.Identity) {
	s.UserName = identity.Name
	s.UserRole = string(identity.Role)
	s.dirty = true
}

// AddFlash queues a message for the next page.
func (s *Session) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
	s.dirty = true
}

// PopFlashes returns and clears queued messages.
func (s *Session) PopFlashes() []Flash {
	if len(s.Flashes) == 0 {
		return nil
	}
	flashes := s.Flashes
	s.Flashes = nil
	s.dirty = true
	return flashes
}

// Dirty reports whether the session changed since it was loaded.
func (s *Session) Dirty() bool {
	return s.dirty
}

// SessionStore persists sessions by id.
type SessionStore interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, session *Session, ttl time.Duration) error
}

type redisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore keeps sessions as JSON under "<prefix><id>".
func NewRedisSessionStore(client *redis.Client, prefix string) SessionStore {
	if prefix == "" {
		prefix = "session:"
	}
	return &redisSessionStore{client: client, prefix: prefix}
}

func (r *redisSessionStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	session.ID = id
	return &session, nil
}

func (r *redisSessionStore) Save(ctx context.Context, session *Session, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+session.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	session.dirty = false
	return nil
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

type memorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemorySessionStore keeps sessions in process memory.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *memorySessionStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.entries, id)
		return nil, ErrSessionNotFound
	}
	session := entry.session
	session.Flashes = append([]Flash(nil), entry.session.Flashes...)
	session.ID = id
	return &session, nil
}

func (m *memorySessionStore) Save(_ context.Context, session *Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{session: *session}
	entry.session.Flashes = append([]Flash(nil), session.Flashes...)
	entry.session.dirty = false
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries[session.ID] = entry
	session.dirty = false
	return nil
}
