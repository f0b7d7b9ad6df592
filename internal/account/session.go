package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/p-n-ai/pathshala/internal/platform/cache"
)

// ErrSessionNotFound is returned for unknown, revoked or expired tokens.
var ErrSessionNotFound = errors.New("session not found")

// Session binds an opaque bearer token to a user.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore issues and resolves session tokens.
type SessionStore interface {
	Create(ctx context.Context, userID string) (Session, error)
	Lookup(ctx context.Context, token string) (Session, error)
	Revoke(ctx context.Context, token string) error
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]Session
	mu       sync.Mutex
}

// NewMemorySessionStore creates a session store whose tokens live for ttl.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

// SetClock replaces the time source.
func (s *MemorySessionStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemorySessionStore) Create(_ context.Context, userID string) (Session, error) {
	token, err := newToken()
	if err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess := Session{Token: token, UserID: userID, ExpiresAt: s.now().Add(s.ttl)}
	s.sessions[token] = sess
	return sess, nil
}

func (s *MemorySessionStore) Lookup(_ context.Context, token string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, token)
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *MemorySessionStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// RedisSessionStore keeps sessions in Redis/Dragonfly with native key expiry.
type RedisSessionStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(c *cache.Cache, ttl time.Duration) (*RedisSessionStore, error) {
	if c == nil {
		return nil, fmt.Errorf("cache is nil")
	}
	return &RedisSessionStore{cache: c, ttl: ttl}, nil
}

func sessionKey(token string) string {
	return cache.Key("session", token)
}

func (s *RedisSessionStore) Create(ctx context.Context, userID string) (Session, error) {
	token, err := newToken()
	if err != nil {
		return Session{}, err
	}
	sess := Session{Token: token, UserID: userID, ExpiresAt: time.Now().Add(s.ttl)}
	if err := s.cache.SetJSON(ctx, sessionKey(token), sess, s.ttl); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

func (s *RedisSessionStore) Lookup(ctx context.Context, token string) (Session, error) {
	var sess Session
	if err := s.cache.GetJSON(ctx, sessionKey(token), &sess); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	return sess, nil
}

func (s *RedisSessionStore) Revoke(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, sessionKey(token))
}
