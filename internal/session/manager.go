// Package session issues and checks the opaque, cookie carried session
// tokens. Only a keyed hash of a token is ever stored.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediband/api/internal/model"
	"mediband/api/pkg/security"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrExpired      = errors.New("session expired")
	ErrInvalidToken = errors.New("invalid session token")
)

const idLength = 21

// Store is a session backend. Entries disappear on their own once ttl
// has passed.
type Store interface {
	Put(ctx context.Context, s *model.Session, ttl time.Duration) error
	Get(ctx context.Context, tokenHash string) (*model.Session, error)
	Delete(ctx context.Context, tokenHash string) error
}

type Config struct {
	TTL           time.Duration
	TouchInterval time.Duration
}

type Manager struct {
	cfg    Config
	store  Store
	hasher *security.TokenHasher
	now    func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now, tests use it to move through a session's life.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(cfg Config, store Store, hasher *security.TokenHasher, opts ...Option) *Manager {
	m := &Manager{cfg: cfg, store: store, hasher: hasher, now: time.Now}
	for _, o := range opts {
		o(m)
	}

	return m
}

func (m *Manager) TTL() time.Duration {
	return m.cfg.TTL
}

// Create starts a session for userID and returns the raw token for the
// client. The token itself is not kept anywhere.
func (m *Manager) Create(ctx context.Context, userID, ip, userAgent string) (string, *model.Session, error) {
	pair, err := m.hasher.Generate()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session token, %w", err)
	}

	id, err := gonanoid.New(idLength)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session ID, %w", err)
	}

	now := m.now()
	s := &model.Session{
		ID:            id,
		UserID:        userID,
		TokenHash:     pair.Hash,
		IPAddress:     ip,
		UserAgent:     userAgent,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.cfg.TTL),
		LastTouchedAt: now,
	}

	if err := m.store.Put(ctx, s, m.cfg.TTL); err != nil {
		return "", nil, fmt.Errorf("failed to store session, %w", err)
	}

	return pair.Token, s, nil
}

// Verify resolves token to its live session. The session is touched at most
// once per touch interval, touching never moves ExpiresAt.
func (m *Manager) Verify(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	hash := m.hasher.Hash(token)

	s, err := m.store.Get(ctx, hash)
	if err != nil {
		return nil, err
	}

	if !m.hasher.Verify(token, s.TokenHash) {
		return nil, ErrNotFound
	}

	now := m.now()
	if s.Expired(now) {
		_ = m.store.Delete(ctx, hash)
		return nil, ErrExpired
	}

	if now.Sub(s.LastTouchedAt) >= m.cfg.TouchInterval {
		s.LastTouchedAt = now

		// A failed touch must not log the user out
		if err := m.store.Put(ctx, s, s.ExpiresAt.Sub(now)); err != nil {
			zap.L().Warn("Failed to touch session", zap.Error(err), zap.String("sessionID", s.ID))
		}
	}

	return s, nil
}

// Destroy removes the session behind token. Unknown or empty tokens are
// not an error.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	err := m.store.Delete(ctx, m.hasher.Hash(token))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to delete session, %w", err)
	}

	return nil
}
