package session

import (
	"context"
	"errors"
	"time"

	"mediband/api/internal/model"

	"github.com/jellydator/ttlcache/v2"
)

// MemoryStore keeps sessions in process. Sessions are lost on restart, so
// it is meant for development and tests.
type MemoryStore struct {
	cache *ttlcache.Cache
}

func NewMemoryStore() *MemoryStore {
	c := ttlcache.NewCache()
	// A read is not activity, expiry is fixed at issue time
	c.SkipTTLExtensionOnHit(true)

	return &MemoryStore{cache: c}
}

func (m *MemoryStore) Put(_ context.Context, s *model.Session, ttl time.Duration) error {
	if ttl <= 0 {
		_ = m.cache.Remove(s.TokenHash)
		return nil
	}

	// Stored by value so callers can't change a session behind the store's back
	return m.cache.SetWithTTL(s.TokenHash, *s, ttl)
}

func (m *MemoryStore) Get(_ context.Context, tokenHash string) (*model.Session, error) {
	v, err := m.cache.Get(tokenHash)
	if err != nil {
		if errors.Is(err, ttlcache.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s := v.(model.Session)
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, tokenHash string) error {
	err := m.cache.Remove(tokenHash)
	if errors.Is(err, ttlcache.ErrNotFound) {
		return ErrNotFound
	}

	return err
}

func (m *MemoryStore) Close() error {
	return m.cache.Close()
}
