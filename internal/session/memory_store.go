package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/allegro/bigcache/v3"
)

type memoryStore struct {
	cache  *bigcache.BigCache
	now    func() time.Time
	closed atomic.Bool
}

// NewMemoryStore keeps sessions in process memory. Entries are evicted
// after lifeWindow; shorter per-session TTLs are checked on Load.
func NewMemoryStore(lifeWindow time.Duration) (Store, error) {
	if lifeWindow <= 0 {
		lifeWindow = 24 * time.Hour
	}
	cfg := bigcache.DefaultConfig(lifeWindow)
	cfg.CleanWindow = time.Minute
	cfg.Verbose = false
	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &memoryStore{cache: cache, now: time.Now}, nil
}

func (m *memoryStore) Save(_ context.Context, id string, st State, ttl time.Duration) error {
	if m.closed.Load() {
		return ErrStoreClosed
	}
	b, err := encodeState(st, m.now().Add(ttl))
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return m.cache.Set(id, b)
}

func (m *memoryStore) Load(_ context.Context, id string) (State, bool, error) {
	if m.closed.Load() {
		return Anonymous, false, ErrStoreClosed
	}
	b, err := m.cache.Get(id)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return Anonymous, false, nil
		}
		return Anonymous, false, fmt.Errorf("load session: %w", err)
	}
	st, ok, err := decodeState(b, m.now())
	if err != nil {
		return Anonymous, false, fmt.Errorf("decode session: %w", err)
	}
	if !ok {
		_ = m.cache.Delete(id)
	}
	return st, ok, nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	if m.closed.Load() {
		return ErrStoreClosed
	}
	if err := m.cache.Delete(id); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (m *memoryStore) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	return m.cache.Close()
}
