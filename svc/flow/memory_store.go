package flow

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps sessions in process memory with go-cache expiry.
type MemoryStore struct {
	mu sync.Mutex // serializes read-modify-write sequences
	c  *gocache.Cache
}

// NewMemoryStore returns a MemoryStore purging expired sessions every cleanup.
func NewMemoryStore(cleanup time.Duration) *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, cleanup)}
}

func (m *MemoryStore) Save(_ context.Context, s *Session, ttl time.Duration) error {
	b, err := encode(s)
	if err != nil {
		return err
	}
	m.c.Set(s.ID, b, ttl)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	v, ok := m.c.Get(id)
	if !ok {
		return nil, ErrFlowNotFound
	}
	b, _ := v.([]byte)
	return decode(b)
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.c.Delete(id)
	return nil
}

func (m *MemoryStore) IncrAttempts(_ context.Context, id string, ttl time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := attemptsKey(id)
	n, err := m.c.IncrementInt(key, 1)
	if err != nil {
		// Missing or expired counter.
		m.c.Set(key, 1, ttl)
		return 1, nil
	}
	return n, nil
}

func (m *MemoryStore) Consume(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.c.Get(id); !ok {
		return false, nil
	}
	m.c.Delete(id)
	return true, nil
}
