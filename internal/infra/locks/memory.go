package locks

import (
	"context"
	"sync"
	"time"
)

type memoryService struct {
	mu   sync.Mutex
	now  func() time.Time
	data map[string]time.Time
}

// NewMemoryService returns an in-process lock service. Suitable for a single
// instance; multi-instance deployments should use the redis variant.
func NewMemoryService(now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &memoryService{now: now, data: make(map[string]time.Time)}
}

func (m *memoryService) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if expiresAt, ok := m.data[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	m.gc(now)
	m.data[key] = now.Add(ttl)
	return true, nil
}

func (m *memoryService) Release(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiresAt, ok := m.data[key]
	if !ok {
		return false, nil
	}
	delete(m.data, key)
	return m.now().Before(expiresAt), nil
}

func (m *memoryService) gc(now time.Time) {
	for key, expiresAt := range m.data {
		if !now.Before(expiresAt) {
			delete(m.data, key)
		}
	}
}
