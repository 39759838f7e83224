package attempts

import (
	"context"
	"sync"
	"time"
)

// MemoryStore — счётчики в памяти процесса (один инстанс).
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryRecord
}

type memoryRecord struct {
	Record
	expires time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryRecord)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[key]
	if !ok {
		return Record{}, false, nil
	}
	return r.Record, true, nil
}

func (s *MemoryStore) Fail(_ context.Context, key string, now time.Time, ttl time.Duration) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[key]
	if !ok || now.After(r.expires) {
		r = memoryRecord{}
	}
	r.Count++
	r.Last = now
	r.expires = now.Add(ttl)
	s.items[key] = r
	return r.Record, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}
