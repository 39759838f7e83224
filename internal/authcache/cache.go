package authcache

import (
	"strings"
	"sync"
	"time"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache — ключ -> {результат, время}. Записи не вытесняются,
// свежесть проверяется при чтении.
type Cache[V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]entry[V]
}

func NewCache[V any](ttl time.Duration, now func() time.Time) *Cache[V] {
	if now == nil {
		now = time.Now
	}
	return &Cache[V]{ttl: ttl, now: now, items: make(map[string]entry[V])}
}

// Fresh возвращает значение, только если оно моложе TTL.
func (c *Cache[V]) Fresh(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Get возвращает значение независимо от возраста.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	return e.value, ok
}

func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: v, storedAt: c.now()}
	c.mu.Unlock()
}

// DeleteSuffix удаляет все ключи с данным суффиксом.
func (c *Cache[V]) DeleteSuffix(suffix string) {
	c.mu.Lock()
	for k := range c.items {
		if strings.HasSuffix(k, suffix) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry[V])
	c.mu.Unlock()
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
