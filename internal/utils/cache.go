package utils

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// CacheItem 包装缓存数据和过期时间
type CacheItem struct {
	Data      interface{}
	ExpiresAt time.Time
}

// PageCache caches rendered page data by path-like keys. Mutations call
// Revalidate with the affected prefix instead of waiting for the TTL.
type PageCache struct {
	lruCache *lru.Cache[string, CacheItem]
	group    singleflight.Group

	// generation moves on every Revalidate; a fill that started before the
	// move must not store its result.
	generation atomic.Uint64

	mu       sync.Mutex
	flights  uint64
	inflight map[string]uint64
}

// NewPageCache creates a cache holding at most size keys.
func NewPageCache(size int) (*PageCache, error) {
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, err
	}
	return &PageCache{lruCache: l, inflight: make(map[string]uint64)}, nil
}

// Set 设置缓存，TTL 为过期时间
func (c *PageCache) Set(key string, data interface{}, ttl time.Duration) {
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	})
}

// Get 获取缓存，若不存在或已过期则返回 nil
func (c *PageCache) Get(key string) interface{} {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}
	if time.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil
	}
	return val.Data
}

// Delete 删除指定缓存
func (c *PageCache) Delete(key string) {
	c.lruCache.Remove(key)
}

// Revalidate drops every key starting with prefix. Fills already running
// for those keys are detached: their result is not stored, and later callers
// start a fresh fill instead of joining them.
func (c *PageCache) Revalidate(prefix string) {
	c.generation.Add(1)

	c.mu.Lock()
	for key := range c.inflight {
		if strings.HasPrefix(key, prefix) {
			c.group.Forget(key)
			delete(c.inflight, key)
		}
	}
	c.mu.Unlock()

	for _, key := range c.lruCache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lruCache.Remove(key)
		}
	}
}

// Fetch returns the cached value for key or calls fill once, even when many
// callers miss at the same time. Errors are not cached.
func (c *PageCache) Fetch(key string, ttl time.Duration, fill func() (interface{}, error)) (interface{}, error) {
	if v := c.Get(key); v != nil {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.Lock()
		gen := c.generation.Load()
		c.flights++
		id := c.flights
		c.inflight[key] = id
		c.mu.Unlock()

		data, err := fill()

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.inflight[key] == id {
			delete(c.inflight, key)
		}
		if err != nil {
			return nil, err
		}
		// 填充期间被 Revalidate 过，结果可能已过时，不写缓存
		if gen == c.generation.Load() {
			c.Set(key, data, ttl)
		}
		return data, nil
	})
	return v, err
}
