// Package cache implements C2: a fixed-capacity LRU with per-entry TTL
// fronting the analyzer. Grounded on the L1Cache shape of the
// distributed-cache-manager reference (sync.RWMutex-protected map plus an
// intrusive doubly-linked list for O(1) LRU), sharded across several
// locks so a hit is never serialized behind an unrelated shard's write —
// matching spec §4.2's "a lookup that returns a hit must not be
// serialized behind an unrelated write".
package cache

import (
	"container/list"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

// Entry is the cached value: an analyzer or embedder response plus the
// time it was stored, used to compute TTL staleness on read.
type Entry struct {
	Vector     []float64
	Entities   []string
	Confidence float64
	Metadata   map[string]string
	CreatedAt  time.Time
}

// SecondaryStore is an optional spill target for entries evicted from the
// in-memory LRU, e.g. a disk or remote KV store. The cache contract does
// not require one; a nil SecondaryStore simply means evictions are final.
type SecondaryStore interface {
	Get(key string) (Entry, bool)
	Put(key string, entry Entry)
}

const defaultShardCount = 16

type shard struct {
	mu       sync.RWMutex
	ll       *list.List // front = most recently used
	items    map[string]*list.Element
	capacity int
}

type record struct {
	key       string
	entry     Entry
	expiresAt time.Time
}

// Metrics is an atomic snapshot of cache counters, safe to read
// concurrently with Get/Put.
type Metrics struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int64
}

// HitRate returns Hits/(Hits+Misses), or 0 when there have been no
// lookups yet.
func (m Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total)
}

// Cache is a sharded, capacity-bounded, TTL-aware LRU safe for concurrent
// use by many readers and writers.
type Cache struct {
	shards    []*shard
	ttl       time.Duration
	secondary SecondaryStore

	shardCountOverride int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Option configures a Cache at construction, mirroring the teacher's
// functional-options convention (pkg/consumer/options.go).
type Option func(*Cache)

// WithSecondaryStore attaches an optional spill store consulted on a
// primary miss and populated on primary eviction.
func WithSecondaryStore(store SecondaryStore) Option {
	return func(c *Cache) { c.secondary = store }
}

// WithShardCount overrides the default shard count; mostly useful in
// tests that want to force single-shard contention.
func WithShardCount(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.shardCountOverride = n
		}
	}
}

// New constructs a Cache with the given total capacity (split evenly
// across shards) and per-entry TTL.
func New(capacity int, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{ttl: ttl}
	for _, opt := range opts {
		opt(c)
	}
	shardCount := defaultShardCount
	if c.shardCountOverride > 0 {
		shardCount = c.shardCountOverride
	}
	if capacity < shardCount {
		shardCount = 1
	}
	perShard := capacity / shardCount
	if perShard < 1 {
		perShard = 1
	}
	c.shards = make([]*shard, shardCount)
	for i := range c.shards {
		c.shards[i] = &shard{
			ll:       list.New(),
			items:    make(map[string]*list.Element),
			capacity: perShard,
		}
	}
	return c
}

func (c *Cache) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// Get returns the cached entry for key, or (Entry{}, false) on a miss —
// including a TTL-expired entry, which is treated as a miss per spec
// §4.2 and removed from the LRU.
func (c *Cache) Get(key string) (Entry, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	el, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		if c.secondary != nil {
			if entry, found := c.secondary.Get(key); found {
				c.hits.Add(1)
				return entry, true
			}
		}
		return Entry{}, false
	}
	rec := el.Value.(*record)
	if c.ttl > 0 && time.Since(rec.expiresAt) >= 0 {
		s.ll.Remove(el)
		delete(s.items, key)
		s.mu.Unlock()
		c.misses.Add(1)
		c.evictions.Add(1)
		return Entry{}, false
	}
	s.ll.MoveToFront(el)
	entry := rec.entry
	s.mu.Unlock()
	c.hits.Add(1)
	return entry, true
}

// Put stores entry under key, evicting the shard's least-recently-used
// entry if it is at capacity. An evicted entry is forwarded to the
// secondary store, if configured.
func (c *Cache) Put(key string, entry Entry) {
	s := c.shardFor(key)
	now := time.Now()
	rec := &record{key: key, entry: entry, expiresAt: now.Add(c.ttl)}

	s.mu.Lock()
	if el, ok := s.items[key]; ok {
		el.Value = rec
		s.ll.MoveToFront(el)
		s.mu.Unlock()
		return
	}

	var evicted *record
	if s.ll.Len() >= s.capacity {
		back := s.ll.Back()
		if back != nil {
			evicted = back.Value.(*record)
			s.ll.Remove(back)
			delete(s.items, evicted.key)
		}
	}
	el := s.ll.PushFront(rec)
	s.items[key] = el
	s.mu.Unlock()

	if evicted != nil {
		c.evictions.Add(1)
		if c.secondary != nil {
			c.secondary.Put(evicted.key, evicted.entry)
		}
	}
}

// Invalidate removes key from the cache unconditionally.
func (c *Cache) Invalidate(key string) {
	s := c.shardFor(key)
	s.mu.Lock()
	if el, ok := s.items[key]; ok {
		s.ll.Remove(el)
		delete(s.items, key)
	}
	s.mu.Unlock()
}

// Warm accepts a precomputed batch of entries and populates them,
// matching spec §4.2's optional startup-warming allowance.
func (c *Cache) Warm(entries map[string]Entry) {
	for k, v := range entries {
		c.Put(k, v)
	}
}

// MetricsSnapshot reports the counters named in spec §4.2.
func (c *Cache) MetricsSnapshot() Metrics {
	var size int64
	for _, s := range c.shards {
		s.mu.RLock()
		size += int64(s.ll.Len())
		s.mu.RUnlock()
	}
	return Metrics{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      size,
	}
}
