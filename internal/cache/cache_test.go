package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheGetMiss(t *testing.T) {
	c := New(10, time.Minute)
	_, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.MetricsSnapshot().Misses)
}

func TestCachePutGetHit(t *testing.T) {
	c := New(10, time.Minute, WithShardCount(1))
	c.Put("k1", Entry{Entities: []string{"a"}})
	entry, ok := c.Get("k1")
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, entry.Entities)
	assert.Equal(t, int64(1), c.MetricsSnapshot().Hits)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := New(10, 5*time.Millisecond, WithShardCount(1))
	c.Put("k1", Entry{})
	time.Sleep(10 * time.Millisecond)
	_, ok := c.Get("k1")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.MetricsSnapshot().Evictions)
}

func TestCacheLRUEviction(t *testing.T) {
	c := New(2, time.Minute, WithShardCount(1))
	c.Put("a", Entry{})
	c.Put("b", Entry{})
	// touch "a" so "b" becomes least-recently-used
	c.Get("a")
	c.Put("c", Entry{})

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	_, okC := c.Get("c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
}

func TestCacheInvalidate(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("k1", Entry{})
	c.Invalidate("k1")
	_, ok := c.Get("k1")
	assert.False(t, ok)
}

type fakeSecondary struct {
	store map[string]Entry
}

func (f *fakeSecondary) Get(key string) (Entry, bool) {
	e, ok := f.store[key]
	return e, ok
}

func (f *fakeSecondary) Put(key string, entry Entry) {
	f.store[key] = entry
}

func TestCacheSpillsEvictionsToSecondary(t *testing.T) {
	secondary := &fakeSecondary{store: map[string]Entry{}}
	c := New(1, time.Minute, WithShardCount(1), WithSecondaryStore(secondary))
	c.Put("a", Entry{Entities: []string{"x"}})
	c.Put("b", Entry{Entities: []string{"y"}}) // evicts "a" into secondary

	entry, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"x"}, entry.Entities)
}
