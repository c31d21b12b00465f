// Package aggcache memoizes metric computations keyed by dataset snapshot and
// group key. Entries are immutable once stored and evicted least-recently-used
// past a fixed capacity, so repeated queries over an unchanged dataset never
// recompute and a changed dataset can never serve stale results (its snapshot
// id differs).
package aggcache

import (
	"container/list"
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"trade-analytics-lab/internal/metrics"
)

// DefaultCapacity bounds the cache when no capacity is configured.
const DefaultCapacity = 32

// ComputeFunc produces the metric map for a cache miss.
type ComputeFunc func(ctx context.Context) (map[string]*metrics.MetricSet, error)

// Cache is a bounded LRU over computed metric maps. Safe for concurrent use.
//
// Callers must treat returned maps as read-only; they are shared between all
// callers of the same key.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front is most recently used
	group    singleflight.Group
	onEvict  func(key string)
}

type entry struct {
	key    string
	result map[string]*metrics.MetricSet
}

// New creates a cache holding at most capacity entries. A capacity <= 0 falls
// back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// SetOnEvict registers a hook invoked with the key of each evicted entry.
// Must be set before the cache is shared between goroutines.
func (c *Cache) SetOnEvict(fn func(key string)) {
	c.onEvict = fn
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrCompute returns the metric map for (snapshotID, key), computing it
// with fn on a miss. cached reports whether the result came from the cache.
//
// Concurrent callers for the same key share a single in-flight computation;
// waiters return early with ctx.Err() if their context ends first. The
// computation itself runs on a context detached from the initiating caller,
// so one caller's cancellation cannot fail the rest. Failed computations are
// not cached.
func (c *Cache) GetOrCompute(ctx context.Context, snapshotID string, key metrics.GroupKey, fn ComputeFunc) (map[string]*metrics.MetricSet, bool, error) {
	ck := snapshotID + "/" + key.CacheKey()

	c.mu.Lock()
	if el, ok := c.entries[ck]; ok {
		c.order.MoveToFront(el)
		result := el.Value.(*entry).result
		c.mu.Unlock()
		return result, true, nil
	}
	c.mu.Unlock()

	computeCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(ck, func() (any, error) {
		result, err := fn(computeCtx)
		if err != nil {
			return nil, err
		}
		c.store(ck, result)
		return result, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(map[string]*metrics.MetricSet), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// store inserts the computed result and evicts past capacity. A concurrent
// insert of the same key keeps the existing entry.
func (c *Cache) store(key string, result map[string]*metrics.MetricSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, result: result})

	for len(c.entries) > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*entry)
		c.order.Remove(oldest)
		delete(c.entries, evicted.key)
		if c.onEvict != nil {
			c.onEvict(evicted.key)
		}
	}
}
