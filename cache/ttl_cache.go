package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// TTLCache is a bounded string cache with time based expiry and least
// recently used eviction. It is safe for concurrent use.
//
// Expiry is lazy: an entry whose age exceeds the TTL is removed by the read
// that finds it, by an eviction, or by Purge.
type TTLCache struct {
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	mu        sync.Mutex
	items     map[string]*ttlEntry
	recency   *list.List // front is most recently used
	insertion *list.List // front is oldest write
	stats     Stats
}

type ttlEntry struct {
	key        string
	value      string
	insertedAt time.Time
	recency    *list.Element
	insertion  *list.Element
}

// Stats is a point in time snapshot of cache counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
	Size        int
	MaxSize     int
}

// HitRate returns hits over lookups, or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Option configures a TTLCache.
type Option func(*TTLCache)

// WithClock replaces time.Now as the source of entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTTLCache builds a cache holding at most maxSize entries, each living for
// ttl. A ttl of zero makes every entry stale on its next read.
func NewTTLCache(ttl time.Duration, maxSize int, opts ...Option) (*TTLCache, error) {
	cfg := Config{TTL: ttl, MaxSize: maxSize, Backend: BackendLRU}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &TTLCache{
		ttl:       ttl,
		maxSize:   maxSize,
		now:       time.Now,
		items:     make(map[string]*ttlEntry, maxSize),
		recency:   list.New(),
		insertion: list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.stats.MaxSize = maxSize
	return c, nil
}

// TTL returns the configured entry lifetime.
func (c *TTLCache) TTL() time.Duration { return c.ttl }

// MaxSize returns the configured capacity.
func (c *TTLCache) MaxSize() int { return c.maxSize }

// Get returns the value stored under key and marks it most recently used.
// Expired entries are removed and reported as a miss.
func (c *TTLCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return "", false
	}

	if c.expired(e, c.now()) {
		c.remove(e)
		c.stats.Expirations++
		c.stats.Misses++
		return "", false
	}

	c.recency.MoveToFront(e.recency)
	c.stats.Hits++
	return e.value, true
}

// Put stores value under key as the most recently used entry. Writing an
// existing key refreshes its value and TTL. When the cache is full one entry
// is evicted first: the oldest write if it has already expired, otherwise the
// least recently used.
func (c *TTLCache) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if e, ok := c.items[key]; ok {
		e.value = value
		e.insertedAt = now
		c.recency.MoveToFront(e.recency)
		c.insertion.MoveToBack(e.insertion)
		return
	}

	if len(c.items) >= c.maxSize {
		c.evict(now)
	}

	e := &ttlEntry{key: key, value: value, insertedAt: now}
	e.recency = c.recency.PushFront(e)
	e.insertion = c.insertion.PushBack(e)
	c.items[key] = e
}

// Delete removes key. It reports whether an entry was present.
func (c *TTLCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return false
	}
	c.remove(e)
	return true
}

// Clear removes every entry. Counters are kept.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*ttlEntry, c.maxSize)
	c.recency.Init()
	c.insertion.Init()
}

// Len returns the number of stored entries, including expired entries that
// no read has removed yet.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Purge removes every expired entry and returns how many were dropped.
func (c *TTLCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.insertion.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*ttlEntry)
		if c.expired(e, now) {
			c.remove(e)
			removed++
		}
		el = next
	}
	c.stats.Expirations += uint64(removed)
	return removed
}

// Stats returns a snapshot of the cache counters.
func (c *TTLCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = len(c.items)
	return s
}

// StartJanitor runs Purge every interval until ctx is done. A non positive
// interval disables it.
func (c *TTLCache) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Purge()
			}
		}
	}()
}

func (c *TTLCache) expired(e *ttlEntry, now time.Time) bool {
	if c.ttl == 0 {
		return true
	}
	return now.Sub(e.insertedAt) > c.ttl
}

// evict must be called with mu held and at least one entry stored.
func (c *TTLCache) evict(now time.Time) {
	if oldest := c.insertion.Front(); oldest != nil {
		if e := oldest.Value.(*ttlEntry); c.expired(e, now) {
			c.remove(e)
			c.stats.Expirations++
			return
		}
	}
	if lru := c.recency.Back(); lru != nil {
		c.remove(lru.Value.(*ttlEntry))
		c.stats.Evictions++
	}
}

func (c *TTLCache) remove(e *ttlEntry) {
	c.recency.Remove(e.recency)
	c.insertion.Remove(e.insertion)
	delete(c.items, e.key)
}
