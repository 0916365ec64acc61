package response_cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/fablecraft/gen-relay/clients/llm"
	"github.com/fablecraft/gen-relay/utils/logger"
)

const (
	// DefaultMaxSize bounds the number of cached responses
	DefaultMaxSize = 1000

	// DefaultTTL is how long an entry stays valid unless overridden
	DefaultTTL = time.Hour
)

// Entry is one cached response
type Entry struct {
	Value     string
	Timestamp time.Time
	TTL       time.Duration
}

// valid reports whether the entry is still fresh at the given instant
func (e Entry) valid(now time.Time) bool {
	return now.Sub(e.Timestamp) < e.TTL
}

// Stats is a snapshot of cache occupancy
type Stats struct {
	TotalEntries int     `json:"total_entries"`
	MaxSize      int     `json:"max_size"`
	UsageRate    float64 `json:"usage_rate"` // percent
}

// ResponseCache memoizes generation results keyed by (messages, model).
// Entries expire after their TTL and the oldest entry is evicted under
// capacity pressure. Every write is persisted best-effort through the Store;
// persistence failures are logged and swallowed.
//
// Safe for concurrent use: one mutex serializes the map, and persistence I/O
// runs on a copied snapshot outside the lock.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]Entry
	maxSize int
	store   Store
	logger  logger.Logger

	now func() time.Time
}

// New creates a cache backed by store, loading any persisted entries once.
// A corrupt or missing document yields an empty cache, never an error.
// Nil store means no persistence; nil logger means no logging.
func New(store Store, maxSize int, log logger.Logger) *ResponseCache {
	if store == nil {
		store = NewNoopStore()
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	entries, err := store.Load()
	if err != nil {
		log.Warnf("failed to load persisted cache: %v, starting empty", err)
		entries = map[string]Entry{}
	}
	if entries == nil {
		entries = map[string]Entry{}
	}
	if len(entries) > 0 {
		log.Infof("loaded %d cached response(s) from disk", len(entries))
	}

	return &ResponseCache{
		entries: entries,
		maxSize: maxSize,
		store:   store,
		logger:  log,
		now:     time.Now,
	}
}

// Key computes the deterministic cache key for a (messages, model) pair.
// Message structs marshal with a fixed field order, so the digest is stable
// across process restarts.
func Key(messages []llm.Message, model string) string {
	canonical, err := json.Marshal(messages)
	if err != nil {
		canonical = []byte("[]")
	}
	sum := md5.Sum(append(canonical, []byte(model)...))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached value for (messages, model) if present and
// unexpired. Expired entries are deleted eagerly on lookup.
func (c *ResponseCache) Get(messages []llm.Message, model string) (string, bool) {
	key := Key(messages, model)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !entry.valid(c.now()) {
		delete(c.entries, key)
		return "", false
	}

	c.logger.Debugf("cache hit: %s", key)
	return entry.Value, true
}

// Set stores a value under (messages, model) with the default TTL
func (c *ResponseCache) Set(messages []llm.Message, model, value string) {
	c.SetWithTTL(messages, model, value, DefaultTTL)
}

// SetWithTTL stores a value with an explicit TTL, evicting the
// oldest-timestamped entry first when the cache is at capacity. The whole
// map is then persisted best-effort.
func (c *ResponseCache) SetWithTTL(messages []llm.Message, model, value string, ttl time.Duration) {
	key := Key(messages, model)

	c.mu.Lock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = Entry{
		Value:     value,
		Timestamp: c.now(),
		TTL:       ttl,
	}
	c.logger.Debugf("cache set: %s", key)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	// Persistence runs outside the lock so disk latency never blocks readers.
	if err := c.store.Save(snapshot); err != nil {
		c.logger.Warnf("failed to persist cache: %v", err)
	}
}

// evictOldestLocked removes the entry with the oldest timestamp.
// Caller must hold the lock.
func (c *ResponseCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.Timestamp.Before(oldest) {
			oldestKey = key
			oldest = entry.Timestamp
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *ResponseCache) snapshotLocked() map[string]Entry {
	snapshot := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}
	return snapshot
}

// Clear empties the cache. Subsequent reads never serve stale data.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	c.entries = map[string]Entry{}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.store.Save(snapshot); err != nil {
		c.logger.Warnf("failed to persist cleared cache: %v", err)
	}
	c.logger.Infof("response cache cleared")
}

// Stats returns current occupancy
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		TotalEntries: len(c.entries),
		MaxSize:      c.maxSize,
		UsageRate:    float64(len(c.entries)) / float64(c.maxSize) * 100,
	}
}
