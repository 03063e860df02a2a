// Package analysis scores opportunities with Claude and caches results so
// near-duplicate listings reuse prior scores instead of new API calls.
package analysis

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pitchradar/radar-cli/internal/fingerprint"
	"github.com/pitchradar/radar-cli/internal/model"
)

// Cache bounds.
const (
	DefaultMaxSize             = 200
	DefaultSimilarityThreshold = 0.85
	evictFraction              = 0.2
)

type cacheEntry struct {
	key         string
	fingerprint string
	result      model.AIAnalysis
	storedAt    time.Time
}

// Cache maps opportunity identities to previously computed analysis
// results, with similarity-based reuse and a bulk eviction sweep when full.
// Create one per pipeline; there is no package-level instance.
type Cache struct {
	mu        sync.Mutex
	maxSize   int
	threshold float64
	now       func() time.Time

	order   []string
	entries map[string]*cacheEntry
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithMaxSize bounds the number of cached entries.
func WithMaxSize(n int) CacheOption {
	return func(c *Cache) {
		c.maxSize = n
	}
}

// WithSimilarityThreshold sets the minimum similarity for reuse.
func WithSimilarityThreshold(threshold float64) CacheOption {
	return func(c *Cache) {
		c.threshold = threshold
	}
}

// WithClock overrides the wall clock used for entry timestamps.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates an empty Cache with the default bounds.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		maxSize:   DefaultMaxSize,
		threshold: DefaultSimilarityThreshold,
		now:       time.Now,
		entries:   make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindSimilar scans entries in insertion order and returns a copy of the
// first stored result whose fingerprint similarity meets the threshold,
// annotated with reuse metadata. Returns nil on a miss. First match wins
// deliberately; the scan is linear because the cache stays small.
func (c *Cache) FindSimilar(o *model.Opportunity) *model.AIAnalysis {
	if o == nil {
		return nil
	}
	fp := fingerprint.New(o)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.order {
		entry := c.entries[key]
		score := fingerprint.Similarity(fp, entry.fingerprint)
		if score >= c.threshold {
			result := entry.result
			result.ReusedFrom = entry.key
			result.SimilarityScore = score
			result.CachedAt = entry.storedAt.UTC().Format(time.RFC3339)
			zap.L().Debug("analysis cache: similar entry reused",
				zap.String("key", entry.key),
				zap.Float64("similarity", score),
			)
			return &result
		}
	}
	return nil
}

// Store caches the analysis result under the opportunity's identity key.
// Silently no-ops when the opportunity has no identity or the result is
// nil. The result is copied so later caller mutation cannot corrupt the
// cache.
func (c *Cache) Store(o *model.Opportunity, result *model.AIAnalysis) {
	if o == nil || result == nil {
		return
	}
	key := o.IdentityKey()
	if key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		existing.fingerprint = fingerprint.New(o)
		existing.result = *result
		existing.storedAt = c.now()
		return
	}

	if len(c.entries)+1 > c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &cacheEntry{
		key:         key,
		fingerprint: fingerprint.New(o),
		result:      *result,
		storedAt:    c.now(),
	}
	c.order = append(c.order, key)
}

// evictOldest removes the oldest fifth of entries by timestamp in one
// sweep, so eviction does not run on every insert near the bound.
// Caller holds the lock.
func (c *Cache) evictOldest() {
	n := int(float64(c.maxSize) * evictFraction)
	if n < 1 {
		n = 1
	}

	byAge := make([]string, len(c.order))
	copy(byAge, c.order)
	sort.SliceStable(byAge, func(i, j int) bool {
		return c.entries[byAge[i]].storedAt.Before(c.entries[byAge[j]].storedAt)
	})
	if n > len(byAge) {
		n = len(byAge)
	}

	evict := make(map[string]bool, n)
	for _, key := range byAge[:n] {
		evict[key] = true
		delete(c.entries, key)
	}

	kept := c.order[:0]
	for _, key := range c.order {
		if !evict[key] {
			kept = append(kept, key)
		}
	}
	c.order = kept

	zap.L().Debug("analysis cache: evicted oldest entries", zap.Int("count", n))
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.entries = make(map[string]*cacheEntry)
}
