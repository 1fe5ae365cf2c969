package evaluation

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/talentmatch/matchd/internal/scoring"
)

// cacheEntry holds one evaluation result with its write time.
type cacheEntry struct {
	evaluation scoring.Evaluation
	storedAt   time.Time
}

// Cache provides in-memory storage of evaluation results so repeated
// ranking requests for the same job do not re-run the judge.
// For production, consider using Redis for persistence and TTL support.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

// NewCache creates an evaluation cache with the given TTL and starts the
// cleanup goroutine.
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}

	go c.cleanupLoop()

	return c
}

// DefaultCache creates a cache with a 1 hour TTL, matching the lifetime of a
// typical sourcing session.
func DefaultCache() *Cache {
	return NewCache(1 * time.Hour)
}

// CacheKey derives a stable key from the job description and candidate ID.
func CacheKey(description, candidateID string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(description)), " ")
	sum := sha256.Sum256([]byte(normalized + "\x00" + candidateID))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached evaluation for the key, if present and fresh.
func (c *Cache) Get(key string) (scoring.Evaluation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Since(entry.storedAt) > c.ttl {
		return scoring.Evaluation{}, false
	}
	return entry.evaluation, true
}

// Put stores an evaluation under the key.
func (c *Cache) Put(key string, eval scoring.Evaluation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		evaluation: eval,
		storedAt:   time.Now(),
	}
}

// Clear removes all cached evaluations.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// cleanupLoop periodically removes expired entries.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) > c.ttl {
			delete(c.entries, key)
		}
	}
}
