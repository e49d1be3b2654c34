package relevance

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// embeddingCache is a TTL'd text→embedding map, generalized from the
// teacher's caching.Engine (a semantic prompt/response cache keyed by
// exact-match hash plus vector similarity) down to a simpler exact-text
// cache: the keyword vector in particular is recomputed on every article
// otherwise, even though it only changes when the catalog refreshes.
type embeddingCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	vector    []float64
	expiresAt time.Time
}

func newEmbeddingCache(ttl time.Duration) *embeddingCache {
	return &embeddingCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

func (c *embeddingCache) get(text string) ([]float64, bool) {
	key := hashText(text)
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.vector, true
}

func (c *embeddingCache) put(text string, vector []float64) {
	key := hashText(text)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{vector: vector, expiresAt: time.Now().Add(c.ttl)}
}

func hashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
