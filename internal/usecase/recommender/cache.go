package recommender

import (
	"sync"

	"github.com/homeswipe/homeswipe/internal/domain"
	"github.com/homeswipe/homeswipe/internal/metrics"
)

// ModelCache holds per-user models in memory. Entries are replaced wholesale
// on retraining and live as long as the process does.
type ModelCache struct {
	mu      sync.RWMutex
	entries map[string]*domain.ModelEntry
}

// NewModelCache creates an empty model cache.
func NewModelCache() *ModelCache {
	return &ModelCache{entries: make(map[string]*domain.ModelEntry)}
}

// Get returns the cached model for a user, if any.
func (c *ModelCache) Get(userID string) (*domain.ModelEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[userID]
	return entry, ok
}

// Put stores or replaces a user's model.
func (c *ModelCache) Put(userID string, entry *domain.ModelEntry) {
	c.mu.Lock()
	c.entries[userID] = entry
	size := len(c.entries)
	c.mu.Unlock()

	metrics.ModelCacheSize.Set(float64(size))
}

// Len returns the number of cached models.
func (c *ModelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
