// Package cache provides a small in-process cache for computed translation
// statistics. Keys are typed values rather than formatted strings, so a
// malformed key is a compile error, not a silent miss.
package cache

import "sync"

// Kind names one class of cached value for a translation.
type Kind string

const (
	// KindCounts caches the unit aggregate of one translation.
	KindCounts Kind = "counts"
	// KindLastAuthor caches the resolved author of pending edits.
	KindLastAuthor Kind = "last_author"
	// KindSuggestions caches the pending suggestion count of a translation.
	KindSuggestions Kind = "suggestions"
)

// Key identifies one cached value.
type Key struct {
	TranslationID string
	Kind          Kind
}

// Cache is a concurrency-safe map of Key to value. The zero value is not
// usable; construct with New.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]any
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[Key]any)}
}

// Get returns the cached value and whether it was present.
func (c *Cache) Get(k Key) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[k]
	return v, ok
}

// Set stores a value under the key, replacing any earlier entry.
func (c *Cache) Set(k Key, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = v
}

// Invalidate removes one entry.
func (c *Cache) Invalidate(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, k)
}

// InvalidateTranslation removes every entry for a translation, across all
// kinds.
func (c *Cache) InvalidateTranslation(translationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.TranslationID == translationID {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
