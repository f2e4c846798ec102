package tts

import (
	"strings"
	"sync"
)

// Cache maps normalized utterance text to an already-synthesized audio
// reference. It is a speed optimization only, never the source of truth;
// implementations are swappable for a persistent store without touching
// callers.
type Cache interface {
	Lookup(text string) (string, bool)
	Store(text, path string)
	Len() int
}

// Mutex is required because Go maps are NOT thread-safe and webhook handlers
// hit this concurrently.
type memoryCache struct {
	mu    sync.Mutex
	paths map[string]string
}

func NewMemoryCache() Cache {
	return &memoryCache{paths: make(map[string]string)}
}

func (c *memoryCache) Lookup(text string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path, ok := c.paths[cacheKey(text)]
	return path, ok
}

func (c *memoryCache) Store(text, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[cacheKey(text)] = path
}

func (c *memoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths)
}

func cacheKey(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
