package evaluations

import (
	"sync"

	"github.com/cardscore/cardscore/pkg/scoring"
)

// EvaluatorCache is a thread-safe LRU cache of compiled evaluators keyed by
// model ID.
type EvaluatorCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]scoring.Evaluator
	order   []string // oldest first
}

// NewEvaluatorCache creates a cache with the given maximum number of entries.
// If maxSize <= 0, it defaults to 64.
func NewEvaluatorCache(maxSize int) *EvaluatorCache {
	if maxSize <= 0 {
		maxSize = 64
	}
	return &EvaluatorCache{
		maxSize: maxSize,
		entries: make(map[string]scoring.Evaluator),
	}
}

// Get returns the cached evaluator for a model ID.
func (c *EvaluatorCache) Get(modelID string) (scoring.Evaluator, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, ok := c.entries[modelID]
	if !ok {
		return nil, false
	}
	c.moveToEnd(modelID)
	return ev, true
}

// Put adds an evaluator, evicting the least recently used one if full.
func (c *EvaluatorCache) Put(modelID string, ev scoring.Evaluator) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[modelID]; ok {
		c.entries[modelID] = ev
		c.moveToEnd(modelID)
		return
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[modelID] = ev
	c.order = append(c.order, modelID)
}

// Len returns the number of cached evaluators.
func (c *EvaluatorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *EvaluatorCache) moveToEnd(id string) {
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, id)
			return
		}
	}
}
