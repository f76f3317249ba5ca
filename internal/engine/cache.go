package engine

import (
	"sync"

	"github.com/openjudge/content-evaluator/internal/models"
)

// requestCache memoizes scheme evaluations for the lifetime of one
// request. The first demand for a scheme id owns the evaluation; every
// later demand awaits the same entry, so a scheme referenced through
// multiple derived parents is judged at most once.
type requestCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	done   chan struct{}
	result models.EvaluationResult
}

func newRequestCache() *requestCache {
	return &requestCache{entries: make(map[string]*cacheEntry)}
}

// demand returns the entry for id and whether the caller is the owner
// responsible for evaluating and settling it.
func (c *requestCache) demand(id string) (*cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[id]; ok {
		return entry, false
	}
	entry := &cacheEntry{done: make(chan struct{})}
	c.entries[id] = entry
	return entry, true
}

// settle publishes the result. Must be called exactly once by the owner.
func (e *cacheEntry) settle(result models.EvaluationResult) {
	e.result = result
	close(e.done)
}

// await blocks until the entry is settled.
func (e *cacheEntry) await() models.EvaluationResult {
	<-e.done
	return e.result
}
