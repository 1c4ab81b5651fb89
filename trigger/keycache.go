// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package trigger

import (
	"container/list"
	"sync"

	"github.com/luxfi/trigger/fhe"
	"github.com/luxfi/trigger/internal/storage"
)

// evaluatorCache keeps evaluators for recently used key handles. Handles
// are content addresses, so an entry can never go stale.
type evaluatorCache struct {
	mu      sync.Mutex
	size    int
	order   *list.List
	entries map[storage.Handle]*list.Element
}

type cacheEntry struct {
	handle storage.Handle
	eval   *fhe.Evaluator
}

func newEvaluatorCache(size int) *evaluatorCache {
	return &evaluatorCache{
		size:    size,
		order:   list.New(),
		entries: make(map[storage.Handle]*list.Element),
	}
}

func (c *evaluatorCache) get(h storage.Handle) (*fhe.Evaluator, bool) {
	if c.size <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[h]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).eval, true
}

func (c *evaluatorCache) put(h storage.Handle, eval *fhe.Evaluator) {
	if c.size <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[h]; ok {
		c.order.MoveToFront(el)
		return
	}
	c.entries[h] = c.order.PushFront(&cacheEntry{handle: h, eval: eval})
	for c.order.Len() > c.size {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.entries, last.Value.(*cacheEntry).handle)
	}
}
