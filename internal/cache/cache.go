// Package cache implements the in-memory aggregate cache (the cache
// half of C5): a thread-safe get/set keyed by (aggregateId, type),
// plus a recovery-path refresh from the event store.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/eventcommit/core/internal/domain"
)

// MemoryCache is safe for concurrent access from every commit lane,
// mirroring the teacher's InMemoryEngine mutex/map idiom generalized
// from chronicle routes to aggregates.
type MemoryCache struct {
	factory domain.AggregateRootFactory
	store   domain.EventStore

	mu   sync.RWMutex
	byId map[string]domain.AggregateRoot
}

func New(factory domain.AggregateRootFactory, store domain.EventStore) *MemoryCache {
	return &MemoryCache{factory: factory, store: store, byId: make(map[string]domain.AggregateRoot)}
}

func cacheKey(typeName domain.AggregateTypeName, id domain.AggregateId) string {
	return fmt.Sprintf("%s::%s", typeName, id)
}

func (c *MemoryCache) Get(aggregateId domain.AggregateId, typeName domain.AggregateTypeName) (domain.AggregateRoot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	root, ok := c.byId[cacheKey(typeName, aggregateId)]
	return root, ok
}

func (c *MemoryCache) Set(root domain.AggregateRoot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byId[cacheKey(root.GetType(), root.UniqueId())] = root
}

// RefreshAggregateFromEventStore rebuilds the aggregate from the full
// event history and stores it, unconditionally overwriting whatever
// was cached. Used on the optimistic-concurrency-conflict retry path,
// where the cached copy is known stale.
func (c *MemoryCache) RefreshAggregateFromEventStore(ctx context.Context, typeName domain.AggregateTypeName, aggregateId domain.AggregateId) error {
	root, err := c.factory.Create(typeName)
	if err != nil {
		return fmt.Errorf("create aggregate %s/%s: %w", typeName, aggregateId, err)
	}

	var streams []domain.DomainEventStream
	for version := uint64(1); ; version++ {
		stream, err := c.store.FindByVersion(ctx, aggregateId, version)
		if err != nil {
			return fmt.Errorf("load version %d for %s: %w", version, aggregateId, err)
		}
		if stream == nil {
			break
		}
		streams = append(streams, *stream)
	}

	root.ReplayEvents(streams)
	c.Set(root)
	return nil
}
