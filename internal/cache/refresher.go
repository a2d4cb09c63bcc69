package cache

import (
	"github.com/eventcommit/core/internal/domain"
)

// Refresher is the cache-refresh half of C5: it drives the MemoryCache
// collaborator through the two post-commit refresh variants spec.md
// §4.5 describes. Both variants log-and-swallow failures: the event is
// already durable, so a cache miss is a performance concern, not a
// correctness one: the aggregate repopulates on next load.
type Refresher struct {
	cache   domain.MemoryCache
	factory domain.AggregateRootFactory
	logger  domain.Logger
}

func NewRefresher(cache domain.MemoryCache, factory domain.AggregateRootFactory, logger domain.Logger) *Refresher {
	return &Refresher{cache: cache, factory: factory, logger: logger}
}

// RefreshCacheAfterCommit finalizes the in-memory aggregate at the
// version it was just durably committed at and stores it.
func (r *Refresher) RefreshCacheAfterCommit(root domain.AggregateRoot, stream domain.DomainEventStream) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorw("cache refresh after commit panicked", "aggregate_id", stream.AggregateId, "recovered", rec)
		}
	}()
	root.AcceptChanges(stream.Version)
	r.cache.Set(root)
}

// RefreshCacheFromStream is the recovery-path refresh used when a
// crash happened between append and publish: if the aggregate is
// already cached, the in-memory copy is at least as fresh and nothing
// is done; otherwise a fresh aggregate is built and replayed from the
// single recovered stream.
func (r *Refresher) RefreshCacheFromStream(stream domain.DomainEventStream) {
	if _, ok := r.cache.Get(stream.AggregateId, stream.AggregateType); ok {
		return
	}
	root, err := r.factory.Create(stream.AggregateType)
	if err != nil {
		r.logger.Errorw("cache refresh from stream: create aggregate failed", "aggregate_id", stream.AggregateId, "error", err.Error())
		return
	}
	root.ReplayEvents([]domain.DomainEventStream{stream})
	r.cache.Set(root)
}
