// Package commit implements the committing core: C1 (Dispatcher), C2
// (Lane), C3 (StateMachine), and Core, the facade that wires C1-C5
// together and is the package's sole external entry point.
package commit

import (
	"context"
	"time"

	"github.com/eventcommit/core/internal/cache"
	"github.com/eventcommit/core/internal/domain"
	"github.com/eventcommit/core/internal/publish"
	"github.com/eventcommit/core/internal/retry"
)

// Config bounds the core's concurrency and retry behavior.
type Config struct {
	// LaneCount is the number of serial partitions (spec.md §3's N).
	LaneCount int
	// AppendMaxRetries bounds the event store's bounded-retry I/O
	// executor (C4) on the append path.
	AppendMaxRetries uint64
	// AppendAttemptTimeout bounds a single append attempt.
	AppendAttemptTimeout time.Duration
	// PublishMaxRetries bounds the downstream publisher's bounded-retry
	// I/O executor (C4) on the publish path.
	PublishMaxRetries uint64
	// PublishAttemptTimeout bounds a single publish attempt.
	PublishAttemptTimeout time.Duration
	// AppendBackoffInitialInterval seeds the append retry executor's
	// exponential backoff; zero keeps the library default (500ms).
	AppendBackoffInitialInterval time.Duration
	// PublishBackoffInitialInterval seeds the publish retry executor's
	// exponential backoff; zero keeps the library default (500ms).
	PublishBackoffInitialInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.LaneCount <= 0 {
		c.LaneCount = 8
	}
	if c.AppendMaxRetries == 0 {
		c.AppendMaxRetries = 5
	}
	if c.PublishMaxRetries == 0 {
		c.PublishMaxRetries = 5
	}
	return c
}

// Core is the assembled Event Committing Core: it owns the dispatcher
// (C1/C2), the state machine (C3), and the cache/publish collaborators
// the state machine drives (C5). Business command handling lives
// outside Core; Core only knows how to commit and, on a concurrency
// conflict, how to ask the registered CommandHandler to try again.
type Core struct {
	dispatcher *Dispatcher
	sm         *StateMachine
	logger     domain.Logger
}

// New assembles a Core from its collaborators. store, memCache, and
// publisher are supplied by the host application (e.g. the SQLite
// event store, the in-process cache, and a kafkapub/rabbitpub
// producer); refresher and gate are built internally from them so the
// host never has to reassemble C5's wiring itself.
func New(cfg Config, store domain.EventStore, memCache domain.MemoryCache, factory domain.AggregateRootFactory, publisher domain.Publisher, logger domain.Logger) *Core {
	cfg = cfg.withDefaults()

	refresher := cache.NewRefresher(memCache, factory, logger)
	appendIO := retry.NewExecutor(logger, cfg.AppendMaxRetries, cfg.AppendAttemptTimeout, cfg.AppendBackoffInitialInterval)
	publishIO := retry.NewExecutor(logger, cfg.PublishMaxRetries, cfg.PublishAttemptTimeout, cfg.PublishBackoffInitialInterval)
	gate := publish.NewGate(publisher, publishIO, logger)

	core := &Core{logger: logger}
	core.sm = newStateMachine(store, memCache, refresher, gate, appendIO, logger)
	core.dispatcher = newDispatcher(cfg.LaneCount, core)
	return core
}

// SetCommandHandler registers the collaborator the state machine calls
// back into on a concurrency-conflict retry (spec.md §4.3's
// version>1 row). Must be called once before the first CommitDomainEventAsync.
func (c *Core) SetCommandHandler(h domain.CommandHandler) {
	c.sm.setHandler(h)
}

// CommitDomainEventAsync is the commit entry point (spec.md §4.1's C1
// operation): it admits cctx into its aggregate's lane. The lane
// drives it to a terminal CommandResult, delivered via
// cctx.ProcessingCommand.Complete, possibly after one or more
// internal concurrency-conflict retries that never surface an
// intermediate result.
func (c *Core) CommitDomainEventAsync(ctx context.Context, cctx *domain.EventCommittingContext) {
	c.dispatcher.Commit(ctx, cctx)
}

// PublishDomainEventAsync re-publishes an already-durable stream
// without going through the commit state machine at all. Used by a
// host's startup recovery sweep (spec.md §4.6) to flush streams that
// were committed but never confirmed published before a crash.
func (c *Core) PublishDomainEventAsync(ctx context.Context, stream domain.DomainEventStream) domain.CommandResult {
	return c.sm.gate.Publish(ctx, stream)
}

// completeAndAdmitNext delivers the terminal result to the processing
// command, releases the lane's admission latch, and attempts to admit
// whatever is queued behind it. Called at most once per
// CommitDomainEventAsync call, regardless of how many concurrency
// retries it took to reach a terminal result; it is not called when
// the command handler returns no context to commit (Lane.process then
// releases the latch itself without delivering a result).
func (c *Core) completeAndAdmitNext(ctx context.Context, lane *Lane, pc domain.ProcessingCommand, result domain.CommandResult) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Errorw("processing command completion panicked", "aggregate_id", result.AggregateId, "command_id", result.CommandId, "recovered", rec)
		}
		// Must run even if pc.Complete panicked above, or this lane's
		// admission latch stays held forever and its partition wedges.
		lane.release()
		lane.TryCommitNext(ctx)
	}()
	pc.Complete(result)
}
