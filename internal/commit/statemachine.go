package commit

import (
	"context"
	"fmt"
	"sync"

	"github.com/eventcommit/core/internal/cache"
	"github.com/eventcommit/core/internal/domain"
	"github.com/eventcommit/core/internal/publish"
	"github.com/eventcommit/core/internal/retry"
)

// StateMachine is the Commit State Machine (C3): it drives one
// EventCommittingContext from APPENDING to a terminal branch per
// spec.md §4.3's transition table.
//
// Drive returns either a terminal CommandResult (the caller must
// complete the processing command and release the lane) or a
// non-terminal continuation context (the concurrency-conflict retry
// branch): the caller loops, driving the continuation through the
// same state machine without releasing the lane in between.
type StateMachine struct {
	store     domain.EventStore
	cache     domain.MemoryCache
	refresher *cache.Refresher
	gate      *publish.Gate
	appendIO  *retry.Executor
	logger    domain.Logger

	mu      sync.RWMutex
	handler domain.CommandHandler
}

func newStateMachine(store domain.EventStore, memCache domain.MemoryCache, refresher *cache.Refresher, gate *publish.Gate, appendIO *retry.Executor, logger domain.Logger) *StateMachine {
	return &StateMachine{store: store, cache: memCache, refresher: refresher, gate: gate, appendIO: appendIO, logger: logger}
}

func (sm *StateMachine) setHandler(h domain.CommandHandler) {
	sm.mu.Lock()
	sm.handler = h
	sm.mu.Unlock()
}

func (sm *StateMachine) commandHandler() domain.CommandHandler {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.handler
}

func (sm *StateMachine) Drive(ctx context.Context, cctx *domain.EventCommittingContext) (*domain.CommandResult, *domain.EventCommittingContext) {
	stream := cctx.EventStream

	var outcome domain.AppendOutcome
	err := sm.appendIO.Run(ctx, "append_event_stream", func(opCtx context.Context) error {
		o, appendErr := sm.store.Append(opCtx, stream)
		outcome = o
		return appendErr
	}, func() string {
		return fmt.Sprintf("aggregate_id=%s command_id=%s version=%d", stream.AggregateId, stream.CommandId, stream.Version)
	}, nil)

	if err != nil {
		sm.logger.Errorw("append exhausted retry budget", "aggregate_id", stream.AggregateId, "command_id", stream.CommandId, "error", err.Error())
		result := domain.Failed(stream.CommandId, stream.AggregateId, err.Error())
		return &result, nil
	}

	switch outcome {
	case domain.AppendSuccess:
		return sm.onSuccess(ctx, cctx), nil
	case domain.AppendDuplicateCommand:
		return sm.onDuplicateCommand(ctx, stream), nil
	case domain.AppendDuplicateEvent:
		if stream.Version == 1 {
			return sm.onDuplicateFirstEvent(ctx, stream), nil
		}
		return sm.onConcurrencyConflict(ctx, cctx)
	default:
		result := domain.Failed(stream.CommandId, stream.AggregateId, fmt.Sprintf("unrecognized append outcome %v", outcome))
		return &result, nil
	}
}

func (sm *StateMachine) onSuccess(ctx context.Context, cctx *domain.EventCommittingContext) *domain.CommandResult {
	sm.refresher.RefreshCacheAfterCommit(cctx.AggregateRoot, cctx.EventStream)
	result := sm.gate.Publish(ctx, cctx.EventStream)
	return &result
}

func (sm *StateMachine) onDuplicateCommand(ctx context.Context, stream domain.DomainEventStream) *domain.CommandResult {
	existing, err := sm.store.FindByCommandId(ctx, stream.AggregateId, stream.CommandId)
	if err != nil {
		sm.logger.Errorw("find by command id failed during duplicate-command recovery", "aggregate_id", stream.AggregateId, "command_id", stream.CommandId, "error", err.Error())
		result := domain.Failed(stream.CommandId, stream.AggregateId, err.Error())
		return &result
	}
	if existing == nil {
		sm.logger.Errorw("duplicate command reported but no prior stream found", "aggregate_id", stream.AggregateId, "command_id", stream.CommandId)
		result := domain.Failed(stream.CommandId, stream.AggregateId, "Duplicate command execution.")
		return &result
	}
	return sm.recoverFromExistingStream(ctx, *existing)
}

func (sm *StateMachine) onDuplicateFirstEvent(ctx context.Context, stream domain.DomainEventStream) *domain.CommandResult {
	existing, err := sm.store.FindByVersion(ctx, stream.AggregateId, 1)
	if err != nil {
		sm.logger.Errorw("find by version 1 failed during creation-duplication recovery", "aggregate_id", stream.AggregateId, "command_id", stream.CommandId, "error", err.Error())
		result := domain.Failed(stream.CommandId, stream.AggregateId, err.Error())
		return &result
	}
	if existing == nil {
		sm.logger.Errorw("duplicate creation reported but version 1 stream not found", "aggregate_id", stream.AggregateId, "command_id", stream.CommandId)
		result := domain.Failed(stream.CommandId, stream.AggregateId, "Aggregate creation reported duplicate but no version 1 stream could be located.")
		return &result
	}
	if existing.CommandId != stream.CommandId {
		sm.logger.Errorw("duplicate aggregate creation by a different command", "aggregate_id", stream.AggregateId, "command_id", stream.CommandId, "existing_command_id", existing.CommandId)
		result := domain.Failed(stream.CommandId, stream.AggregateId, "Duplicate aggregate creation.")
		return &result
	}
	return sm.recoverFromExistingStream(ctx, *existing)
}

// recoverFromExistingStream implements the shared recovery action of
// spec.md §4.3's DuplicateCommand and first-version-duplication rows:
// refresh the cache from the already-persisted stream and publish it,
// reconstructing the post-append steps a prior crash may have lost.
func (sm *StateMachine) recoverFromExistingStream(ctx context.Context, stream domain.DomainEventStream) *domain.CommandResult {
	sm.logger.Infow("recovering already-persisted stream", "aggregate_id", stream.AggregateId, "command_id", stream.CommandId, "version", stream.Version)
	sm.refresher.RefreshCacheFromStream(stream)
	result := sm.gate.Publish(ctx, stream)
	return &result
}

// onConcurrencyConflict implements spec.md §4.3's version>1 row: an
// optimistic concurrency conflict. It refreshes the aggregate from
// the store and hands the command back to the command handler; on
// that path no CommandResult is produced here, the retried execution
// produces one via the EventCommittingContext this returns. A Failed
// result is returned only when no handler is registered or the
// handler itself returns an error.
func (sm *StateMachine) onConcurrencyConflict(ctx context.Context, cctx *domain.EventCommittingContext) (*domain.CommandResult, *domain.EventCommittingContext) {
	stream := cctx.EventStream
	pc := cctx.ProcessingCommand

	if err := sm.cache.RefreshAggregateFromEventStore(ctx, stream.AggregateType, stream.AggregateId); err != nil {
		sm.logger.Errorw("refresh aggregate from event store failed on concurrency conflict", "aggregate_id", stream.AggregateId, "error", err.Error())
	}

	retried := pc.IncrementConcurrentRetriedCount()
	pc.CommandExecuteContext().Clear()
	sm.logger.Infow("concurrency conflict, retrying command", "aggregate_id", stream.AggregateId, "command_id", stream.CommandId, "version", stream.Version, "concurrent_retried_count", retried)

	handler := sm.commandHandler()
	if handler == nil {
		result := domain.Failed(stream.CommandId, stream.AggregateId, "no command handler registered to retry concurrency conflict")
		return &result, nil
	}

	retryCtx, err := handler.HandleAsync(ctx, pc)
	if err != nil {
		result := domain.Failed(stream.CommandId, stream.AggregateId, err.Error())
		return &result, nil
	}
	if retryCtx == nil {
		// The handler decided, against the refreshed state, that
		// nothing further should be committed. No CommandResult was
		// asked for by this attempt and none was produced; the
		// handler is responsible for completing pc itself if it owes
		// the caller a result.
		return nil, nil
	}
	return nil, retryCtx
}
