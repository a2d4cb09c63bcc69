package commit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/eventcommit/core/internal/domain"
)

// Lane is the per-partition serial worker (C2): a FIFO queue plus a
// single-bit admission latch. At most one context is in flight per
// lane at any time; completion of the current context is the only
// event that admits the next one. Matches the PersistEventWorker data
// model of spec.md §3 directly (queue + is_handling), rather than the
// "one goroutine blocking on a channel forever" shape, because the
// concurrency-conflict retry path needs to hold the slot across a
// command re-execution without a processor actively blocked on it
// (see the StateMachine doc in statemachine.go on retry continuation).
type Lane struct {
	id int

	mu    sync.Mutex
	queue []*domain.EventCommittingContext

	handling atomic.Bool

	core *Core
}

func newLane(id int, core *Core) *Lane {
	return &Lane{id: id, core: core}
}

// Enqueue appends a context to this lane's queue. Multi-producer safe.
func (l *Lane) Enqueue(cctx *domain.EventCommittingContext) {
	l.mu.Lock()
	l.queue = append(l.queue, cctx)
	l.mu.Unlock()
}

func (l *Lane) dequeue() (*domain.EventCommittingContext, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	cctx := l.queue[0]
	l.queue = l.queue[1:]
	return cctx, true
}

func (l *Lane) hasQueued() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) > 0
}

// TryCommitNext implements spec.md §4.2's admission protocol. Loop,
// not recursion, bounds the "queue became non-empty while we were
// releasing" re-entry per spec.md §9.
func (l *Lane) TryCommitNext(ctx context.Context) {
	for {
		if !l.handling.CompareAndSwap(false, true) {
			return
		}
		cctx, ok := l.dequeue()
		if ok {
			go l.process(ctx, cctx)
			return
		}
		l.handling.Store(false)
		if !l.hasQueued() {
			return
		}
		// queue gained an entry between our dequeue check and the
		// release above; loop to re-attempt admission instead of
		// leaving it stranded.
	}
}

// release drops the admission latch. Only called on terminal
// completion of the context the lane is currently holding, never on
// the concurrency-conflict retry path, which keeps the latch held
// across the re-executed command (spec.md §4.5).
func (l *Lane) release() {
	l.handling.Store(false)
}

// process drives one dequeued context through the commit state
// machine to a terminal result, looping internally (not re-enqueuing
// through the dispatcher) across concurrency-conflict retries so the
// lane never needs to hand the admission latch to anyone else until
// the retried attempt is actually done.
func (l *Lane) process(ctx context.Context, cctx *domain.EventCommittingContext) {
	for {
		result, retryCtx := l.core.sm.Drive(ctx, cctx)
		if result != nil {
			l.core.completeAndAdmitNext(ctx, l, cctx.ProcessingCommand, *result)
			return
		}
		if retryCtx == nil {
			// The command handler owned this attempt to completion
			// itself (spec.md §4.3's version>1 row, "decided nothing
			// further should be committed") and no CommandResult is
			// owed by the lane. Release the latch exactly as
			// completeAndAdmitNext would on a terminal result, just
			// without delivering one.
			l.release()
			l.TryCommitNext(ctx)
			return
		}
		cctx = retryCtx
	}
}
