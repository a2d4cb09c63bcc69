package commit

import (
	"context"

	"github.com/eventcommit/core/internal/domain"
	"github.com/eventcommit/core/internal/hashroute"
)

// Dispatcher is the Commit Dispatcher (C1): it hash-routes a
// committing context to one of N serial lanes by aggregate id.
type Dispatcher struct {
	lanes []*Lane
}

func newDispatcher(n int, core *Core) *Dispatcher {
	lanes := make([]*Lane, n)
	for i := range lanes {
		lanes[i] = newLane(i, core)
	}
	return &Dispatcher{lanes: lanes}
}

func (d *Dispatcher) laneFor(aggregateId domain.AggregateId) *Lane {
	p := hashroute.PartitionFor(string(aggregateId), len(d.lanes))
	return d.lanes[p]
}

// Commit enqueues the context into its partition's lane and attempts
// to admit it immediately.
func (d *Dispatcher) Commit(ctx context.Context, cctx *domain.EventCommittingContext) {
	lane := d.laneFor(cctx.AggregateId())
	lane.Enqueue(cctx)
	lane.TryCommitNext(ctx)
}
