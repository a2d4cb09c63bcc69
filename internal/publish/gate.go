// Package publish implements the publish half of C5 (the Cache
// Refresher & Publisher Gate) plus C8's concrete downstream publisher
// adapters.
package publish

import (
	"context"
	"fmt"

	"github.com/eventcommit/core/internal/domain"
	"github.com/eventcommit/core/internal/retry"
)

// Gate drives a commit's message through the downstream publisher
// with bounded retry and reports the terminal CommandResult. Unlike
// the cache refresh, a publish failure after the retry budget is
// surfaced to the caller: the event is durable already, but its
// downstream visibility now requires operator intervention (spec.md
// §7; no background republisher is implemented here, matching the
// gap spec.md §9 documents rather than papering over).
type Gate struct {
	publisher domain.Publisher
	executor  *retry.Executor
	logger    domain.Logger
}

func NewGate(publisher domain.Publisher, executor *retry.Executor, logger domain.Logger) *Gate {
	return &Gate{publisher: publisher, executor: executor, logger: logger}
}

func (g *Gate) Publish(ctx context.Context, stream domain.DomainEventStream) domain.CommandResult {
	describe := func() string {
		return fmt.Sprintf("aggregate_id=%s command_id=%s version=%d", stream.AggregateId, stream.CommandId, stream.Version)
	}

	err := g.executor.Run(ctx, "publish_domain_event", func(opCtx context.Context) error {
		return g.publisher.PublishAsync(opCtx, stream)
	}, describe, nil)

	if err != nil {
		g.logger.Errorw("publish exhausted retry budget", "aggregate_id", stream.AggregateId, "command_id", stream.CommandId, "error", err.Error())
		return domain.Failed(stream.CommandId, stream.AggregateId, err.Error())
	}
	return domain.Succeeded(stream.CommandId, stream.AggregateId, nil, string(stream.AggregateType))
}
