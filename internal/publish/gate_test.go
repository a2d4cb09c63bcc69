package publish

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/eventcommit/core/internal/domain"
	"github.com/eventcommit/core/internal/retry"
)

type stubLogger struct{}

func (stubLogger) Debugw(string, ...interface{}) {}
func (stubLogger) Infow(string, ...interface{})  {}
func (stubLogger) Warnw(string, ...interface{})  {}
func (stubLogger) Errorw(string, ...interface{}) {}

type stubPublisher struct {
	mu        sync.Mutex
	calls     int
	failNextN int
}

func (p *stubPublisher) PublishAsync(ctx context.Context, stream domain.DomainEventStream) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failNextN > 0 {
		p.failNextN--
		return fmt.Errorf("transient broker error")
	}
	return nil
}

func TestGatePublishSucceedsFirstTry(t *testing.T) {
	pub := &stubPublisher{}
	gate := NewGate(pub, retry.NewExecutor(stubLogger{}, 3, time.Second, time.Millisecond), stubLogger{})

	result := gate.Publish(context.Background(), domain.DomainEventStream{CommandId: "c1", AggregateId: "a1"})
	if result.Status != domain.ResultSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	if pub.calls != 1 {
		t.Fatalf("expected exactly 1 publish attempt, got %d", pub.calls)
	}
}

func TestGatePublishRetriesThenSucceeds(t *testing.T) {
	pub := &stubPublisher{failNextN: 2}
	gate := NewGate(pub, retry.NewExecutor(stubLogger{}, 5, time.Second, time.Millisecond), stubLogger{})

	result := gate.Publish(context.Background(), domain.DomainEventStream{CommandId: "c1", AggregateId: "a1"})
	if result.Status != domain.ResultSuccess {
		t.Fatalf("expected eventual success, got %+v", result)
	}
	if pub.calls != 3 {
		t.Fatalf("expected 3 attempts (2 failures + 1 success), got %d", pub.calls)
	}
}

func TestGatePublishExhaustsBudgetAndFails(t *testing.T) {
	pub := &stubPublisher{failNextN: 100}
	gate := NewGate(pub, retry.NewExecutor(stubLogger{}, 2, time.Second, time.Millisecond), stubLogger{})

	result := gate.Publish(context.Background(), domain.DomainEventStream{CommandId: "c1", AggregateId: "a1"})
	if result.Status != domain.ResultFailed {
		t.Fatalf("expected failure once retry budget is exhausted, got %+v", result)
	}
	if result.ErrorMessage == "" {
		t.Fatalf("expected a non-empty error message")
	}
}
