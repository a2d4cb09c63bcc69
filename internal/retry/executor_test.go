package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eventcommit/core/internal/domain"
)

type nullLogger struct{}

func (nullLogger) Debugw(string, ...interface{}) {}
func (nullLogger) Infow(string, ...interface{})  {}
func (nullLogger) Warnw(string, ...interface{})  {}
func (nullLogger) Errorw(string, ...interface{}) {}

var _ domain.Logger = nullLogger{}

func describeNoop() string { return "test-op" }

func TestRunSucceedsImmediately(t *testing.T) {
	e := NewExecutor(nullLogger{}, 5, 0, time.Millisecond)
	calls := 0
	err := e.Run(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	}, describeNoop, nil)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call, got %d", calls)
	}
}

func TestRunRetriesTransientThenSucceeds(t *testing.T) {
	e := NewExecutor(nullLogger{}, 5, 0, time.Millisecond)
	calls := 0
	err := e.Run(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, describeNoop, nil)
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRunExhaustsRetryBudget(t *testing.T) {
	e := NewExecutor(nullLogger{}, 2, 0, time.Millisecond)
	calls := 0
	err := e.Run(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("always fails")
	}, describeNoop, nil)
	if err == nil {
		t.Fatalf("expected an error once the retry budget is exhausted")
	}
	if calls != 3 {
		t.Fatalf("expected 1 initial attempt + 2 retries = 3 calls, got %d", calls)
	}
}

func TestRunStopsImmediatelyOnTerminalClassification(t *testing.T) {
	e := NewExecutor(nullLogger{}, 5, 0, time.Millisecond)
	calls := 0
	terminalErr := errors.New("permanent")
	isTerminal := func(err error) bool { return errors.Is(err, terminalErr) }

	err := e.Run(context.Background(), "op", func(context.Context) error {
		calls++
		return terminalErr
	}, describeNoop, isTerminal)
	if !errors.Is(err, terminalErr) {
		t.Fatalf("expected terminal error to be returned, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call before stopping on a terminal error, got %d", calls)
	}
}

func TestRunRespectsAttemptTimeout(t *testing.T) {
	e := NewExecutor(nullLogger{}, 1, 10*time.Millisecond, time.Millisecond)
	err := e.Run(context.Background(), "op", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, describeNoop, nil)
	if err == nil {
		t.Fatalf("expected an error once every attempt times out")
	}
}
