// Package retry implements the bounded-retry I/O executor (C4):
// a generic wrapper around a fallible async operation that retries
// transient faults with backoff and reports a terminal outcome
// exactly once.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/eventcommit/core/internal/domain"
)

// TerminalClassifier decides whether an error returned by an operation
// should stop retrying immediately. Anything it does not classify as
// terminal is treated as transient and retried with backoff, per
// spec.md §9's "treats all exceptions as transient unless the caller
// classifies them terminal".
type TerminalClassifier func(error) bool

// AlwaysTransient never stops the retry loop on its own; it relies on
// the retry cap to eventually convert exhaustion into a terminal
// failure.
func AlwaysTransient(error) bool { return false }

// Executor runs a described operation to success or terminal failure.
type Executor struct {
	logger          domain.Logger
	maxRetries      uint64
	attemptBudget   time.Duration
	initialInterval time.Duration
}

// NewExecutor builds an Executor. maxRetries bounds the retry cap a
// persistently transient fault eventually breaches (spec.md §8's
// retry-boundedness property); attemptBudget bounds a single
// operation attempt's latency so a wedged call cannot block a lane
// forever (spec.md §5's liveness recommendation). initialInterval
// seeds the exponential backoff's first delay; zero keeps
// backoff.NewExponentialBackOff's own default (500ms), which is what
// production wiring wants. Tests that exercise the full retry budget
// pass a near-zero interval so the backoff delay does not dominate
// the test's own wall-clock budget.
func NewExecutor(logger domain.Logger, maxRetries uint64, attemptBudget time.Duration, initialInterval time.Duration) *Executor {
	return &Executor{logger: logger, maxRetries: maxRetries, attemptBudget: attemptBudget, initialInterval: initialInterval}
}

// Run attempts operation, retrying transient failures with exponential
// backoff up to maxRetries, and returns the terminal outcome: nil on
// success, or the last error once the attempt is classified terminal
// (either by isTerminal or by exhausting the retry budget). describe
// is called lazily, only when a retry is logged, to avoid building a
// diagnostic string on the hot success path.
func (e *Executor) Run(ctx context.Context, opName string, operation func(context.Context) error, describe func() string, isTerminal TerminalClassifier) error {
	if isTerminal == nil {
		isTerminal = AlwaysTransient
	}

	retries := 0
	op := func() error {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if e.attemptBudget > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, e.attemptBudget)
			defer cancel()
		}
		err := operation(attemptCtx)
		if err == nil {
			return nil
		}
		if isTerminal(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // bounded by MaxRetries below, not elapsed wall-clock
	if e.initialInterval > 0 {
		bo.InitialInterval = e.initialInterval
	}
	var policy backoff.BackOff = backoff.WithMaxRetries(bo, e.maxRetries)
	policy = backoff.WithContext(policy, ctx)

	notify := func(err error, d time.Duration) {
		retries++
		e.logger.Warnw("retrying operation",
			"op", opName,
			"context", describe(),
			"attempt", retries,
			"next_backoff", d.String(),
			"error", err.Error(),
		)
	}

	return backoff.RetryNotify(op, policy, notify)
}
