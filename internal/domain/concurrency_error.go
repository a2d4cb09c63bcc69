package domain

import "fmt"

// ConcurrencyConflictError signals that a store already holds a
// different stream at the version being appended.
type ConcurrencyConflictError struct {
	AggregateId     AggregateId
	ExpectedVersion uint64
	CurrentVersion  uint64
}

func NewConcurrencyConflictError(aggregateId AggregateId, expected, current uint64) ConcurrencyConflictError {
	return ConcurrencyConflictError{AggregateId: aggregateId, ExpectedVersion: expected, CurrentVersion: current}
}

func (e ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrency-conflict: aggregate %s expected version %d, store has %d", e.AggregateId, e.ExpectedVersion, e.CurrentVersion)
}
