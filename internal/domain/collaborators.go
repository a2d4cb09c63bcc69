package domain

import (
	"context"
)

// EventStore is the durable append-only log collaborator. Guarantees:
// Append is atomic in its outcome decision and durable before
// returning AppendSuccess.
type EventStore interface {
	Append(ctx context.Context, stream DomainEventStream) (AppendOutcome, error)
	FindByCommandId(ctx context.Context, aggregateId AggregateId, commandId CommandId) (*DomainEventStream, error)
	FindByVersion(ctx context.Context, aggregateId AggregateId, version uint64) (*DomainEventStream, error)
}

// Publisher delivers a committed stream downstream. Implementations
// must tolerate duplicate publishes, since the core republishes on
// recovery.
type Publisher interface {
	PublishAsync(ctx context.Context, stream DomainEventStream) error
}

// MemoryCache is the thread-safe in-process aggregate cache.
type MemoryCache interface {
	Get(aggregateId AggregateId, typeName AggregateTypeName) (AggregateRoot, bool)
	Set(root AggregateRoot)
	RefreshAggregateFromEventStore(ctx context.Context, typeName AggregateTypeName, aggregateId AggregateId) error
}

// AggregateRoot is the in-process domain model collaborator. Its
// business behavior is out of scope; the core only drives these
// operations.
type AggregateRoot interface {
	UniqueId() AggregateId
	Version() uint64
	GetType() AggregateTypeName
	AcceptChanges(version uint64)
	ReplayEvents(streams []DomainEventStream)
}

// CommandExecuteContext is cleared and re-read across a concurrency
// retry attempt.
type CommandExecuteContext interface {
	Clear()
}

// ProcessingCommand is the collaborator-owned command in flight. The
// core relies only on this surface.
type ProcessingCommand interface {
	MessageId() CommandId
	AggregateRootId() AggregateId
	Items() map[string]string
	CommandExecuteContext() CommandExecuteContext
	IncrementConcurrentRetriedCount() int
	Complete(result CommandResult)
}

// AggregateRootFactory constructs a fresh, empty aggregate of a given
// type, used on the recovery and concurrency-retry paths.
type AggregateRootFactory interface {
	Create(typeName AggregateTypeName) (AggregateRoot, error)
}

// TypeNameProvider resolves an aggregate type name to a type handle.
// In this Go port the handle is just the type name itself; the
// registry package folds this contract and AggregateRootFactory into
// one lookup.
type TypeNameProvider interface {
	GetType(typeName AggregateTypeName) (AggregateTypeName, bool)
}

// CommandHandler re-executes a processing command on the concurrency
// conflict retry path. It returns the EventCommittingContext the
// re-executed command wants committed next, or nil if the command
// handler decided, against the freshened aggregate state, that
// nothing further should be committed (e.g. the command is now a
// no-op). No CommandResult is delivered for the attempt that
// triggered the retry; the context this returns is what the core
// commits and ultimately completes next.
type CommandHandler interface {
	HandleAsync(ctx context.Context, pc ProcessingCommand) (*EventCommittingContext, error)
}

// Logger is the leveled sink every core component is given explicitly
// at construction. Satisfied by *zap.SugaredLogger.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}
