// Package domain holds the value types and collaborator contracts the
// event committing core is built from. Business behavior of the
// aggregates themselves is out of scope; only the shape the core needs
// is defined here.
package domain

// AggregateId identifies an aggregate instance. Stable for the
// lifetime of the aggregate.
type AggregateId string

// AggregateTypeName resolves to a concrete aggregate kind through a
// TypeNameProvider (served here by the registry package).
type AggregateTypeName string

// CommandId identifies a user-issued command. Globally unique.
type CommandId string

// DomainEventStream is the immutable record of one command's effect on
// one aggregate at one version.
type DomainEventStream struct {
	CommandId     CommandId
	AggregateId   AggregateId
	AggregateType AggregateTypeName
	Version       uint64
	Events        []DomainEvent
	Items         map[string]string
}

// DomainEvent is a single event inside a DomainEventStream. Payload
// shape is owned by the aggregate, not the core.
type DomainEvent struct {
	EventType string
	Payload   []byte
}

// AppendOutcome classifies what the event store did with an Append
// call, per spec.md §4.3's transition table.
type AppendOutcome int

const (
	AppendSuccess AppendOutcome = iota
	AppendDuplicateCommand
	AppendDuplicateEvent
)

func (o AppendOutcome) String() string {
	switch o {
	case AppendSuccess:
		return "success"
	case AppendDuplicateCommand:
		return "duplicate_command"
	case AppendDuplicateEvent:
		return "duplicate_event"
	default:
		return "unknown"
	}
}

// CommandResultStatus is the terminal status delivered to the upstream
// command pipeline.
type CommandResultStatus int

const (
	ResultSuccess CommandResultStatus = iota
	ResultFailed
)

// CommandResult is the tagged record delivered exactly once per
// processing attempt via ProcessingCommand.Complete.
type CommandResult struct {
	Status         CommandResultStatus
	CommandId      CommandId
	AggregateId    AggregateId
	Payload        []byte
	ErrorMessage   string
	ResultTypeName string
}

func Succeeded(commandId CommandId, aggregateId AggregateId, payload []byte, resultTypeName string) CommandResult {
	return CommandResult{Status: ResultSuccess, CommandId: commandId, AggregateId: aggregateId, Payload: payload, ResultTypeName: resultTypeName}
}

func Failed(commandId CommandId, aggregateId AggregateId, message string) CommandResult {
	return CommandResult{Status: ResultFailed, CommandId: commandId, AggregateId: aggregateId, ErrorMessage: message}
}

// EventCommittingContext is the mutable in-flight record owned by a
// commit lane from dequeue to terminal completion.
type EventCommittingContext struct {
	ProcessingCommand ProcessingCommand
	AggregateRoot     AggregateRoot
	EventStream       DomainEventStream
}

func (c *EventCommittingContext) AggregateId() AggregateId {
	return c.EventStream.AggregateId
}
