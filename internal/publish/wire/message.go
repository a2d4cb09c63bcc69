// Package wire defines the outbound wire representation of a
// committed domain event stream, the message Publisher.PublishAsync
// hands to a transport. Shaped as a hand-rolled protobuf message the
// way the teacher's socket protocol encodes its request/response
// envelopes, so the same encode/decode path works across any
// transport (Kafka, RabbitMQ, or a future one) without re-deriving a
// wire format per adapter.
package wire

import (
	"fmt"

	"github.com/golang/protobuf/proto"
	"github.com/google/uuid"

	"github.com/eventcommit/core/internal/domain"
)

// EventStreamMessage is the wire form of a DomainEventStream.
// DeliveryId is a broker-level identifier distinct from CommandId: it
// is minted fresh on every Marshal call, so a republish of the same
// committed stream (spec.md §4.6's recovery sweep, or a publisher
// retry that lands after all) produces a new DeliveryId while
// CommandId/AggregateId/Version stay stable, giving a downstream
// consumer a value it can use for broker-level dedup without
// conflating "same delivery" with "same domain command".
type EventStreamMessage struct {
	DeliveryId    string         `protobuf:"bytes,7,opt,name=delivery_id,json=deliveryId,proto3"`
	CommandId     string         `protobuf:"bytes,1,opt,name=command_id,json=commandId,proto3"`
	AggregateId   string         `protobuf:"bytes,2,opt,name=aggregate_id,json=aggregateId,proto3"`
	AggregateType string         `protobuf:"bytes,3,opt,name=aggregate_type,json=aggregateType,proto3"`
	Version       uint64         `protobuf:"varint,4,opt,name=version,proto3"`
	Events        []*DomainEvent `protobuf:"bytes,5,rep,name=events,proto3"`
	Items         []*ItemEntry   `protobuf:"bytes,6,rep,name=items,proto3"`
}

func (*EventStreamMessage) Reset()         {}
func (*EventStreamMessage) String() string { return "EventStreamMessage" }
func (*EventStreamMessage) ProtoMessage()  {}

// DomainEvent is the wire form of one event inside a stream.
type DomainEvent struct {
	EventType string `protobuf:"bytes,1,opt,name=event_type,json=eventType,proto3"`
	Payload   []byte `protobuf:"bytes,2,opt,name=payload,proto3"`
}

func (*DomainEvent) Reset()         {}
func (*DomainEvent) String() string { return "DomainEvent" }
func (*DomainEvent) ProtoMessage()  {}

// ItemEntry is one key/value pair of a stream's Items, carried as a
// repeated message rather than a protobuf map: the legacy reflection
// marshaler this package relies on (the same one the teacher's socket
// protocol uses) only needs to know how to encode a message type, not
// a map's key/value wire kinds.
type ItemEntry struct {
	Key   string `protobuf:"bytes,1,opt,name=key,proto3"`
	Value string `protobuf:"bytes,2,opt,name=value,proto3"`
}

func (*ItemEntry) Reset()         {}
func (*ItemEntry) String() string { return "ItemEntry" }
func (*ItemEntry) ProtoMessage()  {}

// FromStream converts a domain.DomainEventStream into its wire form.
func FromStream(stream domain.DomainEventStream) *EventStreamMessage {
	events := make([]*DomainEvent, 0, len(stream.Events))
	for _, e := range stream.Events {
		events = append(events, &DomainEvent{EventType: e.EventType, Payload: e.Payload})
	}
	items := make([]*ItemEntry, 0, len(stream.Items))
	for k, v := range stream.Items {
		items = append(items, &ItemEntry{Key: k, Value: v})
	}
	return &EventStreamMessage{
		DeliveryId:    uuid.NewString(),
		CommandId:     string(stream.CommandId),
		AggregateId:   string(stream.AggregateId),
		AggregateType: string(stream.AggregateType),
		Version:       stream.Version,
		Events:        events,
		Items:         items,
	}
}

// ItemsMap reassembles Items back into a map for callers that want
// the domain.DomainEventStream shape.
func (m *EventStreamMessage) ItemsMap() map[string]string {
	if len(m.Items) == 0 {
		return nil
	}
	out := make(map[string]string, len(m.Items))
	for _, it := range m.Items {
		out[it.Key] = it.Value
	}
	return out
}

// Marshal encodes the stream to bytes suitable for a transport body.
func Marshal(stream domain.DomainEventStream) ([]byte, error) {
	msg := FromStream(stream)
	b, err := proto.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal event stream message: %w", err)
	}
	return b, nil
}

// Unmarshal decodes bytes produced by Marshal.
func Unmarshal(b []byte) (*EventStreamMessage, error) {
	msg := &EventStreamMessage{}
	if err := proto.Unmarshal(b, msg); err != nil {
		return nil, fmt.Errorf("unmarshal event stream message: %w", err)
	}
	return msg, nil
}
