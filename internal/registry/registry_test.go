package registry

import (
	"testing"

	"github.com/eventcommit/core/internal/domain"
)

type stubRoot struct {
	typ domain.AggregateTypeName
}

func (r *stubRoot) UniqueId() domain.AggregateId      { return "stub" }
func (r *stubRoot) Version() uint64                   { return 0 }
func (r *stubRoot) GetType() domain.AggregateTypeName { return r.typ }
func (r *stubRoot) AcceptChanges(uint64)              {}
func (r *stubRoot) ReplayEvents([]domain.DomainEventStream) {}

func TestRegisterAndCreate(t *testing.T) {
	reg := New()
	reg.Register("widget", func() domain.AggregateRoot { return &stubRoot{typ: "widget"} })

	root, err := reg.Create("widget")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if root.GetType() != "widget" {
		t.Fatalf("unexpected type: %q", root.GetType())
	}
}

func TestCreateUnknownTypeErrors(t *testing.T) {
	reg := New()
	if _, err := reg.Create("missing"); err == nil {
		t.Fatalf("expected an error for an unregistered type")
	}
}

func TestGetType(t *testing.T) {
	reg := New()
	reg.Register("widget", func() domain.AggregateRoot { return &stubRoot{typ: "widget"} })

	if _, ok := reg.GetType("missing"); ok {
		t.Fatalf("expected unknown type to report not found")
	}
	got, ok := reg.GetType("widget")
	if !ok || got != "widget" {
		t.Fatalf("expected known type to resolve, got %q ok=%v", got, ok)
	}
}
