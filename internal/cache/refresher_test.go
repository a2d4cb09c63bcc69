package cache

import (
	"testing"

	"github.com/eventcommit/core/internal/domain"
)

type nullLogger struct{}

func (nullLogger) Debugw(string, ...interface{}) {}
func (nullLogger) Infow(string, ...interface{})  {}
func (nullLogger) Warnw(string, ...interface{})  {}
func (nullLogger) Errorw(string, ...interface{}) {}

func TestRefreshCacheAfterCommitAcceptsAndStores(t *testing.T) {
	c := New(&stubFactory{}, &stubStore{})
	r := NewRefresher(c, &stubFactory{}, nullLogger{})

	root := &stubRoot{id: "agg-1", typ: "widget"}
	stream := domain.DomainEventStream{AggregateId: "agg-1", AggregateType: "widget", Version: 5}

	r.RefreshCacheAfterCommit(root, stream)

	got, ok := c.Get("agg-1", "widget")
	if !ok {
		t.Fatalf("expected aggregate to be cached after commit")
	}
	if got.Version() != 5 {
		t.Fatalf("expected accepted version 5, got %d", got.Version())
	}
}

func TestRefreshCacheFromStreamSkipsWhenAlreadyCached(t *testing.T) {
	c := New(&stubFactory{}, &stubStore{})
	cached := &stubRoot{id: "agg-2", typ: "widget", version: 9}
	c.Set(cached)

	r := NewRefresher(c, &stubFactory{}, nullLogger{})
	r.RefreshCacheFromStream(domain.DomainEventStream{AggregateId: "agg-2", AggregateType: "widget", Version: 1})

	got, _ := c.Get("agg-2", "widget")
	if got.Version() != 9 {
		t.Fatalf("expected cached copy untouched, got version %d", got.Version())
	}
}

func TestRefreshCacheFromStreamBuildsFreshWhenUncached(t *testing.T) {
	c := New(&stubFactory{}, &stubStore{})
	r := NewRefresher(c, &stubFactory{}, nullLogger{})

	stream := domain.DomainEventStream{AggregateId: "agg-3", AggregateType: "widget", Version: 1}
	r.RefreshCacheFromStream(stream)

	got, ok := c.Get("agg-3", "widget")
	if !ok {
		t.Fatalf("expected a fresh aggregate to be cached")
	}
	if got.Version() != 1 {
		t.Fatalf("expected replayed version 1, got %d", got.Version())
	}
}
