// Package eventstore implements the durable EventStore collaborator
// (C7) over SQLite, grounded on the teacher's internal/storage/sqlite
// package: same WAL/busy_timeout pragma set and append-only triggers,
// generalized from the teacher's per-partition, per-day catalog/events
// database split down to one database enforcing this domain's two
// uniqueness invariants directly as SQL constraints.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eventcommit/core/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS event_streams (
	aggregate_id TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	version INTEGER NOT NULL,
	command_id TEXT NOT NULL,
	events_json TEXT NOT NULL,
	items_json TEXT NOT NULL,
	committed_at_utc_ns INTEGER NOT NULL,
	UNIQUE(aggregate_id, version),
	UNIQUE(aggregate_id, command_id)
);

CREATE INDEX IF NOT EXISTS idx_event_streams_aggregate_version ON event_streams(aggregate_id, version);

CREATE TRIGGER IF NOT EXISTS trg_event_streams_no_update
BEFORE UPDATE ON event_streams
BEGIN
	SELECT RAISE(ABORT, 'event_streams is append-only: UPDATE forbidden');
END;

CREATE TRIGGER IF NOT EXISTS trg_event_streams_no_delete
BEFORE DELETE ON event_streams
BEGIN
	SELECT RAISE(ABORT, 'event_streams is append-only: DELETE forbidden');
END;
`

// Store implements domain.EventStore over a single SQLite database
// file. One Store instance is shared by every commit lane; SQLite's
// own locking combined with the database/sql connection pool serializes
// the concurrent writes lanes for different aggregates may issue.
type Store struct {
	db     *sql.DB
	logger domain.Logger
}

// Open creates (if necessary) the database file at path and its
// schema, and returns a ready Store logging through logger.
func Open(path string, logger domain.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir event store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nowUTCNanos() int64 {
	return time.Now().UTC().UnixNano()
}

type storedEvent struct {
	EventType string `json:"event_type"`
	Payload   []byte `json:"payload"`
}

// Append implements domain.EventStore.Append. The unique constraints
// on (aggregate_id, version) and (aggregate_id, command_id) are the
// sole source of truth for the AppendOutcome classification: this
// avoids a check-then-insert race between two lanes that could, absent
// the lane serialization C2 already guarantees for a single aggregate,
// still race across a crash-recovery replay.
func (s *Store) Append(ctx context.Context, stream domain.DomainEventStream) (domain.AppendOutcome, error) {
	eventsJSON, err := marshalEvents(stream.Events)
	if err != nil {
		return 0, fmt.Errorf("marshal events: %w", err)
	}
	itemsJSON, err := json.Marshal(stream.Items)
	if err != nil {
		return 0, fmt.Errorf("marshal items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO event_streams(aggregate_id, aggregate_type, version, command_id, events_json, items_json, committed_at_utc_ns)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(stream.AggregateId), string(stream.AggregateType), int64(stream.Version), string(stream.CommandId), eventsJSON, string(itemsJSON), nowUTCNanos())
	if err == nil {
		return domain.AppendSuccess, nil
	}

	if !strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return 0, fmt.Errorf("insert event stream: %w", err)
	}

	// Disambiguate which unique constraint tripped: a duplicate
	// command_id for this aggregate, already durable under some
	// version, is DuplicateCommand; a duplicate (aggregate_id,
	// version) with a different command_id is a DuplicateEvent
	// concurrency conflict.
	existingByCommand, findErr := s.FindByCommandId(ctx, stream.AggregateId, stream.CommandId)
	if findErr != nil {
		return 0, fmt.Errorf("disambiguate constraint violation: %w", findErr)
	}
	if existingByCommand != nil {
		return domain.AppendDuplicateCommand, nil
	}

	// A genuine optimistic-concurrency conflict: some other command
	// already holds this (aggregate_id, version) slot. The classified
	// AppendOutcome returned below is what actually drives the state
	// machine; this error is built purely to give the conflict a
	// structured shape for logging, not as the function's return error:
	// a non-nil error here would make the retry executor treat a
	// permanent conflict as a transient I/O fault and burn its budget
	// retrying something retrying can never fix.
	current, verErr := s.currentVersion(ctx, stream.AggregateId)
	if verErr != nil {
		s.logger.Errorw("resolve current version for concurrency-conflict diagnostics", "aggregate_id", stream.AggregateId, "command_id", stream.CommandId, "error", verErr.Error())
		return domain.AppendDuplicateEvent, nil
	}
	conflict := domain.NewConcurrencyConflictError(stream.AggregateId, stream.Version, current)
	s.logger.Warnw("concurrency conflict on append", "aggregate_id", stream.AggregateId, "command_id", stream.CommandId, "error", conflict.Error())
	return domain.AppendDuplicateEvent, nil
}

// currentVersion returns the highest version durably committed for
// aggregateId, or 0 if none exists.
func (s *Store) currentVersion(ctx context.Context, aggregateId domain.AggregateId) (uint64, error) {
	var v sql.NullInt64
	row := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM event_streams WHERE aggregate_id = ?`, string(aggregateId))
	if err := row.Scan(&v); err != nil {
		return 0, fmt.Errorf("query current version: %w", err)
	}
	if !v.Valid {
		return 0, nil
	}
	return uint64(v.Int64), nil
}

func (s *Store) FindByCommandId(ctx context.Context, aggregateId domain.AggregateId, commandId domain.CommandId) (*domain.DomainEventStream, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT aggregate_id, aggregate_type, version, command_id, events_json, items_json
FROM event_streams
WHERE aggregate_id = ? AND command_id = ?`, string(aggregateId), string(commandId))
	return scanStream(row)
}

func (s *Store) FindByVersion(ctx context.Context, aggregateId domain.AggregateId, version uint64) (*domain.DomainEventStream, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT aggregate_id, aggregate_type, version, command_id, events_json, items_json
FROM event_streams
WHERE aggregate_id = ? AND version = ?`, string(aggregateId), int64(version))
	return scanStream(row)
}

func scanStream(row *sql.Row) (*domain.DomainEventStream, error) {
	var aggregateId, aggregateType, commandId, eventsJSON, itemsJSON string
	var version int64
	err := row.Scan(&aggregateId, &aggregateType, &version, &commandId, &eventsJSON, &itemsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan event stream: %w", err)
	}

	events, err := unmarshalEvents(eventsJSON)
	if err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	var items map[string]string
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}

	stream := &domain.DomainEventStream{
		CommandId:     domain.CommandId(commandId),
		AggregateId:   domain.AggregateId(aggregateId),
		AggregateType: domain.AggregateTypeName(aggregateType),
		Version:       uint64(version),
		Events:        events,
		Items:         items,
	}
	return stream, nil
}

func marshalEvents(events []domain.DomainEvent) (string, error) {
	stored := make([]storedEvent, len(events))
	for i, e := range events {
		stored[i] = storedEvent{EventType: e.EventType, Payload: e.Payload}
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalEvents(raw string) ([]domain.DomainEvent, error) {
	var stored []storedEvent
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}
	events := make([]domain.DomainEvent, len(stored))
	for i, s := range stored {
		events[i] = domain.DomainEvent{EventType: s.EventType, Payload: s.Payload}
	}
	return events, nil
}
