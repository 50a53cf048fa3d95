package workers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"referendum/contexts/governance/proposal-voting/adapters/memory"
	"referendum/contexts/governance/proposal-voting/ports"
)

type publishedEvent struct {
	topic    string
	envelope ports.EventEnvelope
}

type capturingPublisher struct {
	events []publishedEvent
	fail   bool
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.fail {
		return context.DeadlineExceeded
	}
	p.events = append(p.events, publishedEvent{topic: topic, envelope: event})
	return nil
}

func appendEnvelope(t *testing.T, store *memory.Store, eventID string, eventType string, occurredAtMS int64) {
	t.Helper()
	envelope := ports.EventEnvelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    time.UnixMilli(occurredAtMS).UTC(),
		SourceService: "proposal-voting",
		TraceID:       eventID,
		SchemaVersion: 1,
		PartitionKey:  "prop-1",
		Data:          json.RawMessage(`{"proposal_id":"prop-1"}`),
	}
	if err := store.AppendOutbox(context.Background(), envelope); err != nil {
		t.Fatalf("append envelope failed: %v", err)
	}
}

func TestOutboxRelayPublishesAndMarksPending(t *testing.T) {
	store := memory.NewStore(nil)
	store.SetNow(time.UnixMilli(5000))
	appendEnvelope(t, store, "evt-1", "governance.vote_cast", 1000)
	appendEnvelope(t, store, "evt-2", "governance.voting_enabled", 2000)

	publisher := &capturingPublisher{}
	relay := OutboxRelay{
		Outbox:    store,
		Publisher: publisher,
		Clock:     store,
	}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(publisher.events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.events))
	}
	if publisher.events[0].envelope.EventID != "evt-1" || publisher.events[1].envelope.EventID != "evt-2" {
		t.Fatalf("expected oldest-first publish order, got %+v", publisher.events)
	}
	if publisher.events[0].topic != "governance.vote_cast" {
		t.Fatalf("topic must follow the envelope event type, got %s", publisher.events[0].topic)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("published rows must leave the pending set, got %d", len(pending))
	}
}

func TestOutboxRelaySecondRunIsNoop(t *testing.T) {
	store := memory.NewStore(nil)
	store.SetNow(time.UnixMilli(5000))
	appendEnvelope(t, store, "evt-1", "governance.vote_cast", 1000)

	publisher := &capturingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected exactly one publish across runs, got %d", len(publisher.events))
	}
}

func TestOutboxRelayStopsOnPublishFailure(t *testing.T) {
	store := memory.NewStore(nil)
	store.SetNow(time.UnixMilli(5000))
	appendEnvelope(t, store, "evt-1", "governance.vote_cast", 1000)

	publisher := &capturingPublisher{fail: true}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure to surface")
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("failed publish must keep the row pending, got %d rows", len(pending))
	}
}

func TestOutboxRelayDisabledDoesNothing(t *testing.T) {
	store := memory.NewStore(nil)
	appendEnvelope(t, store, "evt-1", "governance.vote_cast", 1000)

	publisher := &capturingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store, Disabled: true}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("disabled run failed: %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("disabled relay must not publish, got %d events", len(publisher.events))
	}
}
