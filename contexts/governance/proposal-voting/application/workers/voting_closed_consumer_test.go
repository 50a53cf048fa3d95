package workers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"referendum/contexts/governance/proposal-voting/adapters/memory"
	"referendum/contexts/governance/proposal-voting/domain/entities"
	"referendum/contexts/governance/proposal-voting/ports"
)

type capturingSubscriber struct {
	topic   string
	group   string
	handler func(context.Context, ports.EventEnvelope) error
}

func (s *capturingSubscriber) Subscribe(
	_ context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	s.topic = topic
	s.group = consumerGroup
	s.handler = handler
	return nil
}

func seedClosedProposal(store *memory.Store, minVotingCount uint64) {
	proposal := entities.Proposal{
		ProposalID: "prop-1",
		Title:      "Adopt treasury budget",
		CreatedTS:  500,
	}
	proposal.Status.Enable(true, 1000, 2000, minVotingCount, 50)
	store.SetProposal(proposal)
	store.SetNow(time.UnixMilli(2500))
}

func closureEnvelope(t *testing.T, eventID string, data map[string]any) ports.EventEnvelope {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return ports.EventEnvelope{
		EventID:       eventID,
		EventType:     EventVotingClosed,
		OccurredAt:    time.UnixMilli(2000).UTC(),
		SourceService: "proposal-voting",
		TraceID:       eventID,
		SchemaVersion: 1,
		PartitionKey:  "prop-1",
		Data:          payload,
	}
}

func newClosedConsumer(store *memory.Store) VotingClosedConsumer {
	return VotingClosedConsumer{
		Proposals: store,
		Ballots:   store,
		Dedup:     store,
		Clock:     store,
	}
}

func TestVotingClosedConsumerRecordsOutcome(t *testing.T) {
	store := memory.NewStore(nil)
	seedClosedProposal(store, 2)
	ctx := context.Background()

	if err := store.InsertBallot(ctx, "prop-1", entities.ParticipantRecord{Address: "voter-1", TS: 1500, IsAgree: true}); err != nil {
		t.Fatalf("seed ballot failed: %v", err)
	}
	if err := store.InsertBallot(ctx, "prop-1", entities.ParticipantRecord{Address: "voter-2", TS: 1600, IsAgree: false}); err != nil {
		t.Fatalf("seed ballot failed: %v", err)
	}

	consumer := newClosedConsumer(store)
	event := closureEnvelope(t, "governance.voting_closed:prop-1", map[string]any{
		"proposal_id": "prop-1",
		"quorum_met":  true,
	})
	if err := consumer.handleVotingClosed(ctx, event); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	// The handler reserves a group-scoped dedup key before counting.
	already, err := store.ReserveEvent(ctx,
		"governance-voting-closed-cg:"+event.EventID,
		hashPayload(event.Data),
		time.UnixMilli(2500).Add(time.Hour),
	)
	if err != nil {
		t.Fatalf("reserve check failed: %v", err)
	}
	if !already {
		t.Fatalf("expected handler to have reserved its dedup key")
	}
}

func TestVotingClosedConsumerReplayIsNoop(t *testing.T) {
	store := memory.NewStore(nil)
	seedClosedProposal(store, 1)
	ctx := context.Background()

	if err := store.InsertBallot(ctx, "prop-1", entities.ParticipantRecord{Address: "voter-1", TS: 1500, IsAgree: true}); err != nil {
		t.Fatalf("seed ballot failed: %v", err)
	}

	consumer := newClosedConsumer(store)
	event := closureEnvelope(t, "governance.voting_closed:prop-1", map[string]any{
		"proposal_id": "prop-1",
		"quorum_met":  true,
	})
	if err := consumer.handleVotingClosed(ctx, event); err != nil {
		t.Fatalf("first handle failed: %v", err)
	}
	if err := consumer.handleVotingClosed(ctx, event); err != nil {
		t.Fatalf("replayed handle failed: %v", err)
	}
}

func TestVotingClosedConsumerBelowQuorumIsTerminal(t *testing.T) {
	store := memory.NewStore(nil)
	seedClosedProposal(store, 5)
	ctx := context.Background()

	if err := store.InsertBallot(ctx, "prop-1", entities.ParticipantRecord{Address: "voter-1", TS: 1500, IsAgree: true}); err != nil {
		t.Fatalf("seed ballot failed: %v", err)
	}

	consumer := newClosedConsumer(store)
	event := closureEnvelope(t, "governance.voting_closed:prop-1", map[string]any{
		"proposal_id": "prop-1",
		"quorum_met":  false,
	})
	if err := consumer.handleVotingClosed(ctx, event); err != nil {
		t.Fatalf("below-quorum closure must not error, got %v", err)
	}
}

func TestVotingClosedConsumerRejectsMissingProposalID(t *testing.T) {
	store := memory.NewStore(nil)
	store.SetNow(time.UnixMilli(2500))

	consumer := newClosedConsumer(store)
	event := closureEnvelope(t, "governance.voting_closed:broken", map[string]any{
		"quorum_met": true,
	})
	if err := consumer.handleVotingClosed(context.Background(), event); err == nil {
		t.Fatalf("expected missing proposal_id to surface")
	}
}

func TestVotingClosedConsumerStartSubscribes(t *testing.T) {
	store := memory.NewStore(nil)
	seedClosedProposal(store, 1)
	ctx := context.Background()

	if err := store.InsertBallot(ctx, "prop-1", entities.ParticipantRecord{Address: "voter-1", TS: 1500, IsAgree: true}); err != nil {
		t.Fatalf("seed ballot failed: %v", err)
	}

	subscriber := &capturingSubscriber{}
	consumer := newClosedConsumer(store)
	consumer.Subscriber = subscriber
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if subscriber.topic != EventVotingClosed {
		t.Fatalf("expected subscription on %q, got %q", EventVotingClosed, subscriber.topic)
	}
	if subscriber.group != "governance-voting-closed-cg" {
		t.Fatalf("unexpected consumer group %q", subscriber.group)
	}
	if subscriber.handler == nil {
		t.Fatalf("expected a registered handler")
	}

	event := closureEnvelope(t, "governance.voting_closed:prop-1", map[string]any{
		"proposal_id": "prop-1",
		"quorum_met":  true,
	})
	if err := subscriber.handler(ctx, event); err != nil {
		t.Fatalf("registered handler failed: %v", err)
	}
}
