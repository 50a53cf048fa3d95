package ports

import (
	"context"
	"time"

	"referendum/contexts/governance/proposal-voting/domain/entities"
	contractsv1 "referendum/contracts/gen/events/v1"
)

// ProposalRepository owns proposal persistence, including the embedded
// voting configuration.
type ProposalRepository interface {
	InsertProposal(ctx context.Context, proposal entities.Proposal) error
	GetProposal(ctx context.Context, proposalID string) (entities.Proposal, error)
	// UpdateVoteStatus overwrites the stored configuration wholesale.
	UpdateVoteStatus(ctx context.Context, proposalID string, status entities.VoteStatus, updatedTS uint64) error
	ListProposals(ctx context.Context) ([]entities.Proposal, error)
}

// BallotRepository persists the append-only ballot set per proposal.
type BallotRepository interface {
	// InsertBallot is insert-if-absent on (proposal, address). A losing
	// concurrent insert fails with ErrDuplicateVote and changes nothing.
	InsertBallot(ctx context.Context, proposalID string, record entities.ParticipantRecord) error
	GetBallot(ctx context.Context, proposalID string, address string) (entities.ParticipantRecord, error)
	HasBallot(ctx context.Context, proposalID string, address string) (bool, error)
	CountBallots(ctx context.Context, proposalID string) (uint64, error)
	ListBallots(ctx context.Context, proposalID string) ([]entities.ParticipantRecord, error)
}

// EvidenceRepository persists minted participation tokens.
type EvidenceRepository interface {
	InsertEvidence(ctx context.Context, token entities.EvidenceToken) error
	GetEvidence(ctx context.Context, evidenceID string) (entities.EvidenceToken, error)
	ListEvidenceByOwner(ctx context.Context, ownerAddress string) ([]entities.EvidenceToken, error)
}

// Clock injects the host wall clock for window checks and timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts proposal/evidence/event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// OutboxWriter appends an event for later relay in the writer's transaction scope.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventDedupStore provides exactly-once guarantees for derived events.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
