package commands

import (
	"encoding/json"
	"time"

	"referendum/contexts/governance/proposal-voting/ports"
)

const (
	EventProposalCreated = "governance.proposal_created"
	EventVotingEnabled   = "governance.voting_enabled"
	EventVoteCast        = "governance.vote_cast"
	EventEvidenceIssued  = "governance.evidence_issued"
)

func newGovernanceEnvelope(
	eventID string,
	eventType string,
	proposalID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Command-side events are partitioned by proposal so per-proposal
	// consumers observe a stable ordering.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    occurredAt.UTC(),
		SourceService: "proposal-voting",
		TraceID:       eventID,
		SchemaVersion: 1,
		PartitionKey:  proposalID,
		Data:          payload,
	}, nil
}
