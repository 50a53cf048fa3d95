package workers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"referendum/contexts/governance/proposal-voting/ports"
)

const EventVotingClosed = "governance.voting_closed"

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func newGovernanceEnvelope(
	eventID string,
	eventType string,
	proposalID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
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
