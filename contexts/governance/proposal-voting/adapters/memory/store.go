package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"referendum/contexts/governance/proposal-voting/domain/entities"
	domainerrors "referendum/contexts/governance/proposal-voting/domain/errors"
	"referendum/contexts/governance/proposal-voting/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store keeps every governance port in process memory. The single lock
// serializes writes, which makes InsertBallot an atomic insert-if-absent
// exactly like the durable adapter.
type Store struct {
	mu sync.RWMutex

	proposals  map[string]entities.Proposal
	ballots    map[string]*entities.ParticipantRegistry
	evidence   map[string]entities.EvidenceToken
	outbox     map[string]outboxRecord
	eventDedup map[string]dedupRecord

	now time.Time
}

func NewStore(seed []entities.Proposal) *Store {
	proposals := make(map[string]entities.Proposal, len(seed))
	for _, proposal := range seed {
		proposals[proposal.ProposalID] = proposal
	}
	return &Store{
		proposals:  proposals,
		ballots:    make(map[string]*entities.ParticipantRegistry),
		evidence:   make(map[string]entities.EvidenceToken),
		outbox:     make(map[string]outboxRecord),
		eventDedup: make(map[string]dedupRecord),
	}
}

// SetNow pins the store clock. Window checks become deterministic in tests;
// the zero value falls back to wall time.
func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now.UTC()
}

func (s *Store) SetProposal(proposal entities.Proposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[strings.TrimSpace(proposal.ProposalID)] = proposal
}

func (s *Store) InsertProposal(_ context.Context, proposal entities.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposalID := strings.TrimSpace(proposal.ProposalID)
	if _, ok := s.proposals[proposalID]; ok {
		return domainerrors.ErrProposalExists
	}
	s.proposals[proposalID] = proposal
	return nil
}

func (s *Store) GetProposal(_ context.Context, proposalID string) (entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposal, ok := s.proposals[strings.TrimSpace(proposalID)]
	if !ok {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	return proposal, nil
}

func (s *Store) UpdateVoteStatus(
	_ context.Context,
	proposalID string,
	status entities.VoteStatus,
	updatedTS uint64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(proposalID)
	proposal, ok := s.proposals[key]
	if !ok {
		return domainerrors.ErrProposalNotFound
	}
	proposal.Status = status
	proposal.UpdatedTS = updatedTS
	s.proposals[key] = proposal
	return nil
}

func (s *Store) ListProposals(_ context.Context) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Proposal, 0, len(s.proposals))
	for _, proposal := range s.proposals {
		items = append(items, proposal)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedTS == items[j].CreatedTS {
			return items[i].ProposalID < items[j].ProposalID
		}
		return items[i].CreatedTS < items[j].CreatedTS
	})
	return items, nil
}

func (s *Store) InsertBallot(_ context.Context, proposalID string, record entities.ParticipantRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(proposalID)
	registry, ok := s.ballots[key]
	if !ok {
		registry = entities.NewParticipantRegistry()
		s.ballots[key] = registry
	}
	return registry.RecordVote(strings.TrimSpace(record.Address), record.TS, record.IsAgree)
}

func (s *Store) GetBallot(_ context.Context, proposalID string, address string) (entities.ParticipantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	registry, ok := s.ballots[strings.TrimSpace(proposalID)]
	if !ok {
		return entities.ParticipantRecord{}, domainerrors.ErrBallotNotFound
	}
	record, ok := registry.Record(strings.TrimSpace(address))
	if !ok {
		return entities.ParticipantRecord{}, domainerrors.ErrBallotNotFound
	}
	return record, nil
}

func (s *Store) HasBallot(_ context.Context, proposalID string, address string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	registry, ok := s.ballots[strings.TrimSpace(proposalID)]
	if !ok {
		return false, nil
	}
	return registry.Contains(strings.TrimSpace(address)), nil
}

func (s *Store) CountBallots(_ context.Context, proposalID string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	registry, ok := s.ballots[strings.TrimSpace(proposalID)]
	if !ok {
		return 0, nil
	}
	return registry.Size(), nil
}

func (s *Store) ListBallots(_ context.Context, proposalID string) ([]entities.ParticipantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	registry, ok := s.ballots[strings.TrimSpace(proposalID)]
	if !ok {
		return nil, nil
	}
	return registry.Records(), nil
}

func (s *Store) InsertEvidence(_ context.Context, token entities.EvidenceToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(token.EvidenceID)
	if _, ok := s.evidence[key]; ok {
		return domainerrors.ErrConflict
	}
	s.evidence[key] = token
	return nil
}

func (s *Store) GetEvidence(_ context.Context, evidenceID string) (entities.EvidenceToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.evidence[strings.TrimSpace(evidenceID)]
	if !ok {
		return entities.EvidenceToken{}, domainerrors.ErrEvidenceNotFound
	}
	return token, nil
}

func (s *Store) ListEvidenceByOwner(_ context.Context, ownerAddress string) ([]entities.EvidenceToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.EvidenceToken, 0)
	for _, token := range s.evidence {
		if token.OwnerAddress == strings.TrimSpace(ownerAddress) {
			items = append(items, token)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].IssuedTS == items[j].IssuedTS {
			return items[i].EvidenceID < items[j].EvidenceID
		}
		return items[i].IssuedTS < items[j].IssuedTS
	})
	return items, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = s.nowLocked()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].OutboxID < items[j].OutboxID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	existing, ok := s.eventDedup[key]
	if ok {
		if !existing.expiresAt.IsZero() && s.nowLocked().After(existing.expiresAt.UTC()) {
			delete(s.eventDedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}

	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowLocked()
}

func (s *Store) nowLocked() time.Time {
	if s.now.IsZero() {
		return time.Now().UTC()
	}
	return s.now
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.ProposalRepository = (*Store)(nil)
var _ ports.BallotRepository = (*Store)(nil)
var _ ports.EvidenceRepository = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.EventDedupStore = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
