package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "referendum/contexts/governance/proposal-voting/application"
	"referendum/contexts/governance/proposal-voting/domain/entities"
	domainerrors "referendum/contexts/governance/proposal-voting/domain/errors"
	"referendum/contexts/governance/proposal-voting/ports"
)

// IssueEvidenceCommand mints a participation token for an address.
type IssueEvidenceCommand struct {
	ProposalID   string
	OwnerAddress string
	IsAgree      bool
}

// EvidenceUseCase mints and persists participation tokens. Issuance never
// consults the ballot set: the token is proof of a vote only because the
// vote orchestration calls it right after the ballot insert.
type EvidenceUseCase struct {
	Evidence ports.EvidenceRepository
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// IssueEvidence mints one token with a fresh identifier and the fixed
// metadata set, stores it, and emits governance.evidence_issued.
func (uc EvidenceUseCase) IssueEvidence(ctx context.Context, cmd IssueEvidenceCommand) (entities.EvidenceToken, error) {
	logger := application.ResolveLogger(uc.Logger)
	proposalID := strings.TrimSpace(cmd.ProposalID)
	ownerAddress := strings.TrimSpace(cmd.OwnerAddress)
	if proposalID == "" || ownerAddress == "" {
		logger.Warn("evidence issue validation failed",
			"event", "governance_evidence_issue_validation_failed",
			"module", "governance/proposal-voting",
			"layer", "application",
			"proposal_id", proposalID,
			"owner_address", ownerAddress,
		)
		return entities.EvidenceToken{}, domainerrors.ErrInvalidVoteInput
	}

	now := uc.now()
	evidenceID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.EvidenceToken{}, err
	}

	token := entities.MintEvidence(evidenceID, proposalID, ownerAddress, cmd.IsAgree, unixMS(now))
	if err := uc.Evidence.InsertEvidence(ctx, token); err != nil {
		return entities.EvidenceToken{}, err
	}
	if err := uc.appendEvidenceEvent(ctx, token, now); err != nil {
		return entities.EvidenceToken{}, err
	}

	logger.Info("evidence token issued",
		"event", "governance_evidence_issued",
		"module", "governance/proposal-voting",
		"layer", "application",
		"evidence_id", token.EvidenceID,
		"proposal_id", token.ProposalID,
		"owner_address", token.OwnerAddress,
		"is_agree", token.IsAgree,
	)
	return token, nil
}

func (uc EvidenceUseCase) appendEvidenceEvent(ctx context.Context, token entities.EvidenceToken, occurredAt time.Time) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newGovernanceEnvelope(eventID, EventEvidenceIssued, token.ProposalID, occurredAt, map[string]any{
		"evidence_id":   token.EvidenceID,
		"proposal_id":   token.ProposalID,
		"owner_address": token.OwnerAddress,
		"is_agree":      token.IsAgree,
		"issued_ts":     token.IssuedTS,
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc EvidenceUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
