package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "referendum/contexts/governance/proposal-voting/application"
	"referendum/contexts/governance/proposal-voting/domain/entities"
	domainerrors "referendum/contexts/governance/proposal-voting/domain/errors"
	"referendum/contexts/governance/proposal-voting/ports"
)

// CastVoteCommand is the write-model input for ballot casting.
type CastVoteCommand struct {
	ProposalID   string
	VoterAddress string
	IsAgree      bool
}

// CastVoteResult returns the stored ballot and the evidence token minted
// alongside it.
type CastVoteResult struct {
	Ballot   entities.ParticipantRecord
	Evidence entities.EvidenceToken
}

// VoteUseCase orchestrates ballot casting: voting must be enabled, the
// clock must fall inside the window, and the address must not have voted.
// The ballot insert is the authoritative one-vote-per-address gate; when
// two requests for the same address race, exactly one insert wins and the
// other surfaces ErrDuplicateVote without retry.
type VoteUseCase struct {
	Proposals ports.ProposalRepository
	Ballots   ports.BallotRepository
	Issuer    EvidenceUseCase
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// CastVote appends a ballot and mints the paired evidence token.
func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	proposalID := strings.TrimSpace(cmd.ProposalID)
	voterAddress := strings.TrimSpace(cmd.VoterAddress)
	logger.Info("vote cast processing started",
		"event", "governance_vote_cast_started",
		"module", "governance/proposal-voting",
		"layer", "application",
		"proposal_id", proposalID,
		"voter_address", voterAddress,
	)
	if proposalID == "" || voterAddress == "" {
		logger.Warn("vote cast validation failed",
			"event", "governance_vote_cast_validation_failed",
			"module", "governance/proposal-voting",
			"layer", "application",
			"proposal_id", proposalID,
			"voter_address", voterAddress,
		)
		return CastVoteResult{}, domainerrors.ErrInvalidVoteInput
	}

	proposal, err := uc.Proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return CastVoteResult{}, err
	}
	if !proposal.Status.IsEnabled() {
		logger.Warn("vote rejected while voting disabled",
			"event", "governance_vote_cast_not_enabled",
			"module", "governance/proposal-voting",
			"layer", "application",
			"proposal_id", proposalID,
			"voter_address", voterAddress,
		)
		return CastVoteResult{}, domainerrors.ErrVotingNotEnabled
	}

	now := uc.now()
	nowMS := unixMS(now)
	if !proposal.Status.InVotingPeriod(nowMS) {
		logger.Warn("vote rejected outside voting period",
			"event", "governance_vote_cast_outside_period",
			"module", "governance/proposal-voting",
			"layer", "application",
			"proposal_id", proposalID,
			"voter_address", voterAddress,
			"now_ts", nowMS,
			"start_ts", proposal.Status.StartTS,
			"end_ts", proposal.Status.EndTS,
		)
		return CastVoteResult{}, domainerrors.ErrOutsideVotingPeriod
	}

	ballot := entities.ParticipantRecord{
		Address: voterAddress,
		TS:      nowMS,
		IsAgree: cmd.IsAgree,
	}
	if err := uc.Ballots.InsertBallot(ctx, proposalID, ballot); err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateVote) {
			logger.Warn("vote rejected as duplicate",
				"event", "governance_vote_cast_duplicate",
				"module", "governance/proposal-voting",
				"layer", "application",
				"proposal_id", proposalID,
				"voter_address", voterAddress,
			)
		}
		return CastVoteResult{}, err
	}

	token, err := uc.Issuer.IssueEvidence(ctx, IssueEvidenceCommand{
		ProposalID:   proposalID,
		OwnerAddress: voterAddress,
		IsAgree:      cmd.IsAgree,
	})
	if err != nil {
		return CastVoteResult{}, err
	}

	if err := uc.appendVoteEvent(ctx, proposalID, ballot, token.EvidenceID, now); err != nil {
		return CastVoteResult{}, err
	}

	logger.Info("vote cast",
		"event", "governance_vote_cast",
		"module", "governance/proposal-voting",
		"layer", "application",
		"proposal_id", proposalID,
		"voter_address", voterAddress,
		"is_agree", ballot.IsAgree,
		"evidence_id", token.EvidenceID,
	)
	return CastVoteResult{Ballot: ballot, Evidence: token}, nil
}

func (uc VoteUseCase) appendVoteEvent(
	ctx context.Context,
	proposalID string,
	ballot entities.ParticipantRecord,
	evidenceID string,
	occurredAt time.Time,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newGovernanceEnvelope(eventID, EventVoteCast, proposalID, occurredAt, map[string]any{
		"proposal_id":   proposalID,
		"voter_address": ballot.Address,
		"is_agree":      ballot.IsAgree,
		"ts":            ballot.TS,
		"evidence_id":   evidenceID,
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc VoteUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
