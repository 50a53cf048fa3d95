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

// CreateProposalCommand is the write-model input for proposal registration.
type CreateProposalCommand struct {
	Title       string
	Description string
	CreatorID   string
}

// EnableVotingCommand replaces a proposal's voting configuration wholesale.
// Window and threshold values are stored exactly as supplied.
type EnableVotingCommand struct {
	ProposalID          string
	Enabled             bool
	StartTS             uint64
	EndTS               uint64
	MinVotingCount      uint64
	PassingThresholdPct uint64
}

// ProposalUseCase orchestrates proposal lifecycle commands and emits the
// corresponding outbox events.
type ProposalUseCase struct {
	Proposals ports.ProposalRepository
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// CreateProposal registers a proposal with voting disabled. Voting opens
// only after a later EnableVoting call.
func (uc ProposalUseCase) CreateProposal(ctx context.Context, cmd CreateProposalCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		logger.Warn("proposal create validation failed",
			"event", "governance_proposal_create_validation_failed",
			"module", "governance/proposal-voting",
			"layer", "application",
			"creator_id", strings.TrimSpace(cmd.CreatorID),
		)
		return entities.Proposal{}, domainerrors.ErrInvalidProposalInput
	}

	now := uc.now()
	nowMS := unixMS(now)
	proposalID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Proposal{}, err
	}

	proposal := entities.Proposal{
		ProposalID:  proposalID,
		Title:       title,
		Description: strings.TrimSpace(cmd.Description),
		CreatorID:   strings.TrimSpace(cmd.CreatorID),
		Status:      entities.EmptyVoteStatus(),
		CreatedTS:   nowMS,
		UpdatedTS:   nowMS,
	}
	if err := uc.Proposals.InsertProposal(ctx, proposal); err != nil {
		return entities.Proposal{}, err
	}
	if err := uc.appendProposalEvent(ctx, EventProposalCreated, proposal, now, map[string]any{
		"title":      proposal.Title,
		"creator_id": proposal.CreatorID,
	}); err != nil {
		return entities.Proposal{}, err
	}

	logger.Info("proposal created",
		"event", "governance_proposal_created",
		"module", "governance/proposal-voting",
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"creator_id", proposal.CreatorID,
	)
	return proposal, nil
}

// EnableVoting overwrites the proposal's voting configuration. The window
// and threshold are accepted without validation; an inverted window simply
// rejects every vote through the period check.
func (uc ProposalUseCase) EnableVoting(ctx context.Context, cmd EnableVotingCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	proposalID := strings.TrimSpace(cmd.ProposalID)
	if proposalID == "" {
		return entities.Proposal{}, domainerrors.ErrInvalidProposalInput
	}

	proposal, err := uc.Proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return entities.Proposal{}, err
	}

	now := uc.now()
	nowMS := unixMS(now)
	proposal.Status.Enable(cmd.Enabled, cmd.StartTS, cmd.EndTS, cmd.MinVotingCount, cmd.PassingThresholdPct)
	proposal.UpdatedTS = nowMS
	if err := uc.Proposals.UpdateVoteStatus(ctx, proposal.ProposalID, proposal.Status, nowMS); err != nil {
		return entities.Proposal{}, err
	}

	if cmd.StartTS > cmd.EndTS || cmd.PassingThresholdPct > 100 {
		logger.Warn("voting configuration stored with unusual bounds",
			"event", "governance_voting_enabled_unusual_bounds",
			"module", "governance/proposal-voting",
			"layer", "application",
			"proposal_id", proposal.ProposalID,
			"start_ts", cmd.StartTS,
			"end_ts", cmd.EndTS,
			"passing_threshold_pct", cmd.PassingThresholdPct,
		)
	}

	if err := uc.appendProposalEvent(ctx, EventVotingEnabled, proposal, now, map[string]any{
		"enabled":               proposal.Status.Enabled,
		"start_ts":              proposal.Status.StartTS,
		"end_ts":                proposal.Status.EndTS,
		"min_voting_count":      proposal.Status.MinVotingCount,
		"passing_threshold_pct": proposal.Status.PassingThresholdPct,
	}); err != nil {
		return entities.Proposal{}, err
	}

	logger.Info("voting configuration replaced",
		"event", "governance_voting_enabled",
		"module", "governance/proposal-voting",
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"enabled", proposal.Status.Enabled,
		"start_ts", proposal.Status.StartTS,
		"end_ts", proposal.Status.EndTS,
	)
	return proposal, nil
}

func (uc ProposalUseCase) appendProposalEvent(
	ctx context.Context,
	eventType string,
	proposal entities.Proposal,
	occurredAt time.Time,
	metadata map[string]any,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"proposal_id": proposal.ProposalID,
		"occurred_at": occurredAt.Format(time.RFC3339),
	}
	for key, value := range metadata {
		data[key] = value
	}
	envelope, err := newGovernanceEnvelope(eventID, eventType, proposal.ProposalID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc ProposalUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func unixMS(t time.Time) uint64 {
	return uint64(t.UnixMilli())
}
