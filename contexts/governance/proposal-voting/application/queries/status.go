package queries

import (
	"context"
	"strings"
	"time"

	"referendum/contexts/governance/proposal-voting/domain/entities"
	domainerrors "referendum/contexts/governance/proposal-voting/domain/errors"
	"referendum/contexts/governance/proposal-voting/ports"
)

// ProposalStatusView projects one proposal's configuration against the
// clock: whether the window is open right now, whether it has ended, and
// whether the ballot count reaches quorum.
type ProposalStatusView struct {
	Proposal    entities.Proposal
	BallotCount uint64
	NowTS       uint64
	Open        bool
	Ended       bool
	QuorumMet   bool
}

type StatusUseCase struct {
	Proposals ports.ProposalRepository
	Ballots   ports.BallotRepository
	Clock     ports.Clock
}

func (uc StatusUseCase) ProposalStatus(ctx context.Context, proposalID string) (ProposalStatusView, error) {
	proposalID = strings.TrimSpace(proposalID)
	if proposalID == "" {
		return ProposalStatusView{}, domainerrors.ErrInvalidProposalInput
	}
	proposal, err := uc.Proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return ProposalStatusView{}, err
	}
	count, err := uc.Ballots.CountBallots(ctx, proposalID)
	if err != nil {
		return ProposalStatusView{}, err
	}

	nowMS := uc.nowMS()
	ended, quorumMet := proposal.Status.Countable(count, nowMS)
	return ProposalStatusView{
		Proposal:    proposal,
		BallotCount: count,
		NowTS:       nowMS,
		Open:        proposal.Status.InVotingPeriod(nowMS),
		Ended:       ended,
		QuorumMet:   quorumMet,
	}, nil
}

func (uc StatusUseCase) GetProposal(ctx context.Context, proposalID string) (entities.Proposal, error) {
	return uc.Proposals.GetProposal(ctx, strings.TrimSpace(proposalID))
}

func (uc StatusUseCase) ListProposals(ctx context.Context) ([]entities.Proposal, error) {
	return uc.Proposals.ListProposals(ctx)
}

func (uc StatusUseCase) VoterBallot(ctx context.Context, proposalID string, address string) (entities.ParticipantRecord, error) {
	return uc.Ballots.GetBallot(ctx, strings.TrimSpace(proposalID), strings.TrimSpace(address))
}

func (uc StatusUseCase) HasVoted(ctx context.Context, proposalID string, address string) (bool, error) {
	return uc.Ballots.HasBallot(ctx, strings.TrimSpace(proposalID), strings.TrimSpace(address))
}

func (uc StatusUseCase) nowMS() uint64 {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return uint64(now.UnixMilli())
}
