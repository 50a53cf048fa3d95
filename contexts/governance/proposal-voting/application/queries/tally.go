package queries

import (
	"context"
	"strings"
	"time"

	"referendum/contexts/governance/proposal-voting/domain/entities"
	domainerrors "referendum/contexts/governance/proposal-voting/domain/errors"
	"referendum/contexts/governance/proposal-voting/ports"
)

// TallyUseCase counts a proposal's ballots once the window allows it.
type TallyUseCase struct {
	Proposals ports.ProposalRepository
	Ballots   ports.BallotRepository
	Clock     ports.Clock
}

// CountVotes gates on Countable before tallying: a still-running window
// fails with ErrVotingStillOpen and a closed window below MinVotingCount
// fails with ErrQuorumNotMet. Counting is read-only, so repeated calls on
// a closed proposal return the same result.
func (uc TallyUseCase) CountVotes(ctx context.Context, proposalID string) (entities.TallyResult, error) {
	proposalID = strings.TrimSpace(proposalID)
	if proposalID == "" {
		return entities.TallyResult{}, domainerrors.ErrInvalidProposalInput
	}
	proposal, err := uc.Proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return entities.TallyResult{}, err
	}
	records, err := uc.Ballots.ListBallots(ctx, proposalID)
	if err != nil {
		return entities.TallyResult{}, err
	}
	registry := entities.NewParticipantRegistryFromRecords(records)

	ended, quorumMet := proposal.Status.Countable(registry.Size(), uc.nowMS())
	if !ended {
		return entities.TallyResult{}, domainerrors.ErrVotingStillOpen
	}
	if !quorumMet {
		return entities.TallyResult{}, domainerrors.ErrQuorumNotMet
	}
	return entities.Tally(registry, proposal.Status)
}

func (uc TallyUseCase) nowMS() uint64 {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return uint64(now.UnixMilli())
}
