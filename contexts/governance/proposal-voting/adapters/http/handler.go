package httpadapter

import (
	"context"
	"log/slog"

	application "referendum/contexts/governance/proposal-voting/application"
	"referendum/contexts/governance/proposal-voting/application/commands"
	"referendum/contexts/governance/proposal-voting/application/queries"
	"referendum/contexts/governance/proposal-voting/domain/entities"
	httptransport "referendum/contexts/governance/proposal-voting/transport/http"
)

type Handler struct {
	Proposals commands.ProposalUseCase
	Votes     commands.VoteUseCase
	Status    queries.StatusUseCase
	Tallies   queries.TallyUseCase
	Evidence  queries.EvidenceQueryUseCase
	Logger    *slog.Logger
}

// CreateProposalHandler godoc
// @Summary Create governance proposal
// @Description Registers a proposal. Voting stays disabled until the voting configuration is set.
// @Tags governance-proposal-voting
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Creator user id"
// @Param request body httptransport.CreateProposalRequest true "Proposal payload"
// @Success 200 {object} httptransport.ProposalResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/proposals [post]
func (h Handler) CreateProposalHandler(
	ctx context.Context,
	creatorID string,
	req httptransport.CreateProposalRequest,
) (httptransport.ProposalResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("create proposal request received",
		"event", "http_create_proposal_received",
		"module", "governance/proposal-voting",
		"layer", "transport",
		"creator_id", creatorID,
	)

	proposal, err := h.Proposals.CreateProposal(ctx, commands.CreateProposalCommand{
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   creatorID,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

// EnableVotingHandler godoc
// @Summary Replace voting configuration
// @Description Overwrites the proposal's voting window, quorum, and threshold exactly as supplied.
// @Tags governance-proposal-voting
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Caller user id"
// @Param proposal_id path string true "Proposal id"
// @Param request body httptransport.EnableVotingRequest true "Voting configuration"
// @Success 200 {object} httptransport.ProposalResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/enable [post]
func (h Handler) EnableVotingHandler(
	ctx context.Context,
	proposalID string,
	req httptransport.EnableVotingRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.Proposals.EnableVoting(ctx, commands.EnableVotingCommand{
		ProposalID:          proposalID,
		Enabled:             req.Enabled,
		StartTS:             req.StartTS,
		EndTS:               req.EndTS,
		MinVotingCount:      req.MinVotingCount,
		PassingThresholdPct: req.PassingThresholdPct,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

// CastVoteHandler godoc
// @Summary Cast a ballot
// @Description Records one agree/disagree ballot per address inside the voting window and mints the paired evidence token.
// @Tags governance-proposal-voting
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Voter address"
// @Param proposal_id path string true "Proposal id"
// @Param request body httptransport.CastVoteRequest true "Ballot payload"
// @Success 200 {object} httptransport.VoteResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/votes [post]
func (h Handler) CastVoteHandler(
	ctx context.Context,
	proposalID string,
	voterAddress string,
	req httptransport.CastVoteRequest,
) (httptransport.VoteResponse, error) {
	result, err := h.Votes.CastVote(ctx, commands.CastVoteCommand{
		ProposalID:   proposalID,
		VoterAddress: voterAddress,
		IsAgree:      req.IsAgree,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		ProposalID:   proposalID,
		VoterAddress: result.Ballot.Address,
		TS:           result.Ballot.TS,
		IsAgree:      result.Ballot.IsAgree,
		EvidenceID:   result.Evidence.EvidenceID,
	}, nil
}

// ListProposalsHandler godoc
// @Summary List proposals
// @Description Returns every proposal ordered by creation time.
// @Tags governance-proposal-voting
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} httptransport.ProposalListResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/proposals [get]
func (h Handler) ListProposalsHandler(ctx context.Context) (httptransport.ProposalListResponse, error) {
	proposals, err := h.Status.ListProposals(ctx)
	if err != nil {
		return httptransport.ProposalListResponse{}, err
	}
	items := make([]httptransport.ProposalResponse, 0, len(proposals))
	for _, proposal := range proposals {
		items = append(items, mapProposal(proposal))
	}
	return httptransport.ProposalListResponse{Items: items}, nil
}

// GetProposalHandler godoc
// @Summary Get proposal
// @Description Returns one proposal by id.
// @Tags governance-proposal-voting
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param proposal_id path string true "Proposal id"
// @Success 200 {object} httptransport.ProposalResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id} [get]
func (h Handler) GetProposalHandler(ctx context.Context, proposalID string) (httptransport.ProposalResponse, error) {
	proposal, err := h.Status.GetProposal(ctx, proposalID)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

// ProposalStatusHandler godoc
// @Summary Get voting status
// @Description Projects the proposal against the clock: open, ended, and quorum flags plus the ballot count.
// @Tags governance-proposal-voting
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param proposal_id path string true "Proposal id"
// @Success 200 {object} httptransport.ProposalStatusResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/status [get]
func (h Handler) ProposalStatusHandler(ctx context.Context, proposalID string) (httptransport.ProposalStatusResponse, error) {
	view, err := h.Status.ProposalStatus(ctx, proposalID)
	if err != nil {
		return httptransport.ProposalStatusResponse{}, err
	}
	return httptransport.ProposalStatusResponse{
		ProposalID:          view.Proposal.ProposalID,
		Enabled:             view.Proposal.Status.Enabled,
		Open:                view.Open,
		Ended:               view.Ended,
		QuorumMet:           view.QuorumMet,
		BallotCount:         view.BallotCount,
		NowTS:               view.NowTS,
		StartTS:             view.Proposal.Status.StartTS,
		EndTS:               view.Proposal.Status.EndTS,
		MinVotingCount:      view.Proposal.Status.MinVotingCount,
		PassingThresholdPct: view.Proposal.Status.PassingThresholdPct,
	}, nil
}

// VoterBallotHandler godoc
// @Summary Get a voter's ballot
// @Description Returns the stored ballot for one address on one proposal.
// @Tags governance-proposal-voting
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param proposal_id path string true "Proposal id"
// @Param address path string true "Voter address"
// @Success 200 {object} httptransport.BallotResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/votes/{address} [get]
func (h Handler) VoterBallotHandler(
	ctx context.Context,
	proposalID string,
	address string,
) (httptransport.BallotResponse, error) {
	record, err := h.Status.VoterBallot(ctx, proposalID, address)
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return httptransport.BallotResponse{
		ProposalID:   proposalID,
		VoterAddress: record.Address,
		TS:           record.TS,
		IsAgree:      record.IsAgree,
	}, nil
}

// TallyHandler godoc
// @Summary Tally a closed proposal
// @Description Counts agree and disagree ballots once the window has ended and quorum is met.
// @Tags governance-proposal-voting
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param proposal_id path string true "Proposal id"
// @Success 200 {object} httptransport.TallyResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/tally [get]
func (h Handler) TallyHandler(ctx context.Context, proposalID string) (httptransport.TallyResponse, error) {
	result, err := h.Tallies.CountVotes(ctx, proposalID)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return httptransport.TallyResponse{
		ProposalID: proposalID,
		Agree:      result.Agree,
		Disagree:   result.Disagree,
		Total:      result.Total,
		Passed:     result.Passed,
	}, nil
}

// EvidenceDetailHandler godoc
// @Summary Get evidence token
// @Description Returns one evidence token by id.
// @Tags governance-proposal-voting
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param evidence_id path string true "Evidence id"
// @Success 200 {object} httptransport.EvidenceResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/evidence/{evidence_id} [get]
func (h Handler) EvidenceDetailHandler(ctx context.Context, evidenceID string) (httptransport.EvidenceResponse, error) {
	token, err := h.Evidence.EvidenceDetail(ctx, evidenceID)
	if err != nil {
		return httptransport.EvidenceResponse{}, err
	}
	return mapEvidence(token), nil
}

// OwnerEvidenceHandler godoc
// @Summary List evidence for an owner
// @Description Returns every evidence token held by one address, oldest first.
// @Tags governance-proposal-voting
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param address path string true "Owner address"
// @Success 200 {object} httptransport.EvidenceListResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/voters/{address}/evidence [get]
func (h Handler) OwnerEvidenceHandler(ctx context.Context, ownerAddress string) (httptransport.EvidenceListResponse, error) {
	tokens, err := h.Evidence.OwnerEvidence(ctx, ownerAddress)
	if err != nil {
		return httptransport.EvidenceListResponse{}, err
	}
	items := make([]httptransport.EvidenceResponse, 0, len(tokens))
	for _, token := range tokens {
		items = append(items, mapEvidence(token))
	}
	return httptransport.EvidenceListResponse{Items: items}, nil
}

func mapProposal(proposal entities.Proposal) httptransport.ProposalResponse {
	return httptransport.ProposalResponse{
		ProposalID:          proposal.ProposalID,
		Title:               proposal.Title,
		Description:         proposal.Description,
		CreatorID:           proposal.CreatorID,
		Enabled:             proposal.Status.Enabled,
		StartTS:             proposal.Status.StartTS,
		EndTS:               proposal.Status.EndTS,
		MinVotingCount:      proposal.Status.MinVotingCount,
		PassingThresholdPct: proposal.Status.PassingThresholdPct,
		CreatedTS:           proposal.CreatedTS,
		UpdatedTS:           proposal.UpdatedTS,
	}
}

func mapEvidence(token entities.EvidenceToken) httptransport.EvidenceResponse {
	return httptransport.EvidenceResponse{
		EvidenceID:   token.EvidenceID,
		ProposalID:   token.ProposalID,
		Name:         token.Name,
		Description:  token.Description,
		ProjectURL:   token.ProjectURL,
		ImageURL:     token.ImageURL,
		Creator:      token.Creator,
		OwnerAddress: token.OwnerAddress,
		IsAgree:      token.IsAgree,
		IssuedTS:     token.IssuedTS,
	}
}
