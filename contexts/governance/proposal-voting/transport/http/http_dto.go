package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateProposalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type EnableVotingRequest struct {
	Enabled             bool   `json:"enabled"`
	StartTS             uint64 `json:"start_ts"`
	EndTS               uint64 `json:"end_ts"`
	MinVotingCount      uint64 `json:"min_voting_count"`
	PassingThresholdPct uint64 `json:"passing_threshold_pct"`
}

type ProposalResponse struct {
	ProposalID          string `json:"proposal_id"`
	Title               string `json:"title"`
	Description         string `json:"description,omitempty"`
	CreatorID           string `json:"creator_id"`
	Enabled             bool   `json:"enabled"`
	StartTS             uint64 `json:"start_ts"`
	EndTS               uint64 `json:"end_ts"`
	MinVotingCount      uint64 `json:"min_voting_count"`
	PassingThresholdPct uint64 `json:"passing_threshold_pct"`
	CreatedTS           uint64 `json:"created_ts"`
	UpdatedTS           uint64 `json:"updated_ts"`
}

type ProposalListResponse struct {
	Items []ProposalResponse `json:"items"`
}

type CastVoteRequest struct {
	IsAgree bool `json:"is_agree"`
}

type VoteResponse struct {
	ProposalID   string `json:"proposal_id"`
	VoterAddress string `json:"voter_address"`
	TS           uint64 `json:"ts"`
	IsAgree      bool   `json:"is_agree"`
	EvidenceID   string `json:"evidence_id"`
}

type BallotResponse struct {
	ProposalID   string `json:"proposal_id"`
	VoterAddress string `json:"voter_address"`
	TS           uint64 `json:"ts"`
	IsAgree      bool   `json:"is_agree"`
}

type ProposalStatusResponse struct {
	ProposalID          string `json:"proposal_id"`
	Enabled             bool   `json:"enabled"`
	Open                bool   `json:"open"`
	Ended               bool   `json:"ended"`
	QuorumMet           bool   `json:"quorum_met"`
	BallotCount         uint64 `json:"ballot_count"`
	NowTS               uint64 `json:"now_ts"`
	StartTS             uint64 `json:"start_ts"`
	EndTS               uint64 `json:"end_ts"`
	MinVotingCount      uint64 `json:"min_voting_count"`
	PassingThresholdPct uint64 `json:"passing_threshold_pct"`
}

type TallyResponse struct {
	ProposalID string `json:"proposal_id"`
	Agree      uint64 `json:"agree"`
	Disagree   uint64 `json:"disagree"`
	Total      uint64 `json:"total"`
	Passed     bool   `json:"passed"`
}

type EvidenceResponse struct {
	EvidenceID   string `json:"evidence_id"`
	ProposalID   string `json:"proposal_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ProjectURL   string `json:"project_url"`
	ImageURL     string `json:"image_url"`
	Creator      string `json:"creator"`
	OwnerAddress string `json:"owner_address"`
	IsAgree      bool   `json:"is_agree"`
	IssuedTS     uint64 `json:"issued_ts"`
}

type EvidenceListResponse struct {
	Items []EvidenceResponse `json:"items"`
}
