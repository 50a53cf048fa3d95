package entities

// Proposal is the governed subject. Each proposal owns exactly one
// VoteStatus and one ballot set sharing its lifetime; proposals start
// with voting disabled and are never deleted.
type Proposal struct {
	ProposalID  string
	Title       string
	Description string
	CreatorID   string
	Status      VoteStatus
	CreatedTS   uint64
	UpdatedTS   uint64
}
