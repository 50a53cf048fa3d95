package entities

// Fixed metadata stamped onto every evidence token. Only the identifier,
// owner, agree flag and issue time vary between tokens.
const (
	EvidenceName        = "Referendum Voting Evidence"
	EvidenceDescription = "Certifies that the holder cast a ballot on a referendum proposal."
	EvidenceProjectURL  = "https://referendum.example.org"
	EvidenceImageURL    = "https://referendum.example.org/assets/evidence.png"
	EvidenceCreator     = "Referendum Governance"
)

// EvidenceToken is the voter-owned proof of participation. Tokens are
// immutable after minting and carry no reference back to the ballot set;
// pairing a ballot with a token is the caller's job.
type EvidenceToken struct {
	EvidenceID   string
	ProposalID   string
	Name         string
	Description  string
	ProjectURL   string
	ImageURL     string
	Creator      string
	OwnerAddress string
	IsAgree      bool
	IssuedTS     uint64
}

// MintEvidence builds a token carrying the fixed metadata and the given
// agree flag. The identifier must come from the host's unique id source;
// uniqueness is not re-checked here.
func MintEvidence(evidenceID, proposalID, ownerAddress string, isAgree bool, nowMS uint64) EvidenceToken {
	return EvidenceToken{
		EvidenceID:   evidenceID,
		ProposalID:   proposalID,
		Name:         EvidenceName,
		Description:  EvidenceDescription,
		ProjectURL:   EvidenceProjectURL,
		ImageURL:     EvidenceImageURL,
		Creator:      EvidenceCreator,
		OwnerAddress: ownerAddress,
		IsAgree:      isAgree,
		IssuedTS:     nowMS,
	}
}
