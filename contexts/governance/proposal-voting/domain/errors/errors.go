package errors

import "errors"

var (
	ErrInvalidProposalInput = errors.New("invalid proposal input")
	ErrInvalidVoteInput     = errors.New("invalid vote input")
	ErrProposalNotFound     = errors.New("proposal not found")
	ErrProposalExists       = errors.New("proposal already exists")
	ErrBallotNotFound       = errors.New("ballot not found")
	ErrEvidenceNotFound     = errors.New("evidence token not found")
	ErrDuplicateVote        = errors.New("address has already voted")
	ErrNoBallots            = errors.New("tally requires at least one ballot")
	ErrVotingNotEnabled     = errors.New("voting is not enabled")
	ErrOutsideVotingPeriod  = errors.New("vote is outside the voting period")
	ErrVotingStillOpen      = errors.New("voting period has not ended")
	ErrQuorumNotMet         = errors.New("minimum voting count not reached")
	ErrConflict             = errors.New("governance state conflict")
)
