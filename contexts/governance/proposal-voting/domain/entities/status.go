package entities

// VoteStatus holds the voting window and pass criteria attached to one
// proposal. Timestamps are milliseconds since the Unix epoch.
type VoteStatus struct {
	Enabled             bool
	StartTS             uint64
	EndTS               uint64
	MinVotingCount      uint64
	PassingThresholdPct uint64
}

// EmptyVoteStatus is the configuration every proposal starts with: voting
// disabled and all window/threshold fields zero.
func EmptyVoteStatus() VoteStatus {
	return VoteStatus{}
}

// Enable overwrites every field unconditionally. No validation happens here:
// a window with StartTS after EndTS or a threshold above 100 is stored as
// given, and re-enabling replaces the previous configuration wholesale.
func (s *VoteStatus) Enable(enabled bool, startTS, endTS, minVotingCount, passingThresholdPct uint64) {
	s.Enabled = enabled
	s.StartTS = startTS
	s.EndTS = endTS
	s.MinVotingCount = minVotingCount
	s.PassingThresholdPct = passingThresholdPct
}

func (s VoteStatus) IsEnabled() bool {
	return s.Enabled
}

// InVotingPeriod reports whether nowMS falls inside the voting window.
// Both bounds are inclusive.
func (s VoteStatus) InVotingPeriod(nowMS uint64) bool {
	return s.StartTS <= nowMS && nowMS <= s.EndTS
}

// Countable reports whether the window has ended and whether the ballot
// count reaches MinVotingCount. The two flags are independent so callers
// can tell "still open" apart from "closed but under quorum". Ended is
// strict: at nowMS == EndTS the window is still open and not yet ended.
func (s VoteStatus) Countable(ballotCount uint64, nowMS uint64) (ended bool, quorumMet bool) {
	return nowMS > s.EndTS, ballotCount >= s.MinVotingCount
}
