package entities

import (
	domainerrors "referendum/contexts/governance/proposal-voting/domain/errors"
)

// TallyResult carries the counted ballots and the pass verdict.
type TallyResult struct {
	Agree    uint64
	Disagree uint64
	Total    uint64
	Passed   bool
}

// Tally counts the registry in a single pass and applies the pass rule:
// floor(agree*100/total) >= PassingThresholdPct, so a floored percentage
// equal to the threshold passes. An empty registry fails with ErrNoBallots
// before any division happens; callers confirm the window has ended and
// quorum is met through VoteStatus.Countable before tallying.
func Tally(registry *ParticipantRegistry, status VoteStatus) (TallyResult, error) {
	if registry == nil || registry.Size() == 0 {
		return TallyResult{}, domainerrors.ErrNoBallots
	}

	var result TallyResult
	for _, record := range registry.records {
		if record.IsAgree {
			result.Agree++
		} else {
			result.Disagree++
		}
	}
	result.Total = result.Agree + result.Disagree
	result.Passed = result.Agree*100/result.Total >= status.PassingThresholdPct
	return result, nil
}
