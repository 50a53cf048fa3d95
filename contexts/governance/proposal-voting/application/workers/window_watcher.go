package workers

import (
	"context"
	"log/slog"
	"time"

	application "referendum/contexts/governance/proposal-voting/application"
	"referendum/contexts/governance/proposal-voting/ports"
)

// WindowWatcher sweeps enabled proposals and emits governance.voting_closed
// once per proposal after its window ends. The dedup store keeps the event
// single-shot across sweeps and across competing worker replicas.
type WindowWatcher struct {
	Proposals ports.ProposalRepository
	Ballots   ports.BallotRepository
	Dedup     ports.EventDedupStore
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	DedupTTL  time.Duration
	Disabled  bool
	Logger    *slog.Logger
}

func (w WindowWatcher) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(w.Logger)
	if w.Disabled {
		logger.Debug("governance window watcher disabled by feature flag",
			"event", "governance_window_watcher_disabled",
			"module", "governance/proposal-voting",
			"layer", "worker",
		)
		return nil
	}

	proposals, err := w.Proposals.ListProposals(ctx)
	if err != nil {
		logger.Error("governance window watcher list failed",
			"event", "governance_window_watcher_list_failed",
			"module", "governance/proposal-voting",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := w.now()
	nowMS := uint64(now.UnixMilli())
	closed := 0
	for _, proposal := range proposals {
		if !proposal.Status.IsEnabled() {
			continue
		}
		count, err := w.Ballots.CountBallots(ctx, proposal.ProposalID)
		if err != nil {
			logger.Error("governance window watcher count failed",
				"event", "governance_window_watcher_count_failed",
				"module", "governance/proposal-voting",
				"layer", "worker",
				"proposal_id", proposal.ProposalID,
				"error", err.Error(),
			)
			return err
		}
		ended, quorumMet := proposal.Status.Countable(count, nowMS)
		if !ended {
			continue
		}

		// Closure identity and payload derive from frozen window state only,
		// so every sweep reserves the same event.
		envelope, err := newGovernanceEnvelope(
			closureEventID(proposal.ProposalID),
			EventVotingClosed,
			proposal.ProposalID,
			time.UnixMilli(int64(proposal.Status.EndTS)).UTC(),
			map[string]any{
				"proposal_id":      proposal.ProposalID,
				"end_ts":           proposal.Status.EndTS,
				"ballot_count":     count,
				"quorum_met":       quorumMet,
				"min_voting_count": proposal.Status.MinVotingCount,
			},
		)
		if err != nil {
			return err
		}
		alreadyProcessed, err := w.Dedup.ReserveEvent(ctx, envelope.EventID, hashPayload(envelope.Data), now.Add(w.dedupTTL()))
		if err != nil {
			logger.Error("governance window closure dedupe failed",
				"event", "governance_window_closure_dedupe_failed",
				"module", "governance/proposal-voting",
				"layer", "worker",
				"proposal_id", proposal.ProposalID,
				"error", err.Error(),
			)
			return err
		}
		if alreadyProcessed {
			continue
		}
		if err := w.Outbox.AppendOutbox(ctx, envelope); err != nil {
			logger.Error("governance window closure outbox append failed",
				"event", "governance_window_closure_outbox_failed",
				"module", "governance/proposal-voting",
				"layer", "worker",
				"proposal_id", proposal.ProposalID,
				"error", err.Error(),
			)
			return err
		}
		closed++
		logger.Info("voting window closed",
			"event", "governance_voting_window_closed",
			"module", "governance/proposal-voting",
			"layer", "worker",
			"proposal_id", proposal.ProposalID,
			"ballot_count", count,
			"quorum_met", quorumMet,
		)
	}

	if closed > 0 {
		logger.Info("governance window watcher cycle completed",
			"event", "governance_window_watcher_completed",
			"module", "governance/proposal-voting",
			"layer", "worker",
			"closed_count", closed,
		)
	}
	return nil
}

// closureEventID is deterministic so the dedup reservation and the outbox
// row share one identity per proposal closure.
func closureEventID(proposalID string) string {
	return EventVotingClosed + ":" + proposalID
}

func (w WindowWatcher) now() time.Time {
	now := time.Now().UTC()
	if w.Clock != nil {
		now = w.Clock.Now().UTC()
	}
	return now
}

func (w WindowWatcher) dedupTTL() time.Duration {
	if w.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return w.DedupTTL
}
