package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	application "referendum/contexts/governance/proposal-voting/application"
	"referendum/contexts/governance/proposal-voting/application/queries"
	domainerrors "referendum/contexts/governance/proposal-voting/domain/errors"
	"referendum/contexts/governance/proposal-voting/ports"
)

const defaultVotingClosedConsumerGroup = "governance-voting-closed-cg"

type votingClosedPayload struct {
	ProposalID string `json:"proposal_id"`
	QuorumMet  bool   `json:"quorum_met"`
}

// VotingClosedConsumer reacts to closure events by counting the final
// outcome and writing it to the service log. Counting stays read-only;
// the proposal row keeps no terminal state.
type VotingClosedConsumer struct {
	Subscriber    ports.EventSubscriber
	Proposals     ports.ProposalRepository
	Ballots       ports.BallotRepository
	Dedup         ports.EventDedupStore
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c VotingClosedConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := c.group()
	if err := c.Subscriber.Subscribe(ctx, EventVotingClosed, group, c.handleVotingClosed); err != nil {
		logger.Error("voting closed consumer subscribe failed",
			"event", "governance_voting_closed_subscribe_failed",
			"module", "governance/proposal-voting",
			"layer", "worker",
			"topic", EventVotingClosed,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("voting closed consumer subscribed",
		"event", "governance_voting_closed_subscribed",
		"module", "governance/proposal-voting",
		"layer", "worker",
		"topic", EventVotingClosed,
		"consumer_group", group,
	)
	return nil
}

func (c VotingClosedConsumer) handleVotingClosed(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}

	// The watcher already reserves the bare closure event id when it writes
	// the outbox row, so consumer reservations are keyed by group.
	dedupKey := c.group() + ":" + event.EventID
	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, dedupKey, hashPayload(event.Data), now.Add(c.dedupTTL()))
	if err != nil {
		logger.Error("voting closed event dedupe failed",
			"event", "governance_voting_closed_dedupe_failed",
			"module", "governance/proposal-voting",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if alreadyProcessed {
		logger.Debug("voting closed event already processed",
			"event", "governance_voting_closed_replayed",
			"module", "governance/proposal-voting",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload votingClosedPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("decode voting closed payload: %w", err)
	}
	if payload.ProposalID == "" {
		return fmt.Errorf("voting closed event missing proposal_id")
	}

	tallyUseCase := queries.TallyUseCase{
		Proposals: c.Proposals,
		Ballots:   c.Ballots,
		Clock:     c.Clock,
	}
	result, err := tallyUseCase.CountVotes(ctx, payload.ProposalID)
	switch {
	case errors.Is(err, domainerrors.ErrQuorumNotMet), errors.Is(err, domainerrors.ErrNoBallots):
		logger.Info("voting closed without a countable outcome",
			"event", "governance_closure_below_quorum",
			"module", "governance/proposal-voting",
			"layer", "worker",
			"event_id", event.EventID,
			"proposal_id", payload.ProposalID,
			"quorum_met", payload.QuorumMet,
		)
		return nil
	case err != nil:
		logger.Error("voting closed outcome count failed",
			"event", "governance_closure_count_failed",
			"module", "governance/proposal-voting",
			"layer", "worker",
			"event_id", event.EventID,
			"proposal_id", payload.ProposalID,
			"error", err.Error(),
		)
		return err
	}

	logger.Info("voting closed outcome recorded",
		"event", "governance_closure_outcome_recorded",
		"module", "governance/proposal-voting",
		"layer", "worker",
		"event_id", event.EventID,
		"proposal_id", payload.ProposalID,
		"agree", result.Agree,
		"disagree", result.Disagree,
		"total", result.Total,
		"passed", result.Passed,
	)
	return nil
}

func (c VotingClosedConsumer) group() string {
	if c.ConsumerGroup == "" {
		return defaultVotingClosedConsumerGroup
	}
	return c.ConsumerGroup
}

func (c VotingClosedConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}
