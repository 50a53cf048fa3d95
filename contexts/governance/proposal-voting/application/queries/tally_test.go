package queries

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"referendum/contexts/governance/proposal-voting/adapters/memory"
	"referendum/contexts/governance/proposal-voting/domain/entities"
	domainerrors "referendum/contexts/governance/proposal-voting/domain/errors"
)

func newTallyFixture(
	t *testing.T,
	status entities.VoteStatus,
	agree uint64,
	disagree uint64,
) (*memory.Store, TallyUseCase) {
	t.Helper()
	store := memory.NewStore([]entities.Proposal{{
		ProposalID: "prop-1",
		Title:      "Adopt treasury budget",
		CreatorID:  "user-1",
		Status:     status,
	}})

	ctx := context.Background()
	ts := status.StartTS
	for i := uint64(0); i < agree; i++ {
		record := entities.ParticipantRecord{Address: fmt.Sprintf("agree-%d", i), TS: ts + i, IsAgree: true}
		if err := store.InsertBallot(ctx, "prop-1", record); err != nil {
			t.Fatalf("seed agree ballot failed: %v", err)
		}
	}
	for i := uint64(0); i < disagree; i++ {
		record := entities.ParticipantRecord{Address: fmt.Sprintf("disagree-%d", i), TS: ts + agree + i, IsAgree: false}
		if err := store.InsertBallot(ctx, "prop-1", record); err != nil {
			t.Fatalf("seed disagree ballot failed: %v", err)
		}
	}

	return store, TallyUseCase{Proposals: store, Ballots: store, Clock: store}
}

func votingStatus(startTS, endTS, minVotingCount, passingThresholdPct uint64) entities.VoteStatus {
	var status entities.VoteStatus
	status.Enable(true, startTS, endTS, minVotingCount, passingThresholdPct)
	return status
}

func TestCountVotesMajorityPasses(t *testing.T) {
	store, useCase := newTallyFixture(t, votingStatus(1000, 2000, 3, 50), 2, 1)
	store.SetNow(time.UnixMilli(2500))

	result, err := useCase.CountVotes(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	want := entities.TallyResult{Agree: 2, Disagree: 1, Total: 3, Passed: true}
	if result != want {
		t.Fatalf("expected %+v, got %+v", want, result)
	}
}

func TestCountVotesMinorityFails(t *testing.T) {
	store, useCase := newTallyFixture(t, votingStatus(1000, 2000, 3, 50), 1, 3)
	store.SetNow(time.UnixMilli(2500))

	result, err := useCase.CountVotes(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	want := entities.TallyResult{Agree: 1, Disagree: 3, Total: 4, Passed: false}
	if result != want {
		t.Fatalf("expected %+v, got %+v", want, result)
	}
}

func TestCountVotesWhileWindowOpen(t *testing.T) {
	store, useCase := newTallyFixture(t, votingStatus(1000, 2000, 3, 50), 2, 1)
	ctx := context.Background()

	store.SetNow(time.UnixMilli(1500))
	if _, err := useCase.CountVotes(ctx, "prop-1"); !errors.Is(err, domainerrors.ErrVotingStillOpen) {
		t.Fatalf("expected ErrVotingStillOpen mid-window, got %v", err)
	}

	// Ended is strict, so the window has not ended exactly at end_ts.
	store.SetNow(time.UnixMilli(2000))
	if _, err := useCase.CountVotes(ctx, "prop-1"); !errors.Is(err, domainerrors.ErrVotingStillOpen) {
		t.Fatalf("expected ErrVotingStillOpen at the end instant, got %v", err)
	}

	store.SetNow(time.UnixMilli(2001))
	if _, err := useCase.CountVotes(ctx, "prop-1"); err != nil {
		t.Fatalf("expected count to succeed one tick after end, got %v", err)
	}
}

func TestCountVotesQuorumNotMet(t *testing.T) {
	store, useCase := newTallyFixture(t, votingStatus(1000, 2000, 3, 50), 1, 1)
	store.SetNow(time.UnixMilli(2500))

	_, err := useCase.CountVotes(context.Background(), "prop-1")
	if !errors.Is(err, domainerrors.ErrQuorumNotMet) {
		t.Fatalf("expected ErrQuorumNotMet with 2 of 3 required ballots, got %v", err)
	}
}

func TestCountVotesRepeatsSameResult(t *testing.T) {
	store, useCase := newTallyFixture(t, votingStatus(1000, 2000, 2, 66), 2, 1)
	store.SetNow(time.UnixMilli(2500))
	ctx := context.Background()

	first, err := useCase.CountVotes(ctx, "prop-1")
	if err != nil {
		t.Fatalf("first count failed: %v", err)
	}
	second, err := useCase.CountVotes(ctx, "prop-1")
	if err != nil {
		t.Fatalf("second count failed: %v", err)
	}
	if first != second {
		t.Fatalf("counting must be repeatable, got %+v then %+v", first, second)
	}
	if !first.Passed {
		t.Fatalf("floor(2*100/3)=66 must meet a threshold of 66, got %+v", first)
	}
}

func TestCountVotesRejectsEmptyBallotSet(t *testing.T) {
	store, useCase := newTallyFixture(t, votingStatus(1000, 2000, 0, 50), 0, 0)
	store.SetNow(time.UnixMilli(2500))

	// A zero quorum is satisfied by zero ballots, but the tally itself
	// refuses to divide by an empty set.
	_, err := useCase.CountVotes(context.Background(), "prop-1")
	if !errors.Is(err, domainerrors.ErrNoBallots) {
		t.Fatalf("expected ErrNoBallots, got %v", err)
	}
}

func TestCountVotesUnknownProposal(t *testing.T) {
	store, useCase := newTallyFixture(t, votingStatus(1000, 2000, 3, 50), 0, 0)
	store.SetNow(time.UnixMilli(2500))

	_, err := useCase.CountVotes(context.Background(), "prop-missing")
	if !errors.Is(err, domainerrors.ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}
}
