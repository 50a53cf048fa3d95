package entities

import (
	"errors"
	"fmt"
	"testing"

	domainerrors "referendum/contexts/governance/proposal-voting/domain/errors"
)

func TestRecordVoteAcceptsDistinctAddresses(t *testing.T) {
	registry := NewParticipantRegistry()
	for i := 0; i < 5; i++ {
		address := fmt.Sprintf("voter-%d", i)
		if err := registry.RecordVote(address, uint64(1000+i), i%2 == 0); err != nil {
			t.Fatalf("record vote %s failed: %v", address, err)
		}
	}
	if registry.Size() != 5 {
		t.Fatalf("expected size 5, got %d", registry.Size())
	}
	for i := 0; i < 5; i++ {
		if !registry.Contains(fmt.Sprintf("voter-%d", i)) {
			t.Fatalf("expected registry to contain voter-%d", i)
		}
	}
	if registry.Contains("voter-9") {
		t.Fatalf("expected registry not to contain unknown address")
	}
}

func TestRecordVoteRejectsDuplicateAndKeepsState(t *testing.T) {
	registry := NewParticipantRegistry()
	if err := registry.RecordVote("voter-1", 1200, true); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}

	err := registry.RecordVote("voter-1", 1800, false)
	if !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}

	if registry.Size() != 1 {
		t.Fatalf("expected size 1 after rejected duplicate, got %d", registry.Size())
	}
	record, ok := registry.Record("voter-1")
	if !ok {
		t.Fatalf("expected original record to remain")
	}
	if record.TS != 1200 || !record.IsAgree {
		t.Fatalf("expected original record untouched, got %+v", record)
	}
}

func TestRecordsOrderedByTimestampThenAddress(t *testing.T) {
	registry := NewParticipantRegistry()
	if err := registry.RecordVote("voter-c", 3000, true); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := registry.RecordVote("voter-b", 1000, false); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := registry.RecordVote("voter-a", 3000, true); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	records := registry.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Address != "voter-b" || records[1].Address != "voter-a" || records[2].Address != "voter-c" {
		t.Fatalf("unexpected order: %+v", records)
	}

	// Returned slice is a copy; mutating it must not leak into the registry.
	records[0].IsAgree = true
	fresh, _ := registry.Record("voter-b")
	if fresh.IsAgree {
		t.Fatalf("expected registry record unchanged after slice mutation")
	}
}

func TestRehydrationKeepsFirstRecordPerAddress(t *testing.T) {
	registry := NewParticipantRegistryFromRecords([]ParticipantRecord{
		{Address: "voter-1", TS: 1000, IsAgree: true},
		{Address: "voter-2", TS: 1100, IsAgree: false},
		{Address: "voter-1", TS: 1500, IsAgree: false},
	})
	if registry.Size() != 2 {
		t.Fatalf("expected duplicates collapsed to 2, got %d", registry.Size())
	}
	record, _ := registry.Record("voter-1")
	if record.TS != 1000 || !record.IsAgree {
		t.Fatalf("expected first record kept, got %+v", record)
	}
}
