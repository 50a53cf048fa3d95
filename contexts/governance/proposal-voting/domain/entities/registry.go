package entities

import (
	"sort"

	domainerrors "referendum/contexts/governance/proposal-voting/domain/errors"
)

// ParticipantRecord is one cast ballot: who voted, when, and which way.
// Records never change once written.
type ParticipantRecord struct {
	Address string
	TS      uint64
	IsAgree bool
}

// ParticipantRegistry is the append-only ballot set of one proposal, keyed
// by voter address. Entries are never updated or removed.
type ParticipantRegistry struct {
	records map[string]ParticipantRecord
}

func NewParticipantRegistry() *ParticipantRegistry {
	return &ParticipantRegistry{
		records: make(map[string]ParticipantRecord),
	}
}

// NewParticipantRegistryFromRecords rehydrates a registry from stored
// ballots. When the input carries the same address twice the first record
// wins, matching the append-only contract of RecordVote.
func NewParticipantRegistryFromRecords(records []ParticipantRecord) *ParticipantRegistry {
	registry := NewParticipantRegistry()
	for _, record := range records {
		if _, ok := registry.records[record.Address]; ok {
			continue
		}
		registry.records[record.Address] = record
	}
	return registry
}

// RecordVote appends a ballot for address. A second ballot from the same
// address fails with ErrDuplicateVote and leaves the registry unchanged;
// there is no update path.
func (r *ParticipantRegistry) RecordVote(address string, nowMS uint64, isAgree bool) error {
	if _, ok := r.records[address]; ok {
		return domainerrors.ErrDuplicateVote
	}
	r.records[address] = ParticipantRecord{
		Address: address,
		TS:      nowMS,
		IsAgree: isAgree,
	}
	return nil
}

func (r *ParticipantRegistry) Contains(address string) bool {
	_, ok := r.records[address]
	return ok
}

func (r *ParticipantRegistry) Record(address string) (ParticipantRecord, bool) {
	record, ok := r.records[address]
	return record, ok
}

func (r *ParticipantRegistry) Size() uint64 {
	return uint64(len(r.records))
}

// Records returns ballot copies ordered by cast time, then address.
func (r *ParticipantRegistry) Records() []ParticipantRecord {
	items := make([]ParticipantRecord, 0, len(r.records))
	for _, record := range r.records {
		items = append(items, record)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].TS == items[j].TS {
			return items[i].Address < items[j].Address
		}
		return items[i].TS < items[j].TS
	})
	return items
}
