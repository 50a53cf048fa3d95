package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"referendum/contexts/governance/proposal-voting/domain/entities"
	domainerrors "referendum/contexts/governance/proposal-voting/domain/errors"
	"referendum/contexts/governance/proposal-voting/ports"
	"referendum/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) InsertProposal(ctx context.Context, proposal entities.Proposal) error {
	row := proposalModelFromEntity(proposal)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "proposal_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrProposalExists
		}
		return r.logError("governance_repo_insert_proposal_failed", create.Error,
			"proposal_id", row.ProposalID,
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrProposalExists
	}
	return nil
}

func (r *Repository) GetProposal(ctx context.Context, proposalID string) (entities.Proposal, error) {
	var row proposalModel
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", strings.TrimSpace(proposalID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, domainerrors.ErrProposalNotFound
		}
		return entities.Proposal{}, r.logError("governance_repo_get_proposal_failed", err,
			"proposal_id", strings.TrimSpace(proposalID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) UpdateVoteStatus(
	ctx context.Context,
	proposalID string,
	status entities.VoteStatus,
	updatedTS uint64,
) error {
	result := r.db.WithContext(ctx).
		Model(&proposalModel{}).
		Where("proposal_id = ?", strings.TrimSpace(proposalID)).
		Updates(map[string]any{
			"enabled":               status.Enabled,
			"start_ts":              int64(status.StartTS),
			"end_ts":                int64(status.EndTS),
			"min_voting_count":      int64(status.MinVotingCount),
			"passing_threshold_pct": int64(status.PassingThresholdPct),
			"updated_ts":            int64(updatedTS),
		})
	if result.Error != nil {
		return r.logError("governance_repo_update_vote_status_failed", result.Error,
			"proposal_id", strings.TrimSpace(proposalID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrProposalNotFound
	}
	return nil
}

func (r *Repository) ListProposals(ctx context.Context) ([]entities.Proposal, error) {
	var rows []proposalModel
	if err := r.db.WithContext(ctx).
		Order("created_ts ASC").
		Order("proposal_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_proposals_failed", err)
	}
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) InsertBallot(ctx context.Context, proposalID string, record entities.ParticipantRecord) error {
	row := ballotModelFromRecord(proposalID, record)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "proposal_id"}, {Name: "voter_address"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrDuplicateVote
		}
		return r.logError("governance_repo_insert_ballot_failed", create.Error,
			"proposal_id", row.ProposalID,
			"voter_address", row.VoterAddress,
		)
	}
	if create.RowsAffected == 0 {
		// The existing row stays untouched; the losing writer only learns
		// that the address has already voted.
		return domainerrors.ErrDuplicateVote
	}
	return nil
}

func (r *Repository) GetBallot(ctx context.Context, proposalID string, address string) (entities.ParticipantRecord, error) {
	var row ballotModel
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", strings.TrimSpace(proposalID)).
		Where("voter_address = ?", strings.TrimSpace(address)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ParticipantRecord{}, domainerrors.ErrBallotNotFound
		}
		return entities.ParticipantRecord{}, r.logError("governance_repo_get_ballot_failed", err,
			"proposal_id", strings.TrimSpace(proposalID),
			"voter_address", strings.TrimSpace(address),
		)
	}
	return row.toRecord(), nil
}

func (r *Repository) HasBallot(ctx context.Context, proposalID string, address string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ballotModel{}).
		Where("proposal_id = ?", strings.TrimSpace(proposalID)).
		Where("voter_address = ?", strings.TrimSpace(address)).
		Count(&count).
		Error
	if err != nil {
		return false, r.logError("governance_repo_has_ballot_failed", err,
			"proposal_id", strings.TrimSpace(proposalID),
			"voter_address", strings.TrimSpace(address),
		)
	}
	return count > 0, nil
}

func (r *Repository) CountBallots(ctx context.Context, proposalID string) (uint64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ballotModel{}).
		Where("proposal_id = ?", strings.TrimSpace(proposalID)).
		Count(&count).
		Error
	if err != nil {
		return 0, r.logError("governance_repo_count_ballots_failed", err,
			"proposal_id", strings.TrimSpace(proposalID),
		)
	}
	return uint64(count), nil
}

func (r *Repository) ListBallots(ctx context.Context, proposalID string) ([]entities.ParticipantRecord, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).
		Where("proposal_id = ?", strings.TrimSpace(proposalID)).
		Order("ts ASC").
		Order("voter_address ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_ballots_failed", err,
			"proposal_id", strings.TrimSpace(proposalID),
		)
	}
	items := make([]entities.ParticipantRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toRecord())
	}
	return items, nil
}

func (r *Repository) InsertEvidence(ctx context.Context, token entities.EvidenceToken) error {
	row := evidenceModelFromEntity(token)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "evidence_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("governance_repo_insert_evidence_failed", create.Error,
			"evidence_id", row.EvidenceID,
			"proposal_id", row.ProposalID,
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) GetEvidence(ctx context.Context, evidenceID string) (entities.EvidenceToken, error) {
	var row evidenceModel
	err := r.db.WithContext(ctx).
		Where("evidence_id = ?", strings.TrimSpace(evidenceID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.EvidenceToken{}, domainerrors.ErrEvidenceNotFound
		}
		return entities.EvidenceToken{}, r.logError("governance_repo_get_evidence_failed", err,
			"evidence_id", strings.TrimSpace(evidenceID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListEvidenceByOwner(ctx context.Context, ownerAddress string) ([]entities.EvidenceToken, error) {
	var rows []evidenceModel
	if err := r.db.WithContext(ctx).
		Where("owner_address = ?", strings.TrimSpace(ownerAddress)).
		Order("issued_ts ASC").
		Order("evidence_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_evidence_by_owner_failed", err,
			"owner_address", strings.TrimSpace(ownerAddress),
		)
	}
	items := make([]entities.EvidenceToken, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("governance_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("governance_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("governance_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("governance_repo_reserve_event_failed", create.Error,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("governance_repo_reserve_event_load_existing_failed", err,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "governance/proposal-voting",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("governance repository operation failed", fields...)
	return err
}

// Timestamp and counter columns are bigint; postgres has no unsigned type, so
// values round-trip through int64.
type proposalModel struct {
	ProposalID          string `gorm:"column:proposal_id;primaryKey"`
	Title               string `gorm:"column:title"`
	Description         string `gorm:"column:description"`
	CreatorID           string `gorm:"column:creator_id"`
	Enabled             bool   `gorm:"column:enabled"`
	StartTS             int64  `gorm:"column:start_ts"`
	EndTS               int64  `gorm:"column:end_ts"`
	MinVotingCount      int64  `gorm:"column:min_voting_count"`
	PassingThresholdPct int64  `gorm:"column:passing_threshold_pct"`
	CreatedTS           int64  `gorm:"column:created_ts"`
	UpdatedTS           int64  `gorm:"column:updated_ts"`
}

func (proposalModel) TableName() string {
	return "proposals"
}

func proposalModelFromEntity(proposal entities.Proposal) proposalModel {
	return proposalModel{
		ProposalID:          strings.TrimSpace(proposal.ProposalID),
		Title:               strings.TrimSpace(proposal.Title),
		Description:         proposal.Description,
		CreatorID:           strings.TrimSpace(proposal.CreatorID),
		Enabled:             proposal.Status.Enabled,
		StartTS:             int64(proposal.Status.StartTS),
		EndTS:               int64(proposal.Status.EndTS),
		MinVotingCount:      int64(proposal.Status.MinVotingCount),
		PassingThresholdPct: int64(proposal.Status.PassingThresholdPct),
		CreatedTS:           int64(proposal.CreatedTS),
		UpdatedTS:           int64(proposal.UpdatedTS),
	}
}

func (m proposalModel) toEntity() entities.Proposal {
	return entities.Proposal{
		ProposalID:  m.ProposalID,
		Title:       m.Title,
		Description: m.Description,
		CreatorID:   m.CreatorID,
		Status: entities.VoteStatus{
			Enabled:             m.Enabled,
			StartTS:             uint64(m.StartTS),
			EndTS:               uint64(m.EndTS),
			MinVotingCount:      uint64(m.MinVotingCount),
			PassingThresholdPct: uint64(m.PassingThresholdPct),
		},
		CreatedTS: uint64(m.CreatedTS),
		UpdatedTS: uint64(m.UpdatedTS),
	}
}

type ballotModel struct {
	ProposalID   string `gorm:"column:proposal_id;primaryKey"`
	VoterAddress string `gorm:"column:voter_address;primaryKey"`
	TS           int64  `gorm:"column:ts"`
	IsAgree      bool   `gorm:"column:is_agree"`
}

func (ballotModel) TableName() string {
	return "ballots"
}

func ballotModelFromRecord(proposalID string, record entities.ParticipantRecord) ballotModel {
	return ballotModel{
		ProposalID:   strings.TrimSpace(proposalID),
		VoterAddress: strings.TrimSpace(record.Address),
		TS:           int64(record.TS),
		IsAgree:      record.IsAgree,
	}
}

func (m ballotModel) toRecord() entities.ParticipantRecord {
	return entities.ParticipantRecord{
		Address: m.VoterAddress,
		TS:      uint64(m.TS),
		IsAgree: m.IsAgree,
	}
}

type evidenceModel struct {
	EvidenceID   string `gorm:"column:evidence_id;primaryKey"`
	ProposalID   string `gorm:"column:proposal_id"`
	Name         string `gorm:"column:name"`
	Description  string `gorm:"column:description"`
	ProjectURL   string `gorm:"column:project_url"`
	ImageURL     string `gorm:"column:image_url"`
	Creator      string `gorm:"column:creator"`
	OwnerAddress string `gorm:"column:owner_address"`
	IsAgree      bool   `gorm:"column:is_agree"`
	IssuedTS     int64  `gorm:"column:issued_ts"`
}

func (evidenceModel) TableName() string {
	return "evidence_tokens"
}

func evidenceModelFromEntity(token entities.EvidenceToken) evidenceModel {
	return evidenceModel{
		EvidenceID:   strings.TrimSpace(token.EvidenceID),
		ProposalID:   strings.TrimSpace(token.ProposalID),
		Name:         token.Name,
		Description:  token.Description,
		ProjectURL:   token.ProjectURL,
		ImageURL:     token.ImageURL,
		Creator:      token.Creator,
		OwnerAddress: strings.TrimSpace(token.OwnerAddress),
		IsAgree:      token.IsAgree,
		IssuedTS:     int64(token.IssuedTS),
	}
}

func (m evidenceModel) toEntity() entities.EvidenceToken {
	return entities.EvidenceToken{
		EvidenceID:   m.EvidenceID,
		ProposalID:   m.ProposalID,
		Name:         m.Name,
		Description:  m.Description,
		ProjectURL:   m.ProjectURL,
		ImageURL:     m.ImageURL,
		Creator:      m.Creator,
		OwnerAddress: m.OwnerAddress,
		IsAgree:      m.IsAgree,
		IssuedTS:     uint64(m.IssuedTS),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "governance_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "governance_event_dedup"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ProposalRepository = (*Repository)(nil)
var _ ports.BallotRepository = (*Repository)(nil)
var _ ports.EvidenceRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
