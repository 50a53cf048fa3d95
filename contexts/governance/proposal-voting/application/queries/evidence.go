package queries

import (
	"context"
	"strings"

	"referendum/contexts/governance/proposal-voting/domain/entities"
	"referendum/contexts/governance/proposal-voting/ports"
)

type EvidenceQueryUseCase struct {
	Evidence ports.EvidenceRepository
}

func (uc EvidenceQueryUseCase) EvidenceDetail(ctx context.Context, evidenceID string) (entities.EvidenceToken, error) {
	return uc.Evidence.GetEvidence(ctx, strings.TrimSpace(evidenceID))
}

func (uc EvidenceQueryUseCase) OwnerEvidence(ctx context.Context, ownerAddress string) ([]entities.EvidenceToken, error) {
	return uc.Evidence.ListEvidenceByOwner(ctx, strings.TrimSpace(ownerAddress))
}
