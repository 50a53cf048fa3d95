package proposalvoting

import (
	"log/slog"

	httpadapter "referendum/contexts/governance/proposal-voting/adapters/http"
	"referendum/contexts/governance/proposal-voting/adapters/memory"
	"referendum/contexts/governance/proposal-voting/application/commands"
	"referendum/contexts/governance/proposal-voting/application/queries"
	"referendum/contexts/governance/proposal-voting/domain/entities"
	"referendum/contexts/governance/proposal-voting/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Proposals ports.ProposalRepository
	Ballots   ports.BallotRepository
	Evidence  ports.EvidenceRepository
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	evidenceUseCase := commands.EvidenceUseCase{
		Evidence: deps.Evidence,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	proposalUseCase := commands.ProposalUseCase{
		Proposals: deps.Proposals,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	voteUseCase := commands.VoteUseCase{
		Proposals: deps.Proposals,
		Ballots:   deps.Ballots,
		Issuer:    evidenceUseCase,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	statusUseCase := queries.StatusUseCase{
		Proposals: deps.Proposals,
		Ballots:   deps.Ballots,
		Clock:     deps.Clock,
	}
	tallyUseCase := queries.TallyUseCase{
		Proposals: deps.Proposals,
		Ballots:   deps.Ballots,
		Clock:     deps.Clock,
	}
	evidenceQueryUseCase := queries.EvidenceQueryUseCase{
		Evidence: deps.Evidence,
	}
	return Module{
		Handler: httpadapter.Handler{
			Proposals: proposalUseCase,
			Votes:     voteUseCase,
			Status:    statusUseCase,
			Tallies:   tallyUseCase,
			Evidence:  evidenceQueryUseCase,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Proposal, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Proposals: store,
		Ballots:   store,
		Evidence:  store,
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
