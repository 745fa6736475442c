package governanceservice

import (
	"log/slog"

	httpadapter "societyhub/contexts/society-redevelopment/governance-service/adapters/http"
	"societyhub/contexts/society-redevelopment/governance-service/adapters/memory"
	"societyhub/contexts/society-redevelopment/governance-service/application/commands"
	"societyhub/contexts/society-redevelopment/governance-service/application/queries"
	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	"societyhub/contexts/society-redevelopment/governance-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Projects               ports.ProjectRepository
	Proposals              ports.ProposalRepository
	Selections             ports.SelectionStore
	Ballots                ports.BallotLedger
	Membership             ports.MembershipOracle
	Notifications          ports.NotificationDispatcher
	Clock                  ports.Clock
	IDGen                  ports.IDGenerator
	ScoreWeights           entities.ScoreWeights
	DefaultMinimumApproval int
	Logger                 *slog.Logger
}

func NewModule(deps Dependencies) Module {
	statistics := queries.StatisticsUseCase{
		Projects:   deps.Projects,
		Ballots:    deps.Ballots,
		Membership: deps.Membership,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Lifecycle: commands.ProjectLifecycleUseCase{
				Projects:               deps.Projects,
				Notifications:          deps.Notifications,
				Clock:                  deps.Clock,
				IDGen:                  deps.IDGen,
				DefaultMinimumApproval: deps.DefaultMinimumApproval,
				Logger:                 deps.Logger,
			},
			Proposals: commands.ProposalUseCase{
				Projects:      deps.Projects,
				Proposals:     deps.Proposals,
				Notifications: deps.Notifications,
				Clock:         deps.Clock,
				IDGen:         deps.IDGen,
				Logger:        deps.Logger,
			},
			Reviews: commands.ReviewProposalUseCase{
				Projects:      deps.Projects,
				Proposals:     deps.Proposals,
				Notifications: deps.Notifications,
				Clock:         deps.Clock,
				IDGen:         deps.IDGen,
				Weights:       deps.ScoreWeights,
				Logger:        deps.Logger,
			},
			Selection: commands.SelectProposalUseCase{
				Projects:      deps.Projects,
				Proposals:     deps.Proposals,
				Selections:    deps.Selections,
				Notifications: deps.Notifications,
				Clock:         deps.Clock,
				IDGen:         deps.IDGen,
				Logger:        deps.Logger,
			},
			Votes: commands.VoteUseCase{
				Projects:      deps.Projects,
				Proposals:     deps.Proposals,
				Ballots:       deps.Ballots,
				Membership:    deps.Membership,
				Notifications: deps.Notifications,
				Clock:         deps.Clock,
				IDGen:         deps.IDGen,
				Logger:        deps.Logger,
			},
			Verify: commands.VerifyVoteUseCase{
				Projects:      deps.Projects,
				Ballots:       deps.Ballots,
				Notifications: deps.Notifications,
				Clock:         deps.Clock,
				IDGen:         deps.IDGen,
				Logger:        deps.Logger,
			},
			Statistics: statistics,
			Projects: queries.ProjectQueries{
				Projects:  deps.Projects,
				Proposals: deps.Proposals,
			},
			Logger: deps.Logger,
		},
	}
}

// NewInMemoryModule backs every port with one in-process store. The store
// doubles as the outbox-backed notification dispatcher.
func NewInMemoryModule(membership ports.MembershipOracle, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Projects:      store,
		Proposals:     store,
		Selections:    store,
		Ballots:       store,
		Membership:    membership,
		Notifications: store,
		Clock:         store,
		IDGen:         store,
		ScoreWeights:  entities.DefaultScoreWeights(),
		Logger:        logger,
	})
	module.Store = store
	return module
}
