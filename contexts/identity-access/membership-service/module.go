package membership

import (
	"log/slog"
	"time"

	httpadapter "societyhub/contexts/identity-access/membership-service/adapters/http"
	"societyhub/contexts/identity-access/membership-service/adapters/memory"
	"societyhub/contexts/identity-access/membership-service/application/commands"
	"societyhub/contexts/identity-access/membership-service/application/queries"
	"societyhub/contexts/identity-access/membership-service/ports"
)

// Module is the membership-service composition root. Oracle is the
// read side consumed by governance.
type Module struct {
	Handler httpadapter.Handler
	Oracle  queries.MembershipQueries
	Store   *memory.Store
}

type Dependencies struct {
	Repository ports.Repository
	Cache      ports.MembershipCache
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	CacheTTL   time.Duration
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	oracle := queries.MembershipQueries{
		Repository: deps.Repository,
		Cache:      deps.Cache,
		Clock:      deps.Clock,
		CacheTTL:   deps.CacheTTL,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Manage: commands.ManageMembershipUseCase{
				Repository: deps.Repository,
				Cache:      deps.Cache,
				Clock:      deps.Clock,
				IDGen:      deps.IDGen,
				Logger:     deps.Logger,
			},
			Queries: oracle,
			Logger:  deps.Logger,
		},
		Oracle: oracle,
	}
}

// NewInMemoryModule builds a development/testing module with in-memory adapters.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository: store,
		Cache:      store,
		Clock:      store,
		IDGen:      store,
		CacheTTL:   time.Minute,
		Logger:     logger,
	})
	module.Store = store
	return module
}
