package rankingengine

import (
	"log/slog"

	httpadapter "cinetrack/contexts/community-engagement/ranking-engine/adapters/http"
	"cinetrack/contexts/community-engagement/ranking-engine/adapters/memory"
	"cinetrack/contexts/community-engagement/ranking-engine/application/commands"
	"cinetrack/contexts/community-engagement/ranking-engine/application/queries"
	"cinetrack/contexts/community-engagement/ranking-engine/domain/entities"
	"cinetrack/contexts/community-engagement/ranking-engine/ports"
)

type Module struct {
	Handler      httpadapter.Handler
	Recalculator commands.RecalculateUseCase
	Store        *memory.Store
}

type Dependencies struct {
	Ledger   ports.RankingLedger
	Rankings ports.RankingRepository
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func NewModule(deps Dependencies) Module {
	recalculator := commands.RecalculateUseCase{
		Ledger: deps.Ledger,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Recalculator: recalculator,
			Admin: commands.RankingAdminUseCase{
				Rankings:     deps.Rankings,
				Recalculator: recalculator,
				Clock:        deps.Clock,
				IDGen:        deps.IDGen,
				Logger:       deps.Logger,
			},
			Rankings: queries.RankingQueryUseCase{
				Rankings: deps.Rankings,
			},
			Logger: deps.Logger,
		},
		Recalculator: recalculator,
	}
}

func NewInMemoryModule(rankings []entities.Ranking, items []entities.RankingItem, logger *slog.Logger) Module {
	store := memory.NewStore(rankings, items)
	module := NewModule(Dependencies{
		Ledger:   store,
		Rankings: store,
		Clock:    store,
		IDGen:    store,
		Logger:   logger,
	})
	module.Store = store
	return module
}
