package pollvoting

import (
	"log/slog"

	httpadapter "cinetrack/contexts/community-engagement/poll-voting/adapters/http"
	"cinetrack/contexts/community-engagement/poll-voting/adapters/memory"
	"cinetrack/contexts/community-engagement/poll-voting/application/commands"
	"cinetrack/contexts/community-engagement/poll-voting/application/queries"
	"cinetrack/contexts/community-engagement/poll-voting/domain/entities"
	"cinetrack/contexts/community-engagement/poll-voting/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Ledger            ports.VoteLedger
	Polls             ports.PollRepository
	Clock             ports.Clock
	IDGen             ports.IDGenerator
	RequireActivePoll bool
	Logger            *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			Votes: commands.VoteUseCase{
				Ledger:            deps.Ledger,
				Clock:             deps.Clock,
				IDGen:             deps.IDGen,
				RequireActivePoll: deps.RequireActivePoll,
				Logger:            deps.Logger,
			},
			Admin: commands.PollAdminUseCase{
				Polls:  deps.Polls,
				Clock:  deps.Clock,
				IDGen:  deps.IDGen,
				Logger: deps.Logger,
			},
			Polls: queries.PollQueryUseCase{
				Polls: deps.Polls,
			},
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Poll, requireActivePoll bool, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Ledger:            store,
		Polls:             store,
		Clock:             store,
		IDGen:             store,
		RequireActivePoll: requireActivePoll,
		Logger:            logger,
	})
	module.Store = store
	return module
}
