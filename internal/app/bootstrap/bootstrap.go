package bootstrap

import (
	"context"
	"log/slog"
	"time"

	pollvoting "cinetrack/contexts/community-engagement/poll-voting"
	pollpostgres "cinetrack/contexts/community-engagement/poll-voting/adapters/postgres"
	pollworkers "cinetrack/contexts/community-engagement/poll-voting/application/workers"
	pollports "cinetrack/contexts/community-engagement/poll-voting/ports"
	rankingengine "cinetrack/contexts/community-engagement/ranking-engine"
	rankingpostgres "cinetrack/contexts/community-engagement/ranking-engine/adapters/postgres"
	rankingworkers "cinetrack/contexts/community-engagement/ranking-engine/application/workers"
	rankingports "cinetrack/contexts/community-engagement/ranking-engine/ports"
	"cinetrack/internal/platform/config"
	"cinetrack/internal/platform/db"
	"cinetrack/internal/platform/httpserver"
	"cinetrack/internal/platform/messaging"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	// worker is set only with in-memory stores, where the relays must share
	// the API process to see its outbox.
	worker *WorkerApp
	bus    *messaging.Kafka
	wiring wiring
	logger *slog.Logger
}

type WorkerApp struct {
	postgres      *db.Postgres
	pollRelay     pollworkers.OutboxRelay
	rankingRelay  rankingworkers.OutboxRelay
	scoreConsumer *rankingworkers.ScoreChangedConsumer
	pollInterval  time.Duration
	logger        *slog.Logger
}

// wiring is everything both processes build from one config.
type wiring struct {
	polls         pollvoting.Module
	rankings      rankingengine.Module
	pollOutbox    pollports.OutboxRepository
	rankingOutbox rankingports.OutboxRepository
	rankingDedup  rankingports.EventDedupStore
	pollClock     pollports.Clock
	rankingClock  rankingports.Clock
	postgres      *db.Postgres
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return buildAPI(cfg, slog.Default().With("service", cfg.ServiceName, "process", "api"))
}

func buildAPI(cfg config.Config, logger *slog.Logger) (*APIApp, error) {
	w, err := buildWiring(cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &APIApp{
		server:   httpserver.New(w.polls, w.rankings, logger, normalizeAddr(cfg.HTTPPort), cfg.CORSOrigins),
		postgres: w.postgres,
		wiring:   w,
		logger:   logger,
	}
	if cfg.UseInMemoryStore {
		bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
		if err != nil {
			return nil, err
		}
		app.bus = bus
		app.worker = newWorkerApp(cfg, w, bus, logger)
	}
	return app, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if cfg.UseInMemoryStore {
		logger.Warn("worker started with in-memory stores; it will only see its own empty outbox",
			"event", "bootstrap_worker_in_memory",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}

	w, err := buildWiring(cfg, logger)
	if err != nil {
		return nil, err
	}
	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}
	return newWorkerApp(cfg, w, bus, logger), nil
}

func buildWiring(cfg config.Config, logger *slog.Logger) (wiring, error) {
	if cfg.UseInMemoryStore {
		polls := pollvoting.NewInMemoryModule(nil, cfg.PollRequireActive, logger)
		rankings := rankingengine.NewInMemoryModule(nil, nil, logger)
		return wiring{
			polls:         polls,
			rankings:      rankings,
			pollOutbox:    polls.Store,
			rankingOutbox: rankings.Store,
			rankingDedup:  rankings.Store,
			pollClock:     polls.Store,
			rankingClock:  rankings.Store,
		}, nil
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return wiring{}, err
	}

	pollRepo := pollpostgres.NewRepository(pg.DB, logger)
	polls := pollvoting.NewModule(pollvoting.Dependencies{
		Ledger:            pollRepo,
		Polls:             pollRepo,
		Clock:             pollpostgres.SystemClock{},
		IDGen:             pollpostgres.UUIDGenerator{},
		RequireActivePoll: cfg.PollRequireActive,
		Logger:            logger,
	})

	rankingRepo := rankingpostgres.NewRepository(pg.DB, logger)
	rankings := rankingengine.NewModule(rankingengine.Dependencies{
		Ledger:   rankingRepo,
		Rankings: rankingRepo,
		Clock:    rankingpostgres.SystemClock{},
		IDGen:    rankingpostgres.UUIDGenerator{},
		Logger:   logger,
	})

	return wiring{
		polls:         polls,
		rankings:      rankings,
		pollOutbox:    pollRepo,
		rankingOutbox: rankingRepo,
		rankingDedup:  rankingRepo,
		pollClock:     pollpostgres.SystemClock{},
		rankingClock:  rankingpostgres.SystemClock{},
		postgres:      pg,
	}, nil
}

func newWorkerApp(cfg config.Config, w wiring, bus *messaging.Kafka, logger *slog.Logger) *WorkerApp {
	rankingBus := rankingEventBus{bus: bus}
	app := &WorkerApp{
		postgres: w.postgres,
		pollRelay: pollworkers.OutboxRelay{
			Outbox:    w.pollOutbox,
			Publisher: pollEventPublisher{bus: bus},
			Clock:     w.pollClock,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		rankingRelay: rankingworkers.OutboxRelay{
			Outbox:    w.rankingOutbox,
			Publisher: rankingBus,
			Clock:     w.rankingClock,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}
	if cfg.EnableRankingScoreConsumer {
		app.scoreConsumer = &rankingworkers.ScoreChangedConsumer{
			Subscriber:    rankingBus,
			Dedup:         w.rankingDedup,
			Recalculator:  w.rankings.Recalculator,
			Clock:         w.rankingClock,
			ConsumerGroup: cfg.RankingScoreConsumerGroup,
			DedupTTL:      cfg.RankingScoreDedupTTL,
			Logger:        logger,
		}
	}
	return app
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"embedded_worker", a.worker != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Start(gctx)
	})
	if a.worker != nil {
		g.Go(func() error {
			return a.worker.Run(gctx)
		})
	}
	return g.Wait()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

// Run starts the score consumer and drives both outbox relays until ctx is
// cancelled. A failed relay cycle is logged and retried on the next tick.
func (w *WorkerApp) Run(ctx context.Context) error {
	if w.scoreConsumer != nil {
		if err := w.scoreConsumer.Start(ctx); err != nil {
			return err
		}
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"score_consumer", w.scoreConsumer != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.loop(gctx, "poll", w.pollRelay.RunOnce)
	})
	g.Go(func() error {
		return w.loop(gctx, "ranking", w.rankingRelay.RunOnce)
	})
	return g.Wait()
}

// RunOnce runs a single cycle of both relays.
func (w *WorkerApp) RunOnce(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.pollRelay.RunOnce(gctx) })
	g.Go(func() error { return w.rankingRelay.RunOnce(gctx) })
	return g.Wait()
}

func (w *WorkerApp) loop(ctx context.Context, relay string, runOnce func(context.Context) error) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if err := runOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("outbox relay cycle failed",
				"event", "bootstrap_relay_cycle_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"relay", relay,
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}
