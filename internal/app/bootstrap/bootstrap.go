package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	proposalvoting "referendum/contexts/governance/proposal-voting"
	postgresadapter "referendum/contexts/governance/proposal-voting/adapters/postgres"
	workerapp "referendum/contexts/governance/proposal-voting/application/workers"
	"referendum/internal/platform/config"
	"referendum/internal/platform/db"
	"referendum/internal/platform/httpserver"
	"referendum/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres      *db.Postgres
	bus           *messaging.Kafka
	outboxRelay   workerapp.OutboxRelay
	windowWatcher workerapp.WindowWatcher
	votingClosed  workerapp.VotingClosedConsumer
	pollInterval  time.Duration
	logger        *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := proposalvoting.NewModule(proposalvoting.Dependencies{
		Proposals: repo,
		Ballots:   repo,
		Evidence:  repo,
		Outbox:    repo,
		Clock:     postgresadapter.SystemClock{},
		IDGen:     postgresadapter.UUIDGenerator{},
		Logger:    logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		bus:      kafka,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: 100,
			Disabled:  !cfg.EnableGovernanceOutboxRelay,
			Logger:    logger,
		},
		windowWatcher: workerapp.WindowWatcher{
			Proposals: repo,
			Ballots:   repo,
			Dedup:     repo,
			Outbox:    repo,
			Clock:     postgresadapter.SystemClock{},
			DedupTTL:  7 * 24 * time.Hour,
			Disabled:  !cfg.EnableGovernanceWindowWatcher,
			Logger:    logger,
		},
		votingClosed: workerapp.VotingClosedConsumer{
			Subscriber: kafka,
			Proposals:  repo,
			Ballots:    repo,
			Dedup:      repo,
			Clock:      postgresadapter.SystemClock{},
			DedupTTL:   7 * 24 * time.Hour,
			Logger:     logger,
		},
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.votingClosed.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.windowWatcher.RunOnce(ctx); err != nil {
			return err
		}
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.bus != nil {
		if err := w.bus.Close(); err != nil {
			return err
		}
	}
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
