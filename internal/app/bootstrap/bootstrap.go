package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	membership "societyhub/contexts/identity-access/membership-service"
	membershipmemory "societyhub/contexts/identity-access/membership-service/adapters/memory"
	membershippostgres "societyhub/contexts/identity-access/membership-service/adapters/postgres"
	membershipredis "societyhub/contexts/identity-access/membership-service/adapters/redis"
	membershipports "societyhub/contexts/identity-access/membership-service/ports"
	governanceservice "societyhub/contexts/society-redevelopment/governance-service"
	postgresadapter "societyhub/contexts/society-redevelopment/governance-service/adapters/postgres"
	"societyhub/contexts/society-redevelopment/governance-service/application/commands"
	"societyhub/contexts/society-redevelopment/governance-service/application/queries"
	workerapp "societyhub/contexts/society-redevelopment/governance-service/application/workers"
	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	"societyhub/contexts/society-redevelopment/governance-service/ports"
	contractsv1 "societyhub/contracts/gen/events/v1"
	"societyhub/internal/platform/auth"
	"societyhub/internal/platform/config"
	"societyhub/internal/platform/db"
	"societyhub/internal/platform/httpserver"
	"societyhub/internal/platform/messaging"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const moduleName = "internal/app/bootstrap"

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	redis    *redis.Client
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  workerapp.OutboxRelay
	votingCloser workerapp.VotingCloser
	bus          *messaging.Bus
	nats         *messaging.NATSPublisher
	enableRelay  bool
	enableCloser bool
	pollInterval time.Duration
	logger       *slog.Logger
}

func loadConfig(configPath string) (config.Config, error) {
	if strings.TrimSpace(configPath) != "" {
		return config.LoadWithFile(configPath)
	}
	return config.Load()
}

func connect(cfg config.Config) (*db.Postgres, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	return db.Connect(context.Background(), db.Options{
		DSN:             cfg.PostgresDSN,
		MaxOpenConns:    cfg.PostgresMaxOpenConns,
		MaxIdleConns:    cfg.PostgresMaxIdleConns,
		ConnMaxLifetime: cfg.PostgresConnMaxLifetime,
	})
}

func BuildAPI(configPath string) (*APIApp, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	pg, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	var (
		cache       membershipports.MembershipCache = membershipmemory.NewStore()
		redisClient *redis.Client
	)
	if cfg.EnableRedisCache {
		redisClient = membershipredis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cache = membershipredis.NewCache(redisClient, "membership")
	}
	membershipModule := membership.NewModule(membership.Dependencies{
		Repository: membershippostgres.NewRepository(pg.DB, logger),
		Cache:      cache,
		Clock:      postgresadapter.SystemClock{},
		IDGen:      postgresadapter.UUIDGenerator{},
		CacheTTL:   cfg.MembershipCacheTTL,
		Logger:     logger,
	})

	repo := postgresadapter.NewRepository(pg.DB, logger)
	governanceModule := governanceservice.NewModule(governanceservice.Dependencies{
		Projects:               repo,
		Proposals:              repo,
		Selections:             repo,
		Ballots:                repo,
		Membership:             membershipModule.Oracle,
		Notifications:          repo,
		Clock:                  postgresadapter.SystemClock{},
		IDGen:                  postgresadapter.UUIDGenerator{},
		ScoreWeights:           scoreWeights(cfg),
		DefaultMinimumApproval: cfg.Governance.DefaultMinimumApproval,
		Logger:                 logger,
	})

	server := httpserver.New(governanceModule, membershipModule, httpserver.Options{
		Authenticator:  auth.Authenticator{Tokens: auth.NewTokenManager(cfg.AuthJWTSecret)},
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustedProxies: cfg.TrustedProxies,
	}, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		redis:    redisClient,
		logger:   logger,
	}, nil
}

func BuildWorker(configPath string) (*WorkerApp, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	pg, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	app := &WorkerApp{
		postgres:     pg,
		enableRelay:  cfg.EnableOutboxRelay,
		enableCloser: cfg.EnableVotingCloser,
		pollInterval: cfg.Governance.PollInterval,
		logger:       logger,
	}

	var publisher ports.EventPublisher
	if cfg.EnableNATS {
		natsPublisher, err := messaging.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			_ = pg.Close()
			return nil, err
		}
		app.nats = natsPublisher
		publisher = natsPublisher
	} else {
		app.bus = messaging.NewBus(logger)
		publisher = app.bus
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	membershipOracle := membership.NewModule(membership.Dependencies{
		Repository: membershippostgres.NewRepository(pg.DB, logger),
		Clock:      postgresadapter.SystemClock{},
		IDGen:      postgresadapter.UUIDGenerator{},
		Logger:     logger,
	}).Oracle

	app.outboxRelay = workerapp.OutboxRelay{
		Outbox:    repo,
		Publisher: publisher,
		Clock:     postgresadapter.SystemClock{},
		BatchSize: cfg.Governance.RelayBatchSize,
		Logger:    logger,
	}
	app.votingCloser = workerapp.VotingCloser{
		Projects: repo,
		Statistics: queries.StatisticsUseCase{
			Projects:   repo,
			Ballots:    repo,
			Membership: membershipOracle,
			Logger:     logger,
		},
		Dedup:         repo,
		Notifications: repo,
		Clock:         postgresadapter.SystemClock{},
		BatchSize:     cfg.Governance.CloserBatchSize,
		DedupTTL:      cfg.Governance.EventDedupTTL,
		Logger:        logger,
	}
	return app, nil
}

// Migrate applies the governance and membership schemas.
func Migrate(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "migrate")
	pg, err := connect(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = pg.Close() }()

	if err := postgresadapter.NewRepository(pg.DB, logger).Migrate(ctx); err != nil {
		return err
	}
	return membershippostgres.NewRepository(pg.DB, logger).Migrate(ctx)
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", moduleName,
		"layer", "platform",
	)
	errs := make(chan error, 1)
	go func() {
		errs <- a.server.Start()
	}()
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	}
}

func (a *APIApp) Close() error {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

// Run drives the relay and the closer on independent tickers. A failing cycle
// is logged and retried on the next tick.
func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", moduleName,
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"outbox_relay", w.enableRelay,
		"voting_closer", w.enableCloser,
	)

	group, groupCtx := errgroup.WithContext(ctx)
	if w.bus != nil {
		for _, topic := range commands.NotificationEvents {
			if err := w.bus.Subscribe(groupCtx, topic, "notification-log", w.logDelivery); err != nil {
				return err
			}
		}
	}
	if w.enableRelay {
		group.Go(func() error {
			return w.loop(groupCtx, "outbox_relay", w.outboxRelay.RunOnce)
		})
	}
	if w.enableCloser {
		group.Go(func() error {
			return w.loop(groupCtx, "voting_closer", w.votingCloser.RunOnce)
		})
	}
	return group.Wait()
}

func (w *WorkerApp) loop(ctx context.Context, name string, runOnce func(context.Context) (int, error)) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		if _, err := runOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("worker cycle failed",
				"event", "bootstrap_worker_cycle_failed",
				"module", moduleName,
				"layer", "platform",
				"job", name,
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

func (w *WorkerApp) logDelivery(_ context.Context, event contractsv1.Envelope) error {
	w.logger.Info("notification delivered",
		"event", "bootstrap_notification_delivered",
		"module", moduleName,
		"layer", "platform",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"recipient_id", event.RecipientID,
		"project_id", event.PartitionKey,
	)
	return nil
}

func (w *WorkerApp) Close() error {
	if w.nats != nil {
		_ = w.nats.Close()
	}
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func scoreWeights(cfg config.Config) entities.ScoreWeights {
	weights := cfg.Governance.ScoreWeights
	return entities.ScoreWeights{
		Technical: weights.Technical,
		Financial: weights.Financial,
		Timeline:  weights.Timeline,
	}
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
