package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/boardheat/internal/composer"
	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/heat"
	"github.com/wonny/boardheat/internal/marketdata"
	"github.com/wonny/boardheat/internal/outlier"
	"github.com/wonny/boardheat/internal/pipeline"
	"github.com/wonny/boardheat/internal/registry"
	"github.com/wonny/boardheat/internal/resultstore"
	"github.com/wonny/boardheat/internal/scoringconfig"
	"github.com/wonny/boardheat/internal/snapshot"
	"github.com/wonny/boardheat/pkg/config"
	"github.com/wonny/boardheat/pkg/database"
	"github.com/wonny/boardheat/pkg/logger"
	"github.com/wonny/boardheat/pkg/redis"
)

// app wires the engine once per command
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg *config.Config
	log *logger.Logger

	db    *database.DB
	redis *redis.Client
	cache *redis.Cache

	scoring     *scoringconfig.Config
	scoringHash string
	overrides   *scoringconfig.PgKVStore

	results  *resultstore.PgStore
	stocks   *marketdata.PgRepository
	registry *registry.Builder

	aggregator *heat.Aggregator
	ranking    *heat.RankingService
	outliers   *outlier.Service
	pipeline   *pipeline.Pipeline
}

// newApp loads config, connects storage and builds every service
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if scoringPath != "" {
		cfg.Engine.ScoringConfigPath = scoringPath
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Connect to redis (비활성이면 프로세스 내 캐시만 사용)
	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, using in-process cache only")
		rdb = redis.Disabled()
	}

	// 5. Scoring config (YAML + engine.config_kv)
	overrides := scoringconfig.NewPgKVStore(db.Pool)
	scoring, _, err := scoringconfig.Load(ctx, cfg.Engine.ScoringConfigPath, overrides)
	if err != nil {
		db.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("load scoring config: %w", err)
	}
	for _, w := range scoringconfig.Warn(scoring) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	// 6. Repositories
	regRepo := registry.NewRepository(db.Pool)
	results := resultstore.NewPgStore(db.Pool)
	stocks := marketdata.NewPgRepository(db.Pool)

	// 7. Services
	builder := registry.NewBuilder(regRepo, regRepo, log)
	resolver := snapshot.NewResolver(snapshot.NewPgStore(db.Pool), scoring.Snapshot.MaxLookbackDays)
	agg := heat.NewAggregator(resolver, cfg.Engine.Workers, log)
	comp := composer.New(scoring.Composer, log)
	cache := redis.NewCache(rdb, "boardheat", cfg.API.CacheTTL)

	p, err := pipeline.New(builder, agg, comp, stocks, results, scoring, log)
	if err != nil {
		db.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	p.WithCache(cache)

	thematicOnly := scoring.Registry.ThematicOnly
	boardSets := func(ctx context.Context, date time.Time) (*contracts.BoardSet, error) {
		return builder.Build(ctx, date, registry.Options{ThematicOnly: thematicOnly})
	}

	return &app{
		cfg:         cfg,
		log:         log,
		db:          db,
		redis:       rdb,
		cache:       cache,
		scoring:     scoring,
		scoringHash: p.ConfigHash(),
		overrides:   overrides,
		results:     results,
		stocks:      stocks,
		registry:    builder,
		aggregator:  agg,
		ranking:     heat.NewRankingService(results, agg, boardSets, log),
		outliers:    outlier.NewService(stocks, outlier.NewDetector(scoring.Outlier, log)),
		pipeline:    p,
	}, nil
}

// close releases storage connections
func (a *app) close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
	a.db.Close()
}

// parseDateFlag parses YYYY-MM-DD, defaulting to today
func parseDateFlag(raw string) (time.Time, error) {
	if raw == "" {
		return contracts.TradeDate(time.Now()), nil
	}
	return contracts.ParseTradeDate(raw)
}
