package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/boardheat/internal/composer"
	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/heat"
	"github.com/wonny/boardheat/internal/registry"
	"github.com/wonny/boardheat/internal/scoringconfig"
	"github.com/wonny/boardheat/pkg/logger"
)

// DateInvalidator drops read-path cache entries for a recomputed date
type DateInvalidator interface {
	InvalidateDate(ctx context.Context, date string) error
}

// Pipeline runs Registry → Heat → (commit) → Signals → (commit) for one trade date
// ⭐ SSOT: 일별 파이프라인 조율은 여기서만
type Pipeline struct {
	registry   *registry.Builder
	aggregator *heat.Aggregator
	composer   *composer.Composer

	stocks  contracts.StockDailyRepository
	results contracts.ResultStore
	cache   DateInvalidator

	cfg        *scoringconfig.Config
	configHash string
	params     heat.Params

	logger *logger.Logger
}

// RunResult holds the results of one date's run
type RunResult struct {
	RunID           string                  `json:"run_id"`
	Date            time.Time               `json:"date"`
	ConfigHash      string                  `json:"config_hash"`
	Success         bool                    `json:"success"`
	Error           string                  `json:"error,omitempty"`
	CompletedStages []contracts.Stage       `json:"completed_stages"`
	Stages          []contracts.StageResult `json:"stages"`
	Boards          int                     `json:"boards"`
	Signals         int                     `json:"signals"`
	Duration        time.Duration           `json:"duration"`
}

// New creates a Pipeline. cfg must already be validated.
func New(
	reg *registry.Builder,
	agg *heat.Aggregator,
	comp *composer.Composer,
	stocks contracts.StockDailyRepository,
	results contracts.ResultStore,
	cfg *scoringconfig.Config,
	log *logger.Logger,
) (*Pipeline, error) {
	metric, err := contracts.ParseHeatMetric(cfg.Heat.Metric)
	if err != nil {
		return nil, err
	}
	hash, err := scoringconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash scoring config: %w", err)
	}

	return &Pipeline{
		registry:   reg,
		aggregator: agg,
		composer:   comp,
		stocks:     stocks,
		results:    results,
		cfg:        cfg,
		configHash: hash,
		params:     heat.Params{Metric: metric, K: cfg.Heat.K},
		logger:     log.WithComponent("pipeline"),
	}, nil
}

// WithCache sets the read-path cache invalidated after each committed date
func (p *Pipeline) WithCache(c DateInvalidator) *Pipeline {
	p.cache = c
	return p
}

// ConfigHash returns the hash of the scoring config the pipeline runs with
func (p *Pipeline) ConfigHash() string {
	return p.configHash
}

// Run computes and commits heat and signals for one trade date.
// Re-running a date overwrites its rows with identical values.
func (p *Pipeline) Run(ctx context.Context, date time.Time) (*RunResult, error) {
	startTime := time.Now()
	date = contracts.TradeDate(date)

	result := &RunResult{
		RunID:           uuid.NewString(),
		Date:            date,
		ConfigHash:      p.configHash,
		CompletedStages: make([]contracts.Stage, 0, len(contracts.PipelineStages())),
	}
	log := p.logger.WithFields(map[string]interface{}{
		"run_id": result.RunID,
		"date":   contracts.FormatDate(date),
	})
	log.WithFields(map[string]interface{}{
		"metric":      p.params.Metric,
		"k":           p.params.K,
		"config_hash": p.configHash,
	}).Info("Starting pipeline run")

	fail := func(stage contracts.Stage, err error) (*RunResult, error) {
		result.Error = fmt.Sprintf("%s failed: %v", stage, err)
		result.Duration = time.Since(startTime)
		log.WithError(err).WithField("stage", stage.String()).Error("pipeline run failed")
		return result, fmt.Errorf("%s %s: %w", stage, contracts.FormatDate(date), err)
	}

	// REGISTRY
	var set *contracts.BoardSet
	err := p.stage(result, contracts.StageRegistry, func(sr *contracts.StageResult) error {
		var err error
		set, err = p.registry.Build(ctx, date, registry.Options{ThematicOnly: p.cfg.Registry.ThematicOnly})
		if err != nil {
			return err
		}
		sr.InputCount = set.Count() + len(set.Excluded())
		sr.OutputCount = set.Count()
		sr.Metadata = map[string]interface{}{"gray": set.GrayCount()}
		return nil
	})
	if err != nil {
		return fail(contracts.StageRegistry, err)
	}

	// HEAT: 전 보드 집계 → 커밋 → 완료 표시
	var agg *heat.Result
	err = p.stage(result, contracts.StageHeat, func(sr *contracts.StageResult) error {
		var err error
		agg, err = p.aggregator.Aggregate(ctx, set, date, p.params)
		if err != nil {
			return err
		}
		if err := p.results.UpsertBoardHeat(ctx, date, agg.Rows); err != nil {
			return fmt.Errorf("upsert board heat: %w", err)
		}
		if err := p.results.MarkComputed(ctx, contracts.TableBoardHeat, date); err != nil {
			return fmt.Errorf("mark heat computed: %w", err)
		}
		sr.InputCount = set.Count()
		sr.OutputCount = len(agg.Rows)
		sr.Metadata = map[string]interface{}{
			"skipped":      len(agg.Skipped),
			"fallbacks":    agg.Fallbacks,
			"invalid_rows": agg.InvalidRows,
		}
		return nil
	})
	if err != nil {
		return fail(contracts.StageHeat, err)
	}
	result.Boards = len(agg.Rows)

	// SIGNALS: 커밋된 히트를 읽기 경로로 재조회한 뒤 합성
	err = p.stage(result, contracts.StageSignals, func(sr *contracts.StageResult) error {
		committed, err := p.results.BoardHeatByDate(ctx, date)
		if err != nil {
			return fmt.Errorf("read committed heat: %w", err)
		}
		stocks, err := p.stocks.ListByDate(ctx, date)
		if err != nil {
			return fmt.Errorf("list stocks: %w", err)
		}

		signals, err := p.composer.Compose(ctx, composer.Input{
			Date:        date,
			Stocks:      stocks,
			Heat:        committed,
			Memberships: agg.StockIndex(),
			Boards:      set,
		})
		if err != nil {
			return err
		}
		if err := p.results.UpsertStockSignals(ctx, date, signals); err != nil {
			return fmt.Errorf("upsert stock signals: %w", err)
		}
		if err := p.results.MarkComputed(ctx, contracts.TableStockSignal, date); err != nil {
			return fmt.Errorf("mark signals computed: %w", err)
		}
		sr.InputCount = len(stocks)
		sr.OutputCount = len(signals)
		result.Signals = len(signals)
		return nil
	})
	if err != nil {
		return fail(contracts.StageSignals, err)
	}

	if p.cache != nil {
		if err := p.cache.InvalidateDate(ctx, contracts.FormatDate(date)); err != nil {
			// 캐시 실패는 결과 커밋에 영향 없음 (TTL 만료로 회복)
			log.WithError(err).Warn("cache invalidation failed")
		}
	}

	result.Success = true
	result.Duration = time.Since(startTime)

	log.WithFields(map[string]interface{}{
		"duration": result.Duration.Seconds(),
		"boards":   result.Boards,
		"signals":  result.Signals,
	}).Info("Pipeline run completed successfully")

	return result, nil
}

// stage runs fn and appends its StageResult
func (p *Pipeline) stage(result *RunResult, stage contracts.Stage, fn func(sr *contracts.StageResult) error) error {
	start := time.Now()
	sr := contracts.StageResult{Stage: stage}

	err := fn(&sr)
	sr.DurationMs = time.Since(start).Milliseconds()
	sr.Success = err == nil
	if err != nil {
		sr.Error = err.Error()
	}
	result.Stages = append(result.Stages, sr)
	if err == nil {
		result.CompletedStages = append(result.CompletedStages, stage)
	}
	return err
}
