package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/pkg/logger"
	"github.com/wonny/boardheat/pkg/redis"
)

// OutlierSource produces the two outlier views for a date
type OutlierSource interface {
	RankJump(ctx context.Context, date time.Time) (*contracts.OutlierResult, error)
	SteadyRise(ctx context.Context, date time.Time) (*contracts.OutlierResult, error)
}

// OutlierWarmupJob precomputes the day's outlier views into the read-path cache
type OutlierWarmupJob struct {
	source   OutlierSource
	cache    *redis.Cache
	schedule string
	now      func() time.Time
	logger   *logger.Logger
}

// NewOutlierWarmupJob creates a new outlier warmup job
func NewOutlierWarmupJob(source OutlierSource, cache *redis.Cache, schedule string, log *logger.Logger) *OutlierWarmupJob {
	return &OutlierWarmupJob{
		source:   source,
		cache:    cache,
		schedule: schedule,
		now:      time.Now,
		logger:   log.WithComponent("jobs.outlier_warmup"),
	}
}

// Name returns the job name
func (j *OutlierWarmupJob) Name() string {
	return "outlier_warmup"
}

// Schedule returns the cron schedule
func (j *OutlierWarmupJob) Schedule() string {
	return j.schedule
}

// Run computes rank-jump and steady-rise for today. 데이터 없는 날은 성공 처리
func (j *OutlierWarmupJob) Run(ctx context.Context) error {
	date := contracts.TradeDate(j.now())
	dateKey := contracts.FormatDate(date)

	views := []struct {
		kind contracts.OutlierKind
		fn   func(context.Context, time.Time) (*contracts.OutlierResult, error)
	}{
		{contracts.OutlierRankJump, j.source.RankJump},
		{contracts.OutlierSteadyRise, j.source.SteadyRise},
	}

	for _, v := range views {
		res, err := v.fn(ctx, date)
		if errors.Is(err, contracts.ErrNoData) {
			j.logger.WithFields(map[string]interface{}{
				"kind": string(v.kind),
				"date": dateKey,
			}).Info("No rank data, skipping warmup")
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", v.kind, err)
		}
		if err := j.cache.Set(ctx, redis.OutlierKey(string(v.kind), dateKey), res); err != nil {
			return fmt.Errorf("cache %s: %w", v.kind, err)
		}
	}

	return nil
}
