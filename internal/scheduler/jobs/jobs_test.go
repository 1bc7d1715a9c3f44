package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/pipeline"
	"github.com/wonny/boardheat/pkg/logger"
	"github.com/wonny/boardheat/pkg/redis"
)

var fixedNow = time.Date(2026, 1, 8, 18, 30, 0, 0, time.UTC)

type fakeResumer struct {
	target time.Time
	err    error
}

func (f *fakeResumer) Resume(_ context.Context, target time.Time) ([]*pipeline.RunResult, error) {
	f.target = target
	if f.err != nil {
		return nil, f.err
	}
	return []*pipeline.RunResult{{Date: target, Success: true, Signals: 3}}, nil
}

func TestBoardHeatJob(t *testing.T) {
	r := &fakeResumer{}
	job := NewBoardHeatJob(r, "0 30 18 * * 1-5", logger.Nop())
	job.now = func() time.Time { return fixedNow }

	assert.Equal(t, "board_heat_daily", job.Name())
	assert.Equal(t, "0 30 18 * * 1-5", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC), r.target)

	r.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))
}

type fakeOutliers struct {
	steadyErr error
}

func (f *fakeOutliers) RankJump(_ context.Context, date time.Time) (*contracts.OutlierResult, error) {
	return &contracts.OutlierResult{
		Kind:    contracts.OutlierRankJump,
		Date:    date,
		Signals: []contracts.OutlierSignal{{Code: "005930", Improvement: 120, PassesThreshold: true}},
	}, nil
}

func (f *fakeOutliers) SteadyRise(_ context.Context, date time.Time) (*contracts.OutlierResult, error) {
	if f.steadyErr != nil {
		return nil, f.steadyErr
	}
	return &contracts.OutlierResult{Kind: contracts.OutlierSteadyRise, Date: date}, nil
}

func TestOutlierWarmupJob(t *testing.T) {
	ctx := context.Background()
	cache := redis.NewCache(redis.Disabled(), "test", time.Minute)
	src := &fakeOutliers{steadyErr: fmt.Errorf("steady-rise: %w", contracts.ErrNoData)}

	job := NewOutlierWarmupJob(src, cache, "0 45 18 * * 1-5", logger.Nop())
	job.now = func() time.Time { return fixedNow }

	require.NoError(t, job.Run(ctx))

	var got contracts.OutlierResult
	found, err := cache.Get(ctx, redis.OutlierKey("rank-jump", "2026-01-08"), &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got.Signals, 1)
	assert.Equal(t, "005930", got.Signals[0].Code)

	found, err = cache.Get(ctx, redis.OutlierKey("steady-rise", "2026-01-08"), &got)
	require.NoError(t, err)
	assert.False(t, found)

	src.steadyErr = errors.New("query failed")
	assert.Error(t, job.Run(ctx))
}
