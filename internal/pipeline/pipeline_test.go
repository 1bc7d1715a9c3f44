package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/boardheat/internal/composer"
	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/heat"
	"github.com/wonny/boardheat/internal/marketdata"
	"github.com/wonny/boardheat/internal/registry"
	"github.com/wonny/boardheat/internal/resultstore"
	"github.com/wonny/boardheat/internal/scoringconfig"
	"github.com/wonny/boardheat/internal/snapshot"
	"github.com/wonny/boardheat/pkg/logger"
)

func day(d int) time.Time {
	return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
}

func id(v int64) *int64 { return &v }

type recordingCache struct {
	dates []string
}

func (r *recordingCache) InvalidateDate(_ context.Context, date string) error {
	r.dates = append(r.dates, date)
	return nil
}

type failingStocks struct {
	contracts.StockDailyRepository
}

func (failingStocks) ListByDate(context.Context, time.Time) ([]contracts.StockDaily, error) {
	return nil, errors.New("stock source unavailable")
}

type fixture struct {
	pipeline *Pipeline
	results  *resultstore.MemoryStore
	stocks   *marketdata.MemoryRepository
	cache    *recordingCache
}

func member(code string, board int64, d, rank int) contracts.MembershipRow {
	return contracts.MembershipRow{StockCode: code, BoardID: board, Date: day(d), Rank: rank}
}

func newFixture(t *testing.T, wrap func(contracts.StockDailyRepository) contracts.StockDailyRepository) fixture {
	t.Helper()
	log := logger.Nop()
	cfg := scoringconfig.Default()

	boards := &registry.MemoryRepository{
		Providers: []contracts.Provider{{Code: "ths", Name: "THS", IsActive: true}},
		Boards: []contracts.Board{
			{ID: 1, ProviderCode: "ths", Code: "881121", Name: "반도체", Type: contracts.BoardTypeIndustry, IsActive: true},
			{ID: 2, ProviderCode: "ths", Code: "885001", Name: "AI", Type: contracts.BoardTypeConcept, IsActive: true},
			{ID: 3, ProviderCode: "ths", Code: "885002", Name: "ETF 테마", Type: contracts.BoardTypeConcept, IsActive: true},
			{ID: 4, ProviderCode: "ths", Code: "883300", Name: "KOSPI200", Type: contracts.BoardTypeConcept, IsActive: true, IsBroadIndex: true},
		},
		Rules: []contracts.BlacklistRule{{ID: 1, Keyword: "ETF", Level: contracts.RuleBlack, IsActive: true}},
	}

	snaps := snapshot.NewMemoryStore()
	snaps.Add(
		member("A", 1, 8, 1), member("B", 1, 8, 2),
		member("C", 2, 8, 1), member("A", 2, 8, 2),
		member("A", 3, 8, 1),
		member("B", 4, 8, 1),
	)

	stocks := marketdata.NewMemoryRepository()
	for _, d := range []int{6, 7, 8} {
		stocks.Add(
			contracts.StockDaily{Code: "A", Date: day(d), MarketRank: 10, TotalScore: 10, PrimaryIndustryBoardID: id(1)},
			contracts.StockDaily{Code: "B", Date: day(d), MarketRank: 20, TotalScore: 5, PrimaryIndustryBoardID: id(3)},
			contracts.StockDaily{Code: "C", Date: day(d), MarketRank: 30, TotalScore: 1},
		)
	}

	var src contracts.StockDailyRepository = stocks
	if wrap != nil {
		src = wrap(stocks)
	}

	results := resultstore.NewMemoryStore()
	cache := &recordingCache{}
	p, err := New(
		registry.NewBuilder(boards, boards, log),
		heat.NewAggregator(snapshot.NewResolver(snaps, cfg.Snapshot.MaxLookbackDays), 2, log),
		composer.New(cfg.Composer, log),
		src,
		results,
		cfg,
		log,
	)
	require.NoError(t, err)
	p.WithCache(cache)

	return fixture{pipeline: p, results: results, stocks: stocks, cache: cache}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)

	res, err := fx.pipeline.Run(ctx, day(8).Add(18*time.Hour))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.ConfigHash, 64)
	assert.Equal(t, contracts.PipelineStages(), res.CompletedStages)
	assert.Equal(t, 2, res.Boards)
	assert.Equal(t, 3, res.Signals)
	assert.Equal(t, []string{"2026-01-08"}, fx.cache.dates)

	heatRows, err := fx.results.BoardHeatByDate(ctx, day(8))
	require.NoError(t, err)
	require.Len(t, heatRows, 2)
	assert.Equal(t, int64(1), heatRows[0].BoardID)
	assert.Equal(t, int64(2), heatRows[1].BoardID)

	signals, err := fx.results.StockSignals(ctx, day(8), []string{"A", "B", "C"})
	require.NoError(t, err)
	require.Len(t, signals, 3)

	for _, s := range signals {
		if s.DriverBoardID != nil {
			assert.NotContains(t, []int64{3, 4}, *s.DriverBoardID, s.StockCode)
		}
		if s.IndustryBoardID != nil {
			assert.NotContains(t, []int64{3, 4}, *s.IndustryBoardID, s.StockCode)
		}
		for _, e := range s.TopBoards.Entries {
			assert.NotContains(t, []int64{3, 4}, e.BoardID, s.StockCode)
		}
		require.NotNil(t, s.SnapDate)
		assert.False(t, s.SnapDate.After(s.Date))
	}

	byCode := map[string]contracts.StockBoardSignal{}
	for _, s := range signals {
		byCode[s.StockCode] = s
	}
	assert.Equal(t, 2, byCode["A"].BoardCount)
	assert.Nil(t, byCode["B"].IndustryBoardID)
	assert.Equal(t, contracts.IndustryUnknown, byCode["B"].IndustryStatus)
	assert.Equal(t, 1, byCode["B"].BoardCount, "broad index and BLACK boards are dropped")

	for _, table := range []string{contracts.TableBoardHeat, contracts.TableStockSignal} {
		last, ok, err := fx.results.LastComputed(ctx, table)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, day(8), last)
	}
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)

	snapshotJSON := func() string {
		signals, err := fx.results.StockSignals(ctx, day(8), []string{"A", "B", "C"})
		require.NoError(t, err)
		heatRows, err := fx.results.BoardHeatByDate(ctx, day(8))
		require.NoError(t, err)
		data, err := json.Marshal(map[string]interface{}{"heat": heatRows, "signals": signals})
		require.NoError(t, err)
		return string(data)
	}

	_, err := fx.pipeline.Run(ctx, day(8))
	require.NoError(t, err)
	first := snapshotJSON()

	_, err = fx.pipeline.Run(ctx, day(8))
	require.NoError(t, err)
	assert.Equal(t, first, snapshotJSON())
}

func TestRun_StageFailure(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, func(r contracts.StockDailyRepository) contracts.StockDailyRepository {
		return failingStocks{r}
	})

	res, err := fx.pipeline.Run(ctx, day(8))
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "SIGNALS")
	assert.Equal(t, []contracts.Stage{contracts.StageRegistry, contracts.StageHeat}, res.CompletedStages)
	require.Len(t, res.Stages, 3)
	assert.False(t, res.Stages[2].Success)

	// 히트는 커밋됐지만 시그널은 미완료 → resume 대상
	_, ok, err := fx.results.LastComputed(ctx, contracts.TableStockSignal)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = fx.results.LastComputed(ctx, contracts.TableBoardHeat)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, fx.cache.dates)
}

func TestResume(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, nil)

	_, err := fx.pipeline.Run(ctx, day(6))
	require.NoError(t, err)

	results, err := fx.pipeline.Resume(ctx, day(8))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, day(7), results[0].Date)
	assert.Equal(t, day(8), results[1].Date)
	assert.Zero(t, results[0].Boards, "snapshot of a later date is never used")

	results, err = fx.pipeline.Resume(ctx, day(8))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestResume_NoRunState(t *testing.T) {
	fx := newFixture(t, nil)

	results, err := fx.pipeline.Resume(context.Background(), day(8))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, day(8), results[0].Date)
}

func TestRunRange_InvalidRange(t *testing.T) {
	fx := newFixture(t, nil)
	_, err := fx.pipeline.RunRange(context.Background(), day(8), day(6))
	assert.Error(t, err)
}
