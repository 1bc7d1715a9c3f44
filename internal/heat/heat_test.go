package heat

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/resultstore"
	"github.com/wonny/boardheat/internal/snapshot"
	"github.com/wonny/boardheat/pkg/logger"
)

var tradeDate = time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return &v }

func rows(board int64, date time.Time, ranks ...int) []contracts.MembershipRow {
	out := make([]contracts.MembershipRow, 0, len(ranks))
	for i, r := range ranks {
		out = append(out, contracts.MembershipRow{
			StockCode: string(rune('A' + i)),
			BoardID:   board,
			Date:      date,
			Rank:      r,
		})
	}
	return out
}

func TestCompute_WorkedExample(t *testing.T) {
	members := rows(1, tradeDate, 1, 2, 50)

	s := Compute(members, 1.0)
	assert.Equal(t, 3, s.MemberCount)
	assert.InDelta(t, 1.52, s.B1, 1e-12)
	assert.InDelta(t, 1.52/3, s.B2, 1e-12)
	assert.InDelta(t, 0.507, s.B2, 1e-3)

	sharper := Compute(members, 1.618)
	assert.Less(t, sharper.B1, s.B1)
}

func TestCompute_Scores(t *testing.T) {
	members := []contracts.MembershipRow{
		{StockCode: "A", Rank: 1, Score: f(2)},
		{StockCode: "B", Rank: 2, Score: f(4)},
		{StockCode: "C", Rank: 3}, // score 없음 → 0
		{StockCode: "D", Rank: 0, Score: f(100)},
	}

	s := Compute(members, 1.0)
	assert.Equal(t, 3, s.MemberCount)
	assert.Equal(t, 1, s.Invalid)
	assert.InDelta(t, 6.0, s.C1, 1e-12)
	assert.InDelta(t, 2.0, s.C2, 1e-12)
	// population stddev of {2,4,0}
	assert.InDelta(t, math.Sqrt(8.0/3.0), s.StdDev, 1e-12)
}

func TestWeight_MonotonicInK(t *testing.T) {
	ks := []float64{0.1, 0.5, 1.0, 1.618, 2.0, 3.5}
	for _, r := range []int{2, 3, 10, 50, 500} {
		prev := 0.0
		for _, k := range ks {
			ratio := Weight(1, k) / Weight(r, k)
			assert.GreaterOrEqual(t, ratio, prev, "rank %d k %v", r, k)
			prev = ratio
		}
	}
	assert.Zero(t, Weight(0, 1))
	assert.Zero(t, Weight(-3, 1))
}

type fixture struct {
	store *snapshot.MemoryStore
	set   *contracts.BoardSet
	agg   *Aggregator
}

func newFixture(t *testing.T, workers int) fixture {
	t.Helper()
	store := snapshot.NewMemoryStore()

	store.Add(rows(1, tradeDate, 1, 2, 50)...)             // B1 = 1.52
	store.Add(rows(2, tradeDate, 1, 2, 3, 4)...)           // B1 ≈ 2.083
	store.Add(rows(3, tradeDate.AddDate(0, 0, -3), 1)...)  // fallback, B1 = 1
	store.Add(rows(4, tradeDate.AddDate(0, 0, -10), 1)...) // 윈도우 밖
	store.Add(rows(5, tradeDate, 0, -1)...)                // 유효 멤버 없음
	store.Add(rows(6, tradeDate, 1, 2, 50)...)             // 보드 1과 동점

	boards := []contracts.Board{
		{ID: 1, Name: "반도체", Type: contracts.BoardTypeIndustry},
		{ID: 2, Name: "2차전지", Type: contracts.BoardTypeConcept},
		{ID: 3, Name: "로봇", Type: contracts.BoardTypeConcept},
		{ID: 4, Name: "조선", Type: contracts.BoardTypeIndustry},
		{ID: 5, Name: "빈보드", Type: contracts.BoardTypeConcept},
		{ID: 6, Name: "우선주", Type: contracts.BoardTypeConcept},
		{ID: 7, Name: "스냅샷없음", Type: contracts.BoardTypeConcept},
	}
	set := contracts.NewBoardSet(tradeDate, boards, map[int64]bool{6: true}, nil)

	return fixture{
		store: store,
		set:   set,
		agg:   NewAggregator(snapshot.NewResolver(store, 7), workers, logger.Nop()),
	}
}

func TestAggregator_Aggregate(t *testing.T) {
	fx := newFixture(t, 2)

	res, err := fx.agg.Aggregate(context.Background(), fx.set, tradeDate, Params{Metric: contracts.MetricB1, K: 1.0})
	require.NoError(t, err)

	byID := map[int64]contracts.BoardHeatDaily{}
	for _, r := range res.Rows {
		byID[r.BoardID] = r
		assert.GreaterOrEqual(t, r.HeatPct, 0.0)
		assert.LessOrEqual(t, r.HeatPct, 1.0)
		assert.Greater(t, r.MemberCount, 0)
		assert.False(t, r.SnapDate.After(r.Date))
	}

	require.Len(t, res.Rows, 4)
	assert.NotContains(t, byID, int64(4))
	assert.NotContains(t, byID, int64(5))
	assert.NotContains(t, byID, int64(7))
	assert.Equal(t, contracts.FallbackNoData, res.Skipped[4])
	assert.Equal(t, contracts.FallbackNoData, res.Skipped[7])
	assert.Equal(t, contracts.FallbackNoValidMembers, res.Skipped[5])
	assert.Equal(t, 2, res.InvalidRows)

	// 오름차순: 3(1.0) < 6(1.52, 동점 큰 ID) < 1(1.52) < 2(2.083)
	assert.InDelta(t, 0.0, byID[3].HeatPct, 1e-12)
	assert.InDelta(t, 1.0/3, byID[6].HeatPct, 1e-12)
	assert.InDelta(t, 2.0/3, byID[1].HeatPct, 1e-12)
	assert.InDelta(t, 1.0, byID[2].HeatPct, 1e-12)

	assert.Equal(t, contracts.FallbackPriorSnapshot, byID[3].FallbackReason)
	assert.Equal(t, tradeDate.AddDate(0, 0, -3), byID[3].SnapDate)
	assert.Equal(t, 1, res.Fallbacks)
	assert.True(t, byID[6].IsGray)
	assert.InDelta(t, 1.52, byID[1].HeatRaw, 1e-12)
}

func TestAggregator_WorkerCountDoesNotChangeOutput(t *testing.T) {
	one := newFixture(t, 1)
	many := newFixture(t, 8)
	p := Params{Metric: contracts.MetricB2, K: 1.618}

	a, err := one.agg.Aggregate(context.Background(), one.set, tradeDate, p)
	require.NoError(t, err)
	b, err := many.agg.Aggregate(context.Background(), many.set, tradeDate, p)
	require.NoError(t, err)
	assert.Equal(t, a.Rows, b.Rows)
}

func TestAggregator_EmptySet(t *testing.T) {
	fx := newFixture(t, 2)
	empty := contracts.NewBoardSet(tradeDate, nil, nil, nil)

	res, err := fx.agg.Aggregate(context.Background(), empty, tradeDate, Params{Metric: contracts.MetricB1, K: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestAggregator_Cancelled(t *testing.T) {
	fx := newFixture(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.agg.Aggregate(ctx, fx.set, tradeDate, Params{Metric: contracts.MetricB1, K: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregator_InvalidParams(t *testing.T) {
	fx := newFixture(t, 1)
	_, err := fx.agg.Aggregate(context.Background(), fx.set, tradeDate, Params{Metric: contracts.MetricB1, K: 0})
	assert.Error(t, err)
	_, err = fx.agg.Aggregate(context.Background(), fx.set, tradeDate, Params{Metric: "X", K: 1})
	assert.Error(t, err)
}

func TestResult_StockIndex(t *testing.T) {
	fx := newFixture(t, 2)
	res, err := fx.agg.Aggregate(context.Background(), fx.set, tradeDate, Params{Metric: contracts.MetricB1, K: 1})
	require.NoError(t, err)

	idx := res.StockIndex()
	assert.Equal(t, []int64{1, 2, 3, 6}, idx["A"])
	assert.Equal(t, []int64{2}, idx["D"])
}

func TestRankingService(t *testing.T) {
	fx := newFixture(t, 2)
	results := resultstore.NewMemoryStore()
	ctx := context.Background()

	stored, err := fx.agg.Aggregate(ctx, fx.set, tradeDate, Params{Metric: contracts.MetricB1, K: 1.0})
	require.NoError(t, err)
	require.NoError(t, results.UpsertBoardHeat(ctx, tradeDate, stored.Rows))

	svc := NewRankingService(results, fx.agg, func(context.Context, time.Time) (*contracts.BoardSet, error) {
		return fx.set, nil
	}, logger.Nop())

	t.Run("stored k, gray hidden", func(t *testing.T) {
		got, err := svc.Ranking(ctx, tradeDate, RankingQuery{Metric: contracts.MetricB1, K: 1.0})
		require.NoError(t, err)
		var ids []int64
		for _, e := range got {
			ids = append(ids, e.BoardID)
		}
		assert.Equal(t, []int64{2, 1, 3}, ids)
		assert.Equal(t, 1, got[0].Rank)
		assert.Equal(t, 3, got[2].Rank)
	})

	t.Run("include gray with limit", func(t *testing.T) {
		got, err := svc.Ranking(ctx, tradeDate, RankingQuery{Metric: contracts.MetricB1, K: 1.0, Limit: 3, IncludeGray: true})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, int64(6), got[2].BoardID)
	})

	t.Run("different k recomputes", func(t *testing.T) {
		got, err := svc.Ranking(ctx, tradeDate, RankingQuery{Metric: contracts.MetricB1, K: 1.618, IncludeGray: true})
		require.NoError(t, err)
		for _, e := range got {
			assert.InDelta(t, 1.618, e.K, 1e-12)
		}
		var board1 RankingEntry
		for _, e := range got {
			if e.BoardID == 1 {
				board1 = e
			}
		}
		assert.Less(t, board1.B1, 1.52)
	})

	t.Run("other metric reuses stored rows", func(t *testing.T) {
		got, err := svc.Ranking(ctx, tradeDate, RankingQuery{Metric: contracts.MetricB2, K: 1.0, IncludeGray: true})
		require.NoError(t, err)
		// B2: 3 = 1.0, 1/6 ≈ 0.507, 2 ≈ 0.521
		assert.Equal(t, int64(3), got[0].BoardID)
		assert.Equal(t, contracts.MetricB2, got[0].Metric)
	})

	t.Run("k-independent metric reports requested k", func(t *testing.T) {
		got, err := svc.Ranking(ctx, tradeDate, RankingQuery{Metric: contracts.MetricC1, K: 2.5, IncludeGray: true})
		require.NoError(t, err)
		require.NotEmpty(t, got)
		for _, e := range got {
			assert.InDelta(t, 2.5, e.K, 1e-12)
			assert.Equal(t, contracts.MetricC1, e.Metric)
		}
	})

	t.Run("no data", func(t *testing.T) {
		empty := NewRankingService(resultstore.NewMemoryStore(), fx.agg, func(context.Context, time.Time) (*contracts.BoardSet, error) {
			return contracts.NewBoardSet(tradeDate, nil, nil, nil), nil
		}, logger.Nop())
		_, err := empty.Ranking(ctx, tradeDate, RankingQuery{Metric: contracts.MetricB1, K: 1.0})
		assert.ErrorIs(t, err, contracts.ErrNoData)
	})
}
