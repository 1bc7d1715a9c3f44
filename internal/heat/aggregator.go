package heat

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/snapshot"
	"github.com/wonny/boardheat/internal/stats"
	"github.com/wonny/boardheat/pkg/logger"
)

// Params selects the heat dimension for a run
type Params struct {
	Metric contracts.HeatMetric
	K      float64
}

// Result is the aggregator output for one date
type Result struct {
	Date time.Time

	// Rows: 멤버가 1개 이상인 보드만, 보드 ID 오름차순
	Rows []contracts.BoardHeatDaily

	// Members: 보드별 해석된 멤버십 (composer 의 종목→보드 인덱스 원천)
	Members map[int64][]contracts.MembershipRow

	// Skipped: 해석 실패/빈 보드 → 사유
	Skipped map[int64]contracts.FallbackReason

	Fallbacks   int
	InvalidRows int
}

// Aggregator computes BoardHeatDaily rows
// ⭐ SSOT: 보드 히트 계산은 여기서만
type Aggregator struct {
	resolver *snapshot.Resolver
	workers  int
	log      *logger.Logger
}

// NewAggregator creates an Aggregator. workers <= 0 means runtime.NumCPU().
func NewAggregator(resolver *snapshot.Resolver, workers int, log *logger.Logger) *Aggregator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Aggregator{
		resolver: resolver,
		workers:  workers,
		log:      log.WithComponent("heat.aggregator"),
	}
}

type boardOutcome struct {
	board contracts.Board
	res   contracts.Resolution
	rows  []contracts.MembershipRow
	stats Stats
}

// Aggregate runs phase 1 (per-board, parallel) then phase 2 (cross-board percentile).
// The percentile phase starts only after every board has finished.
func (a *Aggregator) Aggregate(ctx context.Context, set *contracts.BoardSet, date time.Time, p Params) (*Result, error) {
	if p.K <= 0 {
		return nil, fmt.Errorf("heat k must be > 0, got %v", p.K)
	}
	if !p.Metric.Valid() {
		return nil, fmt.Errorf("invalid heat metric %q", p.Metric)
	}

	date = contracts.TradeDate(date)
	boards := set.Boards()
	outcomes := make([]boardOutcome, len(boards))

	// Phase 1: 보드별 해석 + 집계 (공유 가변 상태 없음, 슬롯별 기록)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, board := range boards {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, rows, err := a.resolver.ResolveRows(gctx, board.ID, date)
			if err != nil {
				return err
			}
			outcomes[i] = boardOutcome{board: board, res: res, rows: rows, stats: Compute(rows, p.K)}
			return nil
		})
	}
	// Barrier
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("heat phase 1: %w", err)
	}

	result := &Result{
		Date:    date,
		Members: make(map[int64][]contracts.MembershipRow),
		Skipped: make(map[int64]contracts.FallbackReason),
	}

	eligible := make([]boardOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		result.InvalidRows += o.stats.Invalid
		if !o.res.Found {
			result.Skipped[o.board.ID] = o.res.Reason
			continue
		}
		if o.stats.MemberCount == 0 {
			// 빈 보드는 백분위 집합에서 제외 (heat_pct=0 으로 넣지 않음)
			result.Skipped[o.board.ID] = contracts.FallbackNoValidMembers
			continue
		}
		if o.res.IsFallback() {
			result.Fallbacks++
		}
		eligible = append(eligible, o)
	}

	// Phase 2: 보드 간 백분위
	pcts := stats.Percentiles(eligible,
		func(o boardOutcome) float64 { return o.stats.Value(p.Metric) },
		func(x, y boardOutcome) bool { return x.board.ID < y.board.ID },
	)

	result.Rows = make([]contracts.BoardHeatDaily, 0, len(eligible))
	for i, o := range eligible {
		result.Rows = append(result.Rows, contracts.BoardHeatDaily{
			BoardID:        o.board.ID,
			BoardName:      o.board.Name,
			BoardType:      o.board.Type,
			Date:           date,
			SnapDate:       o.res.SnapDate,
			FallbackReason: o.res.Reason,
			MemberCount:    o.stats.MemberCount,
			B1:             o.stats.B1,
			B2:             o.stats.B2,
			C1:             o.stats.C1,
			C2:             o.stats.C2,
			HeatRaw:        o.stats.Value(p.Metric),
			HeatPct:        pcts[i],
			StdDev:         o.stats.StdDev,
			Metric:         p.Metric,
			K:              p.K,
			IsGray:         set.IsGray(o.board.ID),
		})
		result.Members[o.board.ID] = validRows(o.rows)
	}

	a.log.WithFields(map[string]interface{}{
		"date":         contracts.FormatDate(date),
		"boards":       len(boards),
		"eligible":     len(result.Rows),
		"skipped":      len(result.Skipped),
		"fallbacks":    result.Fallbacks,
		"invalid_rows": result.InvalidRows,
		"metric":       p.Metric,
		"k":            p.K,
	}).Info("heat aggregation completed")

	return result, nil
}

func validRows(rows []contracts.MembershipRow) []contracts.MembershipRow {
	out := make([]contracts.MembershipRow, 0, len(rows))
	for _, r := range rows {
		if r.Rank >= 1 {
			out = append(out, r)
		}
	}
	return out
}

// Rerank recomputes heat_raw and heat_pct of stored rows for another metric.
// B1/B2 depend on k; callers must only use it when k is unchanged.
func Rerank(rows []contracts.BoardHeatDaily, metric contracts.HeatMetric) []contracts.BoardHeatDaily {
	out := make([]contracts.BoardHeatDaily, 0, len(rows))
	for _, r := range rows {
		if r.MemberCount > 0 {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BoardID < out[j].BoardID })

	pcts := stats.Percentiles(out,
		func(r contracts.BoardHeatDaily) float64 { return r.MetricValue(metric) },
		func(x, y contracts.BoardHeatDaily) bool { return x.BoardID < y.BoardID },
	)
	for i := range out {
		out[i].Metric = metric
		out[i].HeatRaw = out[i].MetricValue(metric)
		out[i].HeatPct = pcts[i]
	}
	return out
}

// StockIndex inverts per-board members into stock → board IDs (ascending)
func (r *Result) StockIndex() map[string][]int64 {
	idx := make(map[string][]int64)
	for boardID, rows := range r.Members {
		for _, row := range rows {
			idx[row.StockCode] = append(idx[row.StockCode], boardID)
		}
	}
	for code := range idx {
		ids := idx[code]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return idx
}
