package heat

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/pkg/logger"
)

// BoardSetFunc supplies the run's board set for a date (registry.Builder closure)
type BoardSetFunc func(ctx context.Context, date time.Time) (*contracts.BoardSet, error)

// RankingQuery is one read-path ranking request
type RankingQuery struct {
	Metric      contracts.HeatMetric
	K           float64
	Limit       int  // 0 = 전체
	IncludeGray bool
}

// RankingEntry is a board with its position in the ranking
type RankingEntry struct {
	Rank int `json:"rank"`
	contracts.BoardHeatDaily
}

// RankingService serves per-date board rankings for any (metric, k)
type RankingService struct {
	results   contracts.ResultStore
	agg       *Aggregator
	boardSets BoardSetFunc
	log       *logger.Logger
}

// NewRankingService creates a RankingService
func NewRankingService(results contracts.ResultStore, agg *Aggregator, boardSets BoardSetFunc, log *logger.Logger) *RankingService {
	return &RankingService{
		results:   results,
		agg:       agg,
		boardSets: boardSets,
		log:       log.WithComponent("heat.ranking"),
	}
}

const kEpsilon = 1e-9

// Ranking returns boards ordered by heat_pct descending.
// Stored rows are reused when k matches the stored run; otherwise B1/B2 are
// recomputed from snapshots. Returns contracts.ErrNoData for an empty date.
func (s *RankingService) Ranking(ctx context.Context, date time.Time, q RankingQuery) ([]RankingEntry, error) {
	if !q.Metric.Valid() {
		return nil, fmt.Errorf("invalid heat metric %q", q.Metric)
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be > 0, got %v", q.K)
	}

	date = contracts.TradeDate(date)
	stored, err := s.results.BoardHeatByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load board heat: %w", err)
	}

	var rows []contracts.BoardHeatDaily
	if len(stored) > 0 && (math.Abs(stored[0].K-q.K) < kEpsilon || !dependsOnK(q.Metric)) {
		rows = Rerank(stored, q.Metric)
		// C1/C2 값은 k 무관, 응답은 요청 k 로 표기
		for i := range rows {
			rows[i].K = q.K
		}
	} else {
		rows, err = s.recompute(ctx, date, q)
		if err != nil {
			return nil, err
		}
	}

	if len(rows) == 0 {
		return nil, contracts.ErrNoData
	}

	return order(rows, q), nil
}

func (s *RankingService) recompute(ctx context.Context, date time.Time, q RankingQuery) ([]contracts.BoardHeatDaily, error) {
	set, err := s.boardSets(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("build board set: %w", err)
	}

	result, err := s.agg.Aggregate(ctx, set, date, Params{Metric: q.Metric, K: q.K})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"date":   contracts.FormatDate(date),
		"metric": q.Metric,
		"k":      q.K,
		"boards": len(result.Rows),
	}).Debug("ranking recomputed")

	return result.Rows, nil
}

// C1/C2 는 k 와 무관
func dependsOnK(m contracts.HeatMetric) bool {
	return m == contracts.MetricB1 || m == contracts.MetricB2
}

// order sorts by heat_pct desc (ID asc on ties), drops GRAY if asked, and applies the limit.
// 백분위는 GRAY 포함 전체 집합 기준으로 이미 계산됨
func order(rows []contracts.BoardHeatDaily, q RankingQuery) []RankingEntry {
	sorted := append([]contracts.BoardHeatDaily(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].HeatPct != sorted[j].HeatPct {
			return sorted[i].HeatPct > sorted[j].HeatPct
		}
		return sorted[i].BoardID < sorted[j].BoardID
	})

	out := make([]RankingEntry, 0, len(sorted))
	for _, r := range sorted {
		if r.IsGray && !q.IncludeGray {
			continue
		}
		out = append(out, RankingEntry{Rank: len(out) + 1, BoardHeatDaily: r})
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out
}
