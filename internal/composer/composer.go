package composer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/scoringconfig"
	"github.com/wonny/boardheat/internal/stats"
	"github.com/wonny/boardheat/pkg/logger"
)

// Input is everything the composer needs for one trade date
type Input struct {
	Date   time.Time
	Stocks []contracts.StockDaily

	// Heat: 커밋된 해당일 BoardHeatDaily (읽기 경로로 재조회한 것)
	Heat []contracts.BoardHeatDaily

	// Memberships: 종목 → 해석된 보드 ID
	Memberships map[string][]int64

	// Boards: 주업종 이름 조회 + 제외 보드 판별 (nil 이면 Heat 기준)
	Boards *contracts.BoardSet
}

// Composer builds StockBoardSignal rows
// ⭐ SSOT: 종목 시그널 합성은 여기서만
type Composer struct {
	cfg scoringconfig.Composer
	log *logger.Logger
}

// New creates a Composer. cfg must already be validated.
func New(cfg scoringconfig.Composer, log *logger.Logger) *Composer {
	return &Composer{cfg: cfg, log: log.WithComponent("composer")}
}

// stockDraft holds per-stock values before the final percentile pass
type stockDraft struct {
	signal contracts.StockBoardSignal
}

// Compose returns one signal per stock ordered by stock code.
// Output depends only on Input, so re-running a date yields identical rows.
func (c *Composer) Compose(ctx context.Context, in Input) ([]contracts.StockBoardSignal, error) {
	date := contracts.TradeDate(in.Date)

	heatByID := make(map[int64]contracts.BoardHeatDaily, len(in.Heat))
	for _, h := range in.Heat {
		heatByID[h.BoardID] = h
	}

	stocks := dedupe(in.Stocks)
	if len(stocks) == 0 {
		c.log.WithField("date", contracts.FormatDate(date)).Warn("no stocks to compose")
		return []contracts.StockBoardSignal{}, nil
	}

	// 1. 종목 자체 점수 백분위 (동점: 코드 사전순 앞이 상위)
	totalPcts := stats.Percentiles(stocks,
		func(s contracts.StockDaily) float64 { return s.TotalScore },
		func(a, b contracts.StockDaily) bool { return a.Code < b.Code },
	)

	drafts := make([]stockDraft, len(stocks))
	for i, s := range stocks {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("compose cancelled: %w", err)
			}
		}
		drafts[i] = c.draft(date, s, totalPcts[i], in.Memberships[s.Code], heatByID, in.Boards)
	}

	// 2. 감점 후 final_score 백분위 (동점: SAFE 가 상위, 그다음 코드 사전순)
	finalPcts := stats.Percentiles(drafts,
		func(d stockDraft) float64 { return d.signal.FinalScore },
		func(a, b stockDraft) bool {
			if a.signal.IndustrySafe != b.signal.IndustrySafe {
				return a.signal.IndustrySafe
			}
			return a.signal.StockCode < b.signal.StockCode
		},
	)

	out := make([]contracts.StockBoardSignal, len(drafts))
	tierCounts := map[contracts.SignalLevel]int{}
	penalized := 0
	for i, d := range drafts {
		sig := d.signal
		sig.FinalScorePct = finalPcts[i]
		sig.SignalLevel = Classify(sig.FinalScorePct, c.cfg.Tiers)
		tierCounts[sig.SignalLevel]++
		if !sig.IndustrySafe {
			penalized++
		}
		out[i] = sig
	}

	c.log.WithFields(map[string]interface{}{
		"date":      contracts.FormatDate(date),
		"stocks":    len(out),
		"boards":    len(in.Heat),
		"tier_s":    tierCounts[contracts.SignalS],
		"tier_a":    tierCounts[contracts.SignalA],
		"tier_b":    tierCounts[contracts.SignalB],
		"penalized": penalized,
	}).Info("signal composition completed")

	return out, nil
}

func (c *Composer) draft(
	date time.Time,
	s contracts.StockDaily,
	totalPct float64,
	boardIDs []int64,
	heatByID map[int64]contracts.BoardHeatDaily,
	boards *contracts.BoardSet,
) stockDraft {
	sig := contracts.StockBoardSignal{
		StockCode:     s.Code,
		StockName:     s.Name,
		Date:          date,
		MarketRank:    s.MarketRank,
		TotalScore:    s.TotalScore,
		TotalScorePct: totalPct,
	}

	// 해석된 보드만 (BLACK/윈도우 밖은 heat 에 없음)
	resolved := make([]contracts.BoardHeatDaily, 0, len(boardIDs))
	for _, id := range boardIDs {
		if h, ok := heatByID[id]; ok {
			resolved = append(resolved, h)
		}
	}
	sortByDriverOrder(resolved)

	// Exposure: GRAY 포함 전체 보드 기준
	sig.BoardCount = len(resolved)
	for _, h := range resolved {
		if h.HeatPct >= c.cfg.HotBoardThreshold {
			sig.HotBoardCount++
		}
	}
	if sig.BoardCount > 0 {
		sig.BoardExposure = float64(sig.HotBoardCount) / float64(sig.BoardCount)
	}

	// Driver + TopBoards: non-GRAY 만
	entries := make([]contracts.TopBoardEntry, 0, c.cfg.TopBoardsLimit)
	var driver *contracts.BoardHeatDaily
	for i := range resolved {
		h := resolved[i]
		if h.IsGray {
			continue
		}
		if driver == nil {
			driver = &resolved[i]
		}
		if len(entries) < c.cfg.TopBoardsLimit {
			entries = append(entries, contracts.TopBoardEntry{BoardID: h.BoardID, HeatPct: h.HeatPct, Type: h.BoardType})
		}
	}
	sig.TopBoards = contracts.NewTopBoards(entries)

	if driver != nil {
		id := driver.BoardID
		sig.DriverBoardID = &id
		sig.DriverBoardName = driver.BoardName
		sig.DriverBoardType = driver.BoardType
		sig.DriverHeatPct = driver.HeatPct
	}

	// 감사: driver 의 스냅샷, 없으면 첫 번째 해석 보드
	audit := driver
	if audit == nil && len(resolved) > 0 {
		audit = &resolved[0]
	}
	if audit != nil {
		snap := audit.SnapDate
		sig.SnapDate = &snap
		sig.FallbackReason = audit.FallbackReason
	}

	c.applyIndustry(&sig, s.PrimaryIndustryBoardID, heatByID, boards)

	w := c.cfg.Weights
	raw := w.Stock*sig.TotalScorePct + w.Exposure*sig.BoardExposure + w.MaxDriver*sig.DriverHeatPct
	sig.FinalScore = raw
	if !sig.IndustrySafe {
		sig.FinalScore = raw * c.cfg.IndustryPenalty
	}

	return stockDraft{signal: sig}
}

// applyIndustry sets the primary-industry fields.
// Missing assignment, excluded board or missing heat → industry_safe=false, UNKNOWN.
func (c *Composer) applyIndustry(sig *contracts.StockBoardSignal, industryID *int64, heatByID map[int64]contracts.BoardHeatDaily, boards *contracts.BoardSet) {
	sig.IndustrySafe = false
	sig.IndustryStatus = contracts.IndustryUnknown

	if industryID == nil {
		return
	}
	id := *industryID

	h, hasHeat := heatByID[id]
	if !hasHeat {
		// BLACK 등 제외 보드는 참조하지 않음
		if boards == nil {
			return
		}
		b, ok := boards.Get(id)
		if !ok {
			return
		}
		sig.IndustryBoardID = &id
		sig.IndustryBoardName = b.Name
		return
	}

	sig.IndustryBoardID = &id
	sig.IndustryBoardName = h.BoardName
	pct := h.HeatPct
	sig.IndustryHeatPct = &pct

	if pct >= c.cfg.IndustrySafeThreshold {
		sig.IndustrySafe = true
		sig.IndustryStatus = contracts.IndustrySafe
	} else {
		sig.IndustryStatus = contracts.IndustryUnsafe
	}
}

// sortByDriverOrder: heat_pct desc → member_count desc → name asc → ID asc
func sortByDriverOrder(rows []contracts.BoardHeatDaily) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.HeatPct != b.HeatPct {
			return a.HeatPct > b.HeatPct
		}
		if a.MemberCount != b.MemberCount {
			return a.MemberCount > b.MemberCount
		}
		if a.BoardName != b.BoardName {
			return a.BoardName < b.BoardName
		}
		return a.BoardID < b.BoardID
	})
}

// dedupe keeps the first row per code and orders by code
func dedupe(in []contracts.StockDaily) []contracts.StockDaily {
	seen := make(map[string]bool, len(in))
	out := make([]contracts.StockDaily, 0, len(in))
	for _, s := range in {
		if s.Code == "" || seen[s.Code] {
			continue
		}
		seen[s.Code] = true
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
