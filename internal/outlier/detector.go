package outlier

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/scoringconfig"
	"github.com/wonny/boardheat/internal/stats"
	"github.com/wonny/boardheat/pkg/logger"
)

// Detector flags rank movements under two lenses:
// an absolute threshold and a cross-sectional ±kσ band.
// ⭐ SSOT: 순위 이상치 판정은 여기서만
type Detector struct {
	cfg scoringconfig.Outlier
	log *logger.Logger
}

// NewDetector creates a detector. cfg must already be validated.
func NewDetector(cfg scoringconfig.Outlier, log *logger.Logger) *Detector {
	return &Detector{cfg: cfg, log: log.WithComponent("outlier.detector")}
}

// series is one stock's observations keyed by date
type series map[time.Time]int

func groupByCode(points []contracts.RankPoint) (map[string]series, []time.Time) {
	byCode := make(map[string]series)
	seen := make(map[time.Time]bool)
	var dates []time.Time

	for _, p := range points {
		if p.Rank <= 0 {
			continue
		}
		d := contracts.TradeDate(p.Date)
		s, ok := byCode[p.Code]
		if !ok {
			s = make(series)
			byCode[p.Code] = s
		}
		s[d] = p.Rank
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return byCode, dates
}

// windowEndingAt returns the last n trading dates up to and including date.
// date 자체가 시계열에 없으면 nil
func windowEndingAt(dates []time.Time, date time.Time, n int) []time.Time {
	end := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(date) })
	if end == len(dates) || !dates[end].Equal(date) {
		return nil
	}
	start := end - n + 1
	if start < 0 {
		return nil
	}
	return dates[start : end+1]
}

// DetectRankJump compares each stock's rank on date with the previous trading date.
// Improvement = prev - cur; stocks missing either observation are not eligible.
func (d *Detector) DetectRankJump(points []contracts.RankPoint, date time.Time) contracts.OutlierResult {
	date = contracts.TradeDate(date)
	byCode, dates := groupByCode(points)

	var signals []contracts.OutlierSignal
	if window := windowEndingAt(dates, date, 2); window != nil {
		prevDate := window[0]
		for code, s := range byCode {
			prev, okPrev := s[prevDate]
			cur, okCur := s[date]
			if !okPrev || !okCur {
				continue
			}
			delta := prev - cur
			signals = append(signals, contracts.OutlierSignal{
				Code:            code,
				Kind:            contracts.OutlierRankJump,
				Date:            date,
				FromDate:        prevDate,
				FromRank:        prev,
				ToRank:          cur,
				Improvement:     delta,
				PassesThreshold: delta >= d.cfg.RankJump.MinJump,
			})
		}
	}

	return d.finish(contracts.OutlierRankJump, date, signals)
}

// DetectSteadyRise checks window_days consecutive observations ending on date.
// A single regression day disqualifies the stock regardless of net improvement.
func (d *Detector) DetectSteadyRise(points []contracts.RankPoint, date time.Time) contracts.OutlierResult {
	date = contracts.TradeDate(date)
	byCode, dates := groupByCode(points)
	rule := d.cfg.SteadyRise

	var signals []contracts.OutlierSignal
	if window := windowEndingAt(dates, date, rule.WindowDays); window != nil {
		for code, s := range byCode {
			ranks, complete := ranksIn(s, window)
			if !complete {
				continue
			}
			first, last := ranks[0], ranks[len(ranks)-1]
			monotonic := isMonotonic(ranks, rule.Strict)
			improvement := first - last
			signals = append(signals, contracts.OutlierSignal{
				Code:            code,
				Kind:            contracts.OutlierSteadyRise,
				Date:            date,
				FromDate:        window[0],
				FromRank:        first,
				ToRank:          last,
				Improvement:     improvement,
				Monotonic:       monotonic,
				PassesThreshold: monotonic && improvement >= rule.MinRise,
			})
		}
	}

	return d.finish(contracts.OutlierSteadyRise, date, signals)
}

func ranksIn(s series, window []time.Time) ([]int, bool) {
	ranks := make([]int, len(window))
	for i, d := range window {
		r, ok := s[d]
		if !ok {
			return nil, false
		}
		ranks[i] = r
	}
	return ranks, true
}

// isMonotonic: 순위 숫자가 작아질수록 개선
func isMonotonic(ranks []int, strict bool) bool {
	for i := 1; i < len(ranks); i++ {
		if strict && ranks[i] >= ranks[i-1] {
			return false
		}
		if !strict && ranks[i] > ranks[i-1] {
			return false
		}
	}
	return true
}

// finish applies the σ band over every eligible stock and orders the output
func (d *Detector) finish(kind contracts.OutlierKind, date time.Time, signals []contracts.OutlierSignal) contracts.OutlierResult {
	values := make([]float64, len(signals))
	for i, s := range signals {
		values[i] = float64(s.Improvement)
	}
	band := Band(values, d.cfg.SigmaMultiplier)

	flagged, outliers := 0, 0
	for i := range signals {
		s := &signals[i]
		x := float64(s.Improvement)
		if band.StdDev > 0 {
			s.ZScore = (x - band.Mean) / band.StdDev
		}
		s.InBand = math.Abs(x-band.Mean) <= band.Multiplier*band.StdDev
		s.Outlier = !s.InBand
		if s.PassesThreshold {
			flagged++
		}
		if s.Outlier {
			outliers++
		}
	}

	// 개선폭 내림차순 → 코드 사전순
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Improvement != signals[j].Improvement {
			return signals[i].Improvement > signals[j].Improvement
		}
		return signals[i].Code < signals[j].Code
	})
	if signals == nil {
		signals = []contracts.OutlierSignal{}
	}

	d.log.WithFields(map[string]interface{}{
		"kind":       string(kind),
		"date":       contracts.FormatDate(date),
		"eligible":   len(signals),
		"threshold":  flagged,
		"outliers":   outliers,
		"mean":       band.Mean,
		"stddev":     band.StdDev,
		"multiplier": band.Multiplier,
	}).Info("outlier detection completed")

	return contracts.OutlierResult{Kind: kind, Date: date, Band: band, Signals: signals}
}

// Band computes the population mean/stddev band of values at ±k·σ
func Band(values []float64, k float64) contracts.OutlierBand {
	mean, std := stats.MeanStd(values)
	return contracts.OutlierBand{
		Mean:       mean,
		StdDev:     std,
		Multiplier: k,
		Lower:      mean - k*std,
		Upper:      mean + k*std,
		Eligible:   len(values),
	}
}
