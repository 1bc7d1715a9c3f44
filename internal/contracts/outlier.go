package contracts

import "time"

// RankPoint is one observation of a stock's market rank
type RankPoint struct {
	Code string    `json:"code"`
	Date time.Time `json:"date"`
	Rank int       `json:"rank"` // 1 = 최상위
}

// OutlierKind selects the detector lens
type OutlierKind string

const (
	OutlierRankJump   OutlierKind = "rank-jump"
	OutlierSteadyRise OutlierKind = "steady-rise"
)

// OutlierBand is the cross-sectional σ band for one date
type OutlierBand struct {
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"stddev"`
	Multiplier float64 `json:"multiplier"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Eligible   int     `json:"eligible"`
}

// OutlierSignal is one stock's movement under both lenses
type OutlierSignal struct {
	Code     string      `json:"code"`
	Kind     OutlierKind `json:"kind"`
	Date     time.Time   `json:"date"`
	FromDate time.Time   `json:"from_date"`
	FromRank int         `json:"from_rank"`
	ToRank   int         `json:"to_rank"`

	// Improvement = FromRank - ToRank (양수 = 순위 상승)
	Improvement int `json:"improvement"`

	// 절대 임계값 관점
	PassesThreshold bool `json:"passes_threshold"`
	Monotonic       bool `json:"monotonic"` // steady-rise 전용

	// σ 밴드 관점
	ZScore  float64 `json:"z_score"`
	InBand  bool    `json:"in_band"`
	Outlier bool    `json:"outlier"`
}

// OutlierResult is the full detector output for one date
type OutlierResult struct {
	Kind    OutlierKind     `json:"kind"`
	Date    time.Time       `json:"date"`
	Band    OutlierBand     `json:"band"`
	Signals []OutlierSignal `json:"signals"`
}
