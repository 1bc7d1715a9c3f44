package heat

import (
	"math"

	"github.com/wonny/boardheat/internal/contracts"
)

// Weight is the decay weight w(rank) = rank^-k. Ranks below 1 weigh 0.
// w(1)/w(r) = r^k grows with k, so a larger k concentrates weight on the top.
func Weight(rank int, k float64) float64 {
	if rank < 1 {
		return 0
	}
	return math.Pow(float64(rank), -k)
}

// Stats is the per-board aggregate before percentile assignment
type Stats struct {
	MemberCount int
	Invalid     int // rank < 1 로 제외된 행
	B1          float64
	B2          float64
	C1          float64
	C2          float64
	StdDev      float64 // 멤버 score 의 모표준편차
}

// Compute aggregates one board's resolved membership rows
func Compute(rows []contracts.MembershipRow, k float64) Stats {
	var s Stats
	scores := make([]float64, 0, len(rows))

	for _, r := range rows {
		if r.Rank < 1 {
			s.Invalid++
			continue
		}
		s.MemberCount++
		s.B1 += Weight(r.Rank, k)
		score := r.ScoreOrZero()
		s.C1 += score
		scores = append(scores, score)
	}

	if s.MemberCount == 0 {
		return s
	}

	n := float64(s.MemberCount)
	s.B2 = s.B1 / n
	s.C2 = s.C1 / n

	if s.MemberCount > 1 {
		mean := s.C2
		ss := 0.0
		for _, v := range scores {
			d := v - mean
			ss += d * d
		}
		s.StdDev = math.Sqrt(ss / n)
	}
	return s
}

// Value returns the aggregate selected by metric
func (s Stats) Value(m contracts.HeatMetric) float64 {
	switch m {
	case contracts.MetricB2:
		return s.B2
	case contracts.MetricC1:
		return s.C1
	case contracts.MetricC2:
		return s.C2
	default:
		return s.B1
	}
}
