package contracts

import (
	"fmt"
	"strings"
	"time"
)

// HeatMetric selects which aggregate becomes heat_raw
type HeatMetric string

const (
	MetricB1 HeatMetric = "B1" // Σ w(rank)
	MetricB2 HeatMetric = "B2" // B1 / n
	MetricC1 HeatMetric = "C1" // Σ score
	MetricC2 HeatMetric = "C2" // C1 / n
)

// ParseHeatMetric parses a metric name, case-insensitively
func ParseHeatMetric(s string) (HeatMetric, error) {
	m := HeatMetric(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown heat metric %q (want B1|B2|C1|C2)", s)
	}
	return m, nil
}

// Valid reports whether m is a known metric
func (m HeatMetric) Valid() bool {
	switch m {
	case MetricB1, MetricB2, MetricC1, MetricC2:
		return true
	}
	return false
}

// BoardHeatDaily is the derived heat row keyed by (board, date)
type BoardHeatDaily struct {
	BoardID        int64          `json:"board_id"`
	BoardName      string         `json:"board_name"`
	BoardType      BoardType      `json:"board_type"`
	Date           time.Time      `json:"date"`
	SnapDate       time.Time      `json:"snap_date"`
	FallbackReason FallbackReason `json:"fallback_reason,omitempty"`
	MemberCount    int            `json:"member_count"`
	B1             float64        `json:"b1"`
	B2             float64        `json:"b2"`
	C1             float64        `json:"c1"`
	C2             float64        `json:"c2"`
	HeatRaw        float64        `json:"heat_raw"`
	HeatPct        float64        `json:"heat_pct"`
	StdDev         float64        `json:"stddev"`
	Metric         HeatMetric     `json:"metric"`
	K              float64        `json:"k"`
	IsGray         bool           `json:"is_gray"`
}

// MetricValue returns the aggregate for m
func (h BoardHeatDaily) MetricValue(m HeatMetric) float64 {
	switch m {
	case MetricB2:
		return h.B2
	case MetricC1:
		return h.C1
	case MetricC2:
		return h.C2
	default:
		return h.B1
	}
}
