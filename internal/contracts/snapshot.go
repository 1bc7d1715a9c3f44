package contracts

import "time"

// MembershipRow is one sparse fact: stock's rank inside a board on a date.
// Keyed by (stock, board, date).
type MembershipRow struct {
	StockCode string    `json:"stock_code"`
	BoardID   int64     `json:"board_id"`
	Date      time.Time `json:"date"`
	Rank      int       `json:"rank"`            // 1 = 보드 내 최상위
	Weight    *float64  `json:"weight,omitempty"`
	Score     *float64  `json:"score,omitempty"` // 기여 점수 (없으면 C1/C2 에서 0)
}

// ScoreOrZero returns the contribution score, 0 when missing
func (r MembershipRow) ScoreOrZero() float64 {
	if r.Score == nil {
		return 0
	}
	return *r.Score
}

// FallbackReason records why a snapshot date differs from the trade date
type FallbackReason string

const (
	FallbackNone           FallbackReason = ""
	FallbackPriorSnapshot  FallbackReason = "PRIOR_SNAPSHOT"
	FallbackNoData         FallbackReason = "NO_DATA_IN_WINDOW"
	FallbackNoValidMembers FallbackReason = "NO_VALID_MEMBERS" // 스냅샷은 있으나 유효 행 없음
)

// Resolution is the outcome of snapshot address resolution for (board, trade date)
type Resolution struct {
	BoardID   int64          `json:"board_id"`
	TradeDate time.Time      `json:"trade_date"`
	Found     bool           `json:"found"`
	SnapDate  time.Time      `json:"snap_date"` // Found=false 이면 zero
	LagDays   int            `json:"lag_days"`
	Reason    FallbackReason `json:"reason,omitempty"`
}

// IsFallback reports whether a prior snapshot was used
func (r Resolution) IsFallback() bool {
	return r.Found && r.Reason == FallbackPriorSnapshot
}
