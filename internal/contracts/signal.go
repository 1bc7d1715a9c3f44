package contracts

import (
	"encoding/json"
	"fmt"
	"time"
)

// SignalLevel is the discrete tier assigned from final_score_pct
type SignalLevel string

const (
	SignalS    SignalLevel = "S"
	SignalA    SignalLevel = "A"
	SignalB    SignalLevel = "B"
	SignalNone SignalLevel = "NONE"
)

// IndustryStatus separates "known unsafe" from "unknown"
type IndustryStatus string

const (
	IndustrySafe    IndustryStatus = "SAFE"
	IndustryUnsafe  IndustryStatus = "UNSAFE"
	IndustryUnknown IndustryStatus = "UNKNOWN" // 주업종 미지정 또는 해당일 히트 없음
)

// StockDaily is the raw per-stock daily fact consumed read-only
type StockDaily struct {
	Code                   string    `json:"code"`
	Name                   string    `json:"name"`
	Date                   time.Time `json:"date"`
	MarketRank             int       `json:"market_rank"`
	TotalScore             float64   `json:"total_score"`
	PrimaryIndustryBoardID *int64    `json:"primary_industry_board_id,omitempty"`
}

// TopBoardsVersion is the current TopBoards schema version
const TopBoardsVersion = 1

// TopBoardEntry is one board referenced by a stock signal
type TopBoardEntry struct {
	BoardID int64     `json:"board_id"`
	HeatPct float64   `json:"heat_pct"`
	Type    BoardType `json:"type"`
}

// TopBoards is the typed, versioned list of a stock's hottest boards.
// Persisted as JSONB; decoding rejects unknown versions.
type TopBoards struct {
	Version int             `json:"version"`
	Entries []TopBoardEntry `json:"entries"`
}

// NewTopBoards stamps entries with the current version
func NewTopBoards(entries []TopBoardEntry) TopBoards {
	if entries == nil {
		entries = []TopBoardEntry{}
	}
	return TopBoards{Version: TopBoardsVersion, Entries: entries}
}

// UnmarshalJSON decodes and checks the version tag
func (t *TopBoards) UnmarshalJSON(data []byte) error {
	type raw TopBoards
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if r.Version != TopBoardsVersion {
		return fmt.Errorf("unsupported top_boards version %d", r.Version)
	}
	if r.Entries == nil {
		r.Entries = []TopBoardEntry{}
	}
	*t = TopBoards(r)
	return nil
}

// StockBoardSignal is the derived signal row keyed by (stock, date)
type StockBoardSignal struct {
	StockCode     string    `json:"stock_code"`
	StockName     string    `json:"stock_name"`
	Date          time.Time `json:"date"`
	MarketRank    int       `json:"market_rank"`
	TotalScore    float64   `json:"total_score"`
	TotalScorePct float64   `json:"total_score_pct"`

	// Driver (가장 뜨거운 non-GRAY 보드)
	DriverBoardID   *int64    `json:"driver_board_id,omitempty"`
	DriverBoardName string    `json:"driver_board_name,omitempty"`
	DriverBoardType BoardType `json:"driver_board_type,omitempty"`
	DriverHeatPct   float64   `json:"driver_heat_pct"`

	// Primary industry
	IndustryBoardID   *int64         `json:"industry_board_id,omitempty"`
	IndustryBoardName string         `json:"industry_board_name,omitempty"`
	IndustryHeatPct   *float64       `json:"industry_heat_pct,omitempty"`
	IndustrySafe      bool           `json:"industry_safe"`
	IndustryStatus    IndustryStatus `json:"industry_status"`

	FinalScore    float64     `json:"final_score"`
	FinalScorePct float64     `json:"final_score_pct"`
	SignalLevel   SignalLevel `json:"signal_level"`

	BoardExposure float64 `json:"board_exposure"`
	BoardCount    int     `json:"board_count"`
	HotBoardCount int     `json:"hot_board_count"`

	// Audit
	SnapDate       *time.Time     `json:"snap_date,omitempty"`
	FallbackReason FallbackReason `json:"fallback_reason,omitempty"`

	TopBoards TopBoards `json:"top_boards"`
}
