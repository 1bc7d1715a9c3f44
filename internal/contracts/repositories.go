package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만
// 원천 데이터(보드/스냅샷/종목)는 읽기 전용, 파생 테이블은 ResultStore 만 기록

// BoardRepository lists providers and their boards
type BoardRepository interface {
	ListProviders(ctx context.Context) ([]Provider, error)
	ListBoards(ctx context.Context) ([]Board, error)
}

// BlacklistRepository lists operator-maintained blacklist rules
type BlacklistRepository interface {
	ListActiveRules(ctx context.Context) ([]BlacklistRule, error)
}

// SnapshotStore reads sparse membership facts
type SnapshotStore interface {
	// RowsForBoard returns every membership row of a board on exactly date
	RowsForBoard(ctx context.Context, boardID int64, date time.Time) ([]MembershipRow, error)

	// LatestDateOnOrBefore returns the most recent date d with notBefore <= d <= date
	// that has at least one row for the board
	LatestDateOnOrBefore(ctx context.Context, boardID int64, date, notBefore time.Time) (time.Time, bool, error)
}

// StockDailyRepository reads per-stock daily rank/score facts
type StockDailyRepository interface {
	ListByDate(ctx context.Context, date time.Time) ([]StockDaily, error)
	RankSeries(ctx context.Context, from, to time.Time) ([]RankPoint, error)
	TradingDates(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

// ResultStore persists derived rows and tracks the last fully computed date per table
type ResultStore interface {
	UpsertBoardHeat(ctx context.Context, date time.Time, rows []BoardHeatDaily) error
	UpsertStockSignals(ctx context.Context, date time.Time, rows []StockBoardSignal) error

	MarkComputed(ctx context.Context, table string, date time.Time) error
	LastComputed(ctx context.Context, table string) (time.Time, bool, error)

	BoardHeatByDate(ctx context.Context, date time.Time) ([]BoardHeatDaily, error)
	StockSignal(ctx context.Context, code string, date time.Time) (*StockBoardSignal, error)
	StockSignals(ctx context.Context, date time.Time, codes []string) ([]StockBoardSignal, error)
}
