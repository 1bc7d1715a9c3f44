package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/boardheat/internal/contracts"
)

// PgRepository implements contracts.StockDailyRepository
// ⭐ SSOT: 종목 일별 순위/점수 원천 조회는 여기서만 (읽기 전용)
type PgRepository struct {
	db *pgxpool.Pool
}

// NewPgRepository creates a new stock daily repository
func NewPgRepository(db *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: db}
}

// ListByDate returns every stock fact of date ordered by code
func (r *PgRepository) ListByDate(ctx context.Context, date time.Time) ([]contracts.StockDaily, error) {
	query := `
		SELECT stock_code, stock_name, trade_date, market_rank, total_score, primary_industry_board_id
		FROM engine.stock_daily
		WHERE trade_date = $1
		ORDER BY stock_code
	`
	rows, err := r.db.Query(ctx, query, contracts.TradeDate(date))
	if err != nil {
		return nil, fmt.Errorf("query stock daily: %w", err)
	}
	defer rows.Close()

	var out []contracts.StockDaily
	for rows.Next() {
		var s contracts.StockDaily
		if err := rows.Scan(&s.Code, &s.Name, &s.Date, &s.MarketRank, &s.TotalScore, &s.PrimaryIndustryBoardID); err != nil {
			return nil, fmt.Errorf("scan stock daily: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock daily: %w", err)
	}
	return out, nil
}

// RankSeries returns (code, date, rank) for [from, to], ordered by code then date.
// 순위가 없는 행(market_rank <= 0)은 제외
func (r *PgRepository) RankSeries(ctx context.Context, from, to time.Time) ([]contracts.RankPoint, error) {
	query := `
		SELECT stock_code, trade_date, market_rank
		FROM engine.stock_daily
		WHERE trade_date BETWEEN $1 AND $2
		  AND market_rank > 0
		ORDER BY stock_code, trade_date
	`
	rows, err := r.db.Query(ctx, query, contracts.TradeDate(from), contracts.TradeDate(to))
	if err != nil {
		return nil, fmt.Errorf("query rank series: %w", err)
	}
	defer rows.Close()

	var out []contracts.RankPoint
	for rows.Next() {
		var p contracts.RankPoint
		if err := rows.Scan(&p.Code, &p.Date, &p.Rank); err != nil {
			return nil, fmt.Errorf("scan rank point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TradingDates returns the distinct dates with stock facts in [from, to], ascending
func (r *PgRepository) TradingDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT trade_date
		FROM engine.stock_daily
		WHERE trade_date BETWEEN $1 AND $2
		ORDER BY trade_date
	`
	rows, err := r.db.Query(ctx, query, contracts.TradeDate(from), contracts.TradeDate(to))
	if err != nil {
		return nil, fmt.Errorf("query trading dates: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan trading date: %w", err)
		}
		out = append(out, contracts.TradeDate(d))
	}
	return out, rows.Err()
}
