package resultstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/pkg/database"
)

// PgStore implements contracts.ResultStore on PostgreSQL
// ⭐ SSOT: 파생 테이블 저장/조회는 여기서만
//
// 날짜 단위로 한 트랜잭션: 해당 날짜의 기존 행 중 이번 결과에 없는 키는 삭제,
// 나머지는 ON CONFLICT upsert → 재실행해도 같은 결과
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// UpsertBoardHeat writes the date's heat rows in one batch
func (s *PgStore) UpsertBoardHeat(ctx context.Context, date time.Time, rows []contracts.BoardHeatDaily) error {
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.BoardID)
	}

	return database.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM engine.board_heat_daily
			WHERE trade_date = $1 AND NOT (board_id = ANY($2))
		`, date, ids); err != nil {
			return fmt.Errorf("prune board heat: %w", err)
		}

		query := `
			INSERT INTO engine.board_heat_daily (
				board_id, trade_date, board_name, board_type, snap_date, fallback_reason,
				member_count, b1, b2, c1, c2, heat_raw, heat_pct, stddev,
				metric, k, is_gray, updated_at
			) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
			ON CONFLICT (board_id, trade_date) DO UPDATE SET
				board_name = EXCLUDED.board_name,
				board_type = EXCLUDED.board_type,
				snap_date = EXCLUDED.snap_date,
				fallback_reason = EXCLUDED.fallback_reason,
				member_count = EXCLUDED.member_count,
				b1 = EXCLUDED.b1,
				b2 = EXCLUDED.b2,
				c1 = EXCLUDED.c1,
				c2 = EXCLUDED.c2,
				heat_raw = EXCLUDED.heat_raw,
				heat_pct = EXCLUDED.heat_pct,
				stddev = EXCLUDED.stddev,
				metric = EXCLUDED.metric,
				k = EXCLUDED.k,
				is_gray = EXCLUDED.is_gray,
				updated_at = NOW()
		`

		batch := &pgx.Batch{}
		for _, r := range rows {
			batch.Queue(query,
				r.BoardID, date, r.BoardName, string(r.BoardType), r.SnapDate, string(r.FallbackReason),
				r.MemberCount, r.B1, r.B2, r.C1, r.C2, r.HeatRaw, r.HeatPct, r.StdDev,
				string(r.Metric), r.K, r.IsGray,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upsert board heat: %w", err)
		}
		return nil
	})
}

// UpsertStockSignals writes the date's signal rows in one batch
func (s *PgStore) UpsertStockSignals(ctx context.Context, date time.Time, rows []contracts.StockBoardSignal) error {
	codes := make([]string, 0, len(rows))
	for _, r := range rows {
		codes = append(codes, r.StockCode)
	}

	return database.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM engine.stock_board_signal
			WHERE trade_date = $1 AND NOT (stock_code = ANY($2))
		`, date, codes); err != nil {
			return fmt.Errorf("prune stock signals: %w", err)
		}

		query := `
			INSERT INTO engine.stock_board_signal (
				stock_code, trade_date, stock_name, market_rank, total_score, total_score_pct,
				driver_board_id, driver_board_name, driver_board_type, driver_heat_pct,
				industry_board_id, industry_board_name, industry_heat_pct, industry_safe, industry_status,
				final_score, final_score_pct, signal_level,
				board_exposure, board_count, hot_board_count,
				snap_date, fallback_reason, top_boards, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				$7, NULLIF($8, ''), NULLIF($9, ''), $10,
				$11, NULLIF($12, ''), $13, $14, $15,
				$16, $17, $18,
				$19, $20, $21,
				$22, NULLIF($23, ''), $24, NOW()
			)
			ON CONFLICT (stock_code, trade_date) DO UPDATE SET
				stock_name = EXCLUDED.stock_name,
				market_rank = EXCLUDED.market_rank,
				total_score = EXCLUDED.total_score,
				total_score_pct = EXCLUDED.total_score_pct,
				driver_board_id = EXCLUDED.driver_board_id,
				driver_board_name = EXCLUDED.driver_board_name,
				driver_board_type = EXCLUDED.driver_board_type,
				driver_heat_pct = EXCLUDED.driver_heat_pct,
				industry_board_id = EXCLUDED.industry_board_id,
				industry_board_name = EXCLUDED.industry_board_name,
				industry_heat_pct = EXCLUDED.industry_heat_pct,
				industry_safe = EXCLUDED.industry_safe,
				industry_status = EXCLUDED.industry_status,
				final_score = EXCLUDED.final_score,
				final_score_pct = EXCLUDED.final_score_pct,
				signal_level = EXCLUDED.signal_level,
				board_exposure = EXCLUDED.board_exposure,
				board_count = EXCLUDED.board_count,
				hot_board_count = EXCLUDED.hot_board_count,
				snap_date = EXCLUDED.snap_date,
				fallback_reason = EXCLUDED.fallback_reason,
				top_boards = EXCLUDED.top_boards,
				updated_at = NOW()
		`

		batch := &pgx.Batch{}
		for _, r := range rows {
			// top_boards: JSONB 로 json.Marshal 인코딩
			batch.Queue(query,
				r.StockCode, date, r.StockName, r.MarketRank, r.TotalScore, r.TotalScorePct,
				r.DriverBoardID, r.DriverBoardName, string(r.DriverBoardType), r.DriverHeatPct,
				r.IndustryBoardID, r.IndustryBoardName, r.IndustryHeatPct, r.IndustrySafe, string(r.IndustryStatus),
				r.FinalScore, r.FinalScorePct, string(r.SignalLevel),
				r.BoardExposure, r.BoardCount, r.HotBoardCount,
				r.SnapDate, string(r.FallbackReason), r.TopBoards,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upsert stock signals: %w", err)
		}
		return nil
	})
}

// MarkComputed advances engine.run_state for table; never moves backwards
func (s *PgStore) MarkComputed(ctx context.Context, table string, date time.Time) error {
	query := `
		INSERT INTO engine.run_state (table_name, last_computed_date, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (table_name) DO UPDATE SET
			last_computed_date = GREATEST(engine.run_state.last_computed_date, EXCLUDED.last_computed_date),
			updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query, table, date); err != nil {
		return fmt.Errorf("mark computed %s: %w", table, err)
	}
	return nil
}

// LastComputed returns the last computed date for table
func (s *PgStore) LastComputed(ctx context.Context, table string) (time.Time, bool, error) {
	var d time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT last_computed_date FROM engine.run_state WHERE table_name = $1`, table,
	).Scan(&d)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query run state %s: %w", table, err)
	}
	return d, true, nil
}

const heatColumns = `
	board_id, board_name, board_type, trade_date, snap_date, COALESCE(fallback_reason, ''),
	member_count, b1, b2, c1, c2, heat_raw, heat_pct, stddev, metric, k, is_gray
`

// BoardHeatByDate returns the date's heat rows ordered by board ID
func (s *PgStore) BoardHeatByDate(ctx context.Context, date time.Time) ([]contracts.BoardHeatDaily, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+heatColumns+` FROM engine.board_heat_daily WHERE trade_date = $1 ORDER BY board_id`, date)
	if err != nil {
		return nil, fmt.Errorf("query board heat: %w", err)
	}
	defer rows.Close()

	var out []contracts.BoardHeatDaily
	for rows.Next() {
		var h contracts.BoardHeatDaily
		var boardType, reason, metric string
		if err := rows.Scan(&h.BoardID, &h.BoardName, &boardType, &h.Date, &h.SnapDate, &reason,
			&h.MemberCount, &h.B1, &h.B2, &h.C1, &h.C2, &h.HeatRaw, &h.HeatPct, &h.StdDev,
			&metric, &h.K, &h.IsGray); err != nil {
			return nil, fmt.Errorf("scan board heat: %w", err)
		}
		h.BoardType = contracts.BoardType(boardType)
		h.FallbackReason = contracts.FallbackReason(reason)
		h.Metric = contracts.HeatMetric(metric)
		out = append(out, h)
	}
	return out, rows.Err()
}

const signalColumns = `
	stock_code, COALESCE(stock_name, ''), trade_date, market_rank, total_score, total_score_pct,
	driver_board_id, COALESCE(driver_board_name, ''), COALESCE(driver_board_type, ''), driver_heat_pct,
	industry_board_id, COALESCE(industry_board_name, ''), industry_heat_pct, industry_safe, industry_status,
	final_score, final_score_pct, signal_level,
	board_exposure, board_count, hot_board_count,
	snap_date, COALESCE(fallback_reason, ''), top_boards
`

func scanSignal(row pgx.Row) (contracts.StockBoardSignal, error) {
	var s contracts.StockBoardSignal
	var driverType, status, level, reason string
	err := row.Scan(
		&s.StockCode, &s.StockName, &s.Date, &s.MarketRank, &s.TotalScore, &s.TotalScorePct,
		&s.DriverBoardID, &s.DriverBoardName, &driverType, &s.DriverHeatPct,
		&s.IndustryBoardID, &s.IndustryBoardName, &s.IndustryHeatPct, &s.IndustrySafe, &status,
		&s.FinalScore, &s.FinalScorePct, &level,
		&s.BoardExposure, &s.BoardCount, &s.HotBoardCount,
		&s.SnapDate, &reason, &s.TopBoards,
	)
	if err != nil {
		return s, err
	}
	s.DriverBoardType = contracts.BoardType(driverType)
	s.IndustryStatus = contracts.IndustryStatus(status)
	s.SignalLevel = contracts.SignalLevel(level)
	s.FallbackReason = contracts.FallbackReason(reason)
	return s, nil
}

// StockSignal returns one row or contracts.ErrNotFound
func (s *PgStore) StockSignal(ctx context.Context, code string, date time.Time) (*contracts.StockBoardSignal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+signalColumns+` FROM engine.stock_board_signal WHERE stock_code = $1 AND trade_date = $2`,
		code, date)

	sig, err := scanSignal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query stock signal: %w", err)
	}
	return &sig, nil
}

// StockSignals returns rows for the codes that exist, in request order
func (s *PgStore) StockSignals(ctx context.Context, date time.Time, codes []string) ([]contracts.StockBoardSignal, error) {
	if len(codes) == 0 {
		return []contracts.StockBoardSignal{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+signalColumns+` FROM engine.stock_board_signal WHERE trade_date = $1 AND stock_code = ANY($2)`,
		date, codes)
	if err != nil {
		return nil, fmt.Errorf("query stock signals: %w", err)
	}
	defer rows.Close()

	byCode := make(map[string]contracts.StockBoardSignal, len(codes))
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock signal: %w", err)
		}
		byCode[sig.StockCode] = sig
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock signals: %w", err)
	}

	out := make([]contracts.StockBoardSignal, 0, len(byCode))
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if sig, ok := byCode[code]; ok && !seen[code] {
			seen[code] = true
			out = append(out, sig)
		}
	}
	return out, nil
}
