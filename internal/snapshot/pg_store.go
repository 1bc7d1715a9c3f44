package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/boardheat/internal/contracts"
)

// PgStore reads engine.board_membership
// (stock_code, board_id, snap_date) 가 PK, ingestion 은 외부 협력자 책임
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a PgStore
func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

// RowsForBoard returns every membership row of a board on exactly date
func (s *PgStore) RowsForBoard(ctx context.Context, boardID int64, date time.Time) ([]contracts.MembershipRow, error) {
	query := `
		SELECT stock_code, board_id, snap_date, rank, weight, score
		FROM engine.board_membership
		WHERE board_id = $1 AND snap_date = $2
		ORDER BY rank, stock_code
	`
	rows, err := s.db.Query(ctx, query, boardID, date)
	if err != nil {
		return nil, fmt.Errorf("query membership: %w", err)
	}
	defer rows.Close()

	var out []contracts.MembershipRow
	for rows.Next() {
		var r contracts.MembershipRow
		if err := rows.Scan(&r.StockCode, &r.BoardID, &r.Date, &r.Rank, &r.Weight, &r.Score); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate membership: %w", err)
	}
	return out, nil
}

// LatestDateOnOrBefore returns MAX(snap_date) within [notBefore, date]
func (s *PgStore) LatestDateOnOrBefore(ctx context.Context, boardID int64, date, notBefore time.Time) (time.Time, bool, error) {
	query := `
		SELECT MAX(snap_date)
		FROM engine.board_membership
		WHERE board_id = $1 AND snap_date BETWEEN $2 AND $3
	`
	var snap *time.Time
	if err := s.db.QueryRow(ctx, query, boardID, notBefore, date).Scan(&snap); err != nil {
		return time.Time{}, false, fmt.Errorf("query latest snapshot: %w", err)
	}
	if snap == nil {
		return time.Time{}, false, nil
	}
	return *snap, true, nil
}
