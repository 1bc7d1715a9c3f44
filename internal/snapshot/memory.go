package snapshot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
)

type boardDate struct {
	boardID int64
	date    time.Time
}

// MemoryStore is an in-memory SnapshotStore, safe for concurrent use
type MemoryStore struct {
	mu    sync.RWMutex
	rows  map[boardDate][]contracts.MembershipRow
	dates map[int64][]time.Time // 보드별 정렬된 스냅샷 날짜
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:  make(map[boardDate][]contracts.MembershipRow),
		dates: make(map[int64][]time.Time),
	}
}

// Add upserts rows keyed by (stock, board, date)
func (m *MemoryStore) Add(rows ...contracts.MembershipRow) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range rows {
		row.Date = contracts.TradeDate(row.Date)
		key := boardDate{row.BoardID, row.Date}

		existing := m.rows[key]
		replaced := false
		for i := range existing {
			if existing[i].StockCode == row.StockCode {
				existing[i] = row
				replaced = true
				break
			}
		}
		if !replaced {
			if len(existing) == 0 {
				m.insertDate(row.BoardID, row.Date)
			}
			existing = append(existing, row)
		}
		m.rows[key] = existing
	}
}

func (m *MemoryStore) insertDate(boardID int64, date time.Time) {
	ds := m.dates[boardID]
	i := sort.Search(len(ds), func(i int) bool { return !ds[i].Before(date) })
	ds = append(ds, time.Time{})
	copy(ds[i+1:], ds[i:])
	ds[i] = date
	m.dates[boardID] = ds
}

// RowsForBoard returns the rows for exactly date, ordered by rank then stock
func (m *MemoryStore) RowsForBoard(_ context.Context, boardID int64, date time.Time) ([]contracts.MembershipRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := append([]contracts.MembershipRow(nil), m.rows[boardDate{boardID, contracts.TradeDate(date)}]...)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Rank != rows[j].Rank {
			return rows[i].Rank < rows[j].Rank
		}
		return rows[i].StockCode < rows[j].StockCode
	})
	return rows, nil
}

// LatestDateOnOrBefore returns the newest snapshot date in [notBefore, date]
func (m *MemoryStore) LatestDateOnOrBefore(_ context.Context, boardID int64, date, notBefore time.Time) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	date = contracts.TradeDate(date)
	notBefore = contracts.TradeDate(notBefore)

	ds := m.dates[boardID]
	// 첫 번째 date 초과 위치 - 1
	i := sort.Search(len(ds), func(i int) bool { return ds[i].After(date) }) - 1
	if i < 0 || ds[i].Before(notBefore) {
		return time.Time{}, false, nil
	}
	return ds[i], true, nil
}
