package resultstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
)

// MemoryStore is an in-memory contracts.ResultStore, safe for concurrent use
type MemoryStore struct {
	mu       sync.RWMutex
	heat     map[time.Time][]contracts.BoardHeatDaily
	signals  map[time.Time]map[string]contracts.StockBoardSignal
	computed map[string]time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		heat:     make(map[time.Time][]contracts.BoardHeatDaily),
		signals:  make(map[time.Time]map[string]contracts.StockBoardSignal),
		computed: make(map[string]time.Time),
	}
}

// UpsertBoardHeat replaces the date's heat rows
func (m *MemoryStore) UpsertBoardHeat(_ context.Context, date time.Time, rows []contracts.BoardHeatDaily) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := append([]contracts.BoardHeatDaily(nil), rows...)
	sort.Slice(cp, func(i, j int) bool { return cp[i].BoardID < cp[j].BoardID })
	m.heat[contracts.TradeDate(date)] = cp
	return nil
}

// UpsertStockSignals replaces the date's signal rows
func (m *MemoryStore) UpsertStockSignals(_ context.Context, date time.Time, rows []contracts.StockBoardSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byCode := make(map[string]contracts.StockBoardSignal, len(rows))
	for _, r := range rows {
		byCode[r.StockCode] = cloneSignal(r)
	}
	m.signals[contracts.TradeDate(date)] = byCode
	return nil
}

// MarkComputed records date as the last computed date when it is newer
func (m *MemoryStore) MarkComputed(_ context.Context, table string, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	date = contracts.TradeDate(date)
	if prev, ok := m.computed[table]; !ok || date.After(prev) {
		m.computed[table] = date
	}
	return nil
}

// LastComputed returns the last computed date for table
func (m *MemoryStore) LastComputed(_ context.Context, table string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.computed[table]
	return d, ok, nil
}

// BoardHeatByDate returns the date's heat rows ordered by board ID
func (m *MemoryStore) BoardHeatByDate(_ context.Context, date time.Time) ([]contracts.BoardHeatDaily, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]contracts.BoardHeatDaily(nil), m.heat[contracts.TradeDate(date)]...), nil
}

// StockSignal returns one row or contracts.ErrNotFound
func (m *MemoryStore) StockSignal(_ context.Context, code string, date time.Time) (*contracts.StockBoardSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.signals[contracts.TradeDate(date)][code]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	out := cloneSignal(s)
	return &out, nil
}

// StockSignals returns rows for the codes that exist, in request order
func (m *MemoryStore) StockSignals(_ context.Context, date time.Time, codes []string) ([]contracts.StockBoardSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byCode := m.signals[contracts.TradeDate(date)]
	out := make([]contracts.StockBoardSignal, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		if s, ok := byCode[code]; ok {
			out = append(out, cloneSignal(s))
		}
	}
	return out, nil
}

func cloneSignal(s contracts.StockBoardSignal) contracts.StockBoardSignal {
	s.TopBoards.Entries = append([]contracts.TopBoardEntry{}, s.TopBoards.Entries...)
	return s
}
