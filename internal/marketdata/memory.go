package marketdata

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
)

// MemoryRepository is an in-memory contracts.StockDailyRepository
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[time.Time]map[string]contracts.StockDaily
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[time.Time]map[string]contracts.StockDaily)}
}

// Add upserts rows keyed by (code, date)
func (m *MemoryRepository) Add(rows ...contracts.StockDaily) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range rows {
		s.Date = contracts.TradeDate(s.Date)
		byCode, ok := m.rows[s.Date]
		if !ok {
			byCode = make(map[string]contracts.StockDaily)
			m.rows[s.Date] = byCode
		}
		byCode[s.Code] = s
	}
}

// ListByDate returns the date's stocks ordered by code
func (m *MemoryRepository) ListByDate(_ context.Context, date time.Time) ([]contracts.StockDaily, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byCode := m.rows[contracts.TradeDate(date)]
	out := make([]contracts.StockDaily, 0, len(byCode))
	for _, s := range byCode {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// RankSeries returns ranked observations in [from, to] ordered by code then date
func (m *MemoryRepository) RankSeries(_ context.Context, from, to time.Time) ([]contracts.RankPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from, to = contracts.TradeDate(from), contracts.TradeDate(to)
	var out []contracts.RankPoint
	for d, byCode := range m.rows {
		if d.Before(from) || d.After(to) {
			continue
		}
		for _, s := range byCode {
			if s.MarketRank <= 0 {
				continue
			}
			out = append(out, contracts.RankPoint{Code: s.Code, Date: d, Rank: s.MarketRank})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// TradingDates returns dates with at least one stock in [from, to], ascending
func (m *MemoryRepository) TradingDates(_ context.Context, from, to time.Time) ([]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from, to = contracts.TradeDate(from), contracts.TradeDate(to)
	var out []time.Time
	for d, byCode := range m.rows {
		if len(byCode) == 0 || d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}
