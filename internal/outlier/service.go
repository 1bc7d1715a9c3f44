package outlier

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
)

// holidayPadDays covers weekends and market holidays when converting
// a trading-day window into a calendar range
const holidayPadDays = 14

// Service loads rank series from the stock daily source and runs the detector
type Service struct {
	repo     contracts.StockDailyRepository
	detector *Detector
}

// NewService creates a Service
func NewService(repo contracts.StockDailyRepository, detector *Detector) *Service {
	return &Service{repo: repo, detector: detector}
}

// RankJump runs the rank-jump lens for date
func (s *Service) RankJump(ctx context.Context, date time.Time) (*contracts.OutlierResult, error) {
	points, err := s.load(ctx, date, 2)
	if err != nil {
		return nil, err
	}
	res := s.detector.DetectRankJump(points, date)
	if len(res.Signals) == 0 {
		return nil, fmt.Errorf("rank-jump %s: %w", contracts.FormatDate(date), contracts.ErrNoData)
	}
	return &res, nil
}

// SteadyRise runs the steady-rise lens for date
func (s *Service) SteadyRise(ctx context.Context, date time.Time) (*contracts.OutlierResult, error) {
	points, err := s.load(ctx, date, s.detector.cfg.SteadyRise.WindowDays)
	if err != nil {
		return nil, err
	}
	res := s.detector.DetectSteadyRise(points, date)
	if len(res.Signals) == 0 {
		return nil, fmt.Errorf("steady-rise %s: %w", contracts.FormatDate(date), contracts.ErrNoData)
	}
	return &res, nil
}

// load fetches the rank series covering the last n trading dates up to date
func (s *Service) load(ctx context.Context, date time.Time, n int) ([]contracts.RankPoint, error) {
	date = contracts.TradeDate(date)
	from := date.AddDate(0, 0, -(2*n + holidayPadDays))

	dates, err := s.repo.TradingDates(ctx, from, date)
	if err != nil {
		return nil, fmt.Errorf("load trading dates: %w", err)
	}
	if len(dates) == 0 || !dates[len(dates)-1].Equal(date) {
		return nil, fmt.Errorf("no rank data on %s: %w", contracts.FormatDate(date), contracts.ErrNoData)
	}
	if len(dates) > n {
		dates = dates[len(dates)-n:]
	}

	points, err := s.repo.RankSeries(ctx, dates[0], date)
	if err != nil {
		return nil, fmt.Errorf("load rank series: %w", err)
	}
	return points, nil
}
