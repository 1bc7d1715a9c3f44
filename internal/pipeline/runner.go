package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
)

// RunRange runs every trading date in [from, to] in ascending order.
// Stops at the first failure; completed dates stay committed.
func (p *Pipeline) RunRange(ctx context.Context, from, to time.Time) ([]*RunResult, error) {
	from, to = contracts.TradeDate(from), contracts.TradeDate(to)
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range %s..%s", contracts.FormatDate(from), contracts.FormatDate(to))
	}

	dates, err := p.stocks.TradingDates(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list trading dates: %w", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"from":  contracts.FormatDate(from),
		"to":    contracts.FormatDate(to),
		"dates": len(dates),
	}).Info("Starting range run")

	results := make([]*RunResult, 0, len(dates))
	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("range run cancelled: %w", err)
		}
		res, err := p.Run(ctx, d)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Resume continues from the day after the last fully computed date up to target.
// Without run state, only target is computed.
func (p *Pipeline) Resume(ctx context.Context, target time.Time) ([]*RunResult, error) {
	target = contracts.TradeDate(target)

	last, ok, err := p.results.LastComputed(ctx, contracts.TableStockSignal)
	if err != nil {
		return nil, fmt.Errorf("read run state: %w", err)
	}

	from := target
	if ok {
		from = last.AddDate(0, 0, 1)
	}
	if from.After(target) {
		p.logger.WithFields(map[string]interface{}{
			"last_computed": contracts.FormatDate(last),
			"target":        contracts.FormatDate(target),
		}).Info("Nothing to resume")
		return []*RunResult{}, nil
	}

	return p.RunRange(ctx, from, target)
}
