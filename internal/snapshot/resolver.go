package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
)

// DefaultMaxLookbackDays is the calendar-day window used when none is configured
const DefaultMaxLookbackDays = 7

// Resolver maps (board, trade date) to the snapshot date actually used.
// Read-only and deterministic: same data → same resolution.
type Resolver struct {
	store           contracts.SnapshotStore
	maxLookbackDays int
}

// NewResolver creates a Resolver; negative lookback is treated as 0 (exact only)
func NewResolver(store contracts.SnapshotStore, maxLookbackDays int) *Resolver {
	if maxLookbackDays < 0 {
		maxLookbackDays = 0
	}
	return &Resolver{store: store, maxLookbackDays: maxLookbackDays}
}

// MaxLookbackDays returns the configured window
func (r *Resolver) MaxLookbackDays() int {
	return r.maxLookbackDays
}

// Resolve finds the most recent snapshot date in [tradeDate-maxLookback, tradeDate].
// No data in the window is not an error: Found=false, Reason=NO_DATA_IN_WINDOW.
func (r *Resolver) Resolve(ctx context.Context, boardID int64, tradeDate time.Time) (contracts.Resolution, error) {
	td := contracts.TradeDate(tradeDate)
	res := contracts.Resolution{BoardID: boardID, TradeDate: td}

	notBefore := td.AddDate(0, 0, -r.maxLookbackDays)
	snap, ok, err := r.store.LatestDateOnOrBefore(ctx, boardID, td, notBefore)
	if err != nil {
		return res, fmt.Errorf("resolve board %d at %s: %w", boardID, contracts.FormatDate(td), err)
	}

	if !ok {
		res.Reason = contracts.FallbackNoData
		return res, nil
	}

	snap = contracts.TradeDate(snap)
	res.Found = true
	res.SnapDate = snap
	res.LagDays = contracts.DaysBetween(snap, td)
	if res.LagDays > 0 {
		res.Reason = contracts.FallbackPriorSnapshot
	}
	return res, nil
}

// ResolveRows resolves and loads the board's membership rows at the resolved date
func (r *Resolver) ResolveRows(ctx context.Context, boardID int64, tradeDate time.Time) (contracts.Resolution, []contracts.MembershipRow, error) {
	res, err := r.Resolve(ctx, boardID, tradeDate)
	if err != nil || !res.Found {
		return res, nil, err
	}

	rows, err := r.store.RowsForBoard(ctx, boardID, res.SnapDate)
	if err != nil {
		return res, nil, fmt.Errorf("load rows board %d at %s: %w", boardID, contracts.FormatDate(res.SnapDate), err)
	}
	return res, rows, nil
}
