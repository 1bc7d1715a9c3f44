package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/pkg/logger"
	"github.com/wonny/boardheat/pkg/redis"
)

// OutlierSource produces rank-jump and steady-rise results
type OutlierSource interface {
	RankJump(ctx context.Context, date time.Time) (*contracts.OutlierResult, error)
	SteadyRise(ctx context.Context, date time.Time) (*contracts.OutlierResult, error)
}

// OutlierHandler handles outlier endpoints
type OutlierHandler struct {
	source OutlierSource
	state  RunState
	cache  *redis.Cache
	logger *logger.Logger
}

// NewOutlierHandler creates a new outlier handler
func NewOutlierHandler(source OutlierSource, state RunState, cache *redis.Cache, log *logger.Logger) *OutlierHandler {
	return &OutlierHandler{
		source: source,
		state:  state,
		cache:  cache,
		logger: log,
	}
}

// GetRankJump returns day-over-day rank movement
// GET /api/stocks/outliers/rank-jump?date=YYYY-MM-DD&flagged=true
func (h *OutlierHandler) GetRankJump(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, contracts.OutlierRankJump, h.source.RankJump)
}

// GetSteadyRise returns multi-day monotonic rank improvement
// GET /api/stocks/outliers/steady-rise?date=YYYY-MM-DD&flagged=true
func (h *OutlierHandler) GetSteadyRise(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, contracts.OutlierSteadyRise, h.source.SteadyRise)
}

func (h *OutlierHandler) serve(
	w http.ResponseWriter,
	r *http.Request,
	kind contracts.OutlierKind,
	fn func(context.Context, time.Time) (*contracts.OutlierResult, error),
) {
	ctx := r.Context()

	flagged := false
	if raw := r.URL.Query().Get("flagged"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "flagged must be a boolean")
			return
		}
		flagged = v
	}

	// 랭크 원천은 시그널과 같은 날 적재됨
	date, err := resolveDate(ctx, r.URL.Query().Get("date"), h.state, contracts.TableStockSignal)
	if err != nil {
		respondError(w, dateStatus(err), err.Error())
		return
	}
	dateKey := contracts.FormatDate(date)

	var res contracts.OutlierResult
	err = h.cache.GetOrSet(ctx, redis.OutlierKey(string(kind), dateKey), &res, func() (interface{}, error) {
		return fn(ctx, date)
	})
	if err != nil {
		status := lookupStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.WithError(err).WithFields(map[string]interface{}{
				"kind": string(kind),
				"date": dateKey,
			}).Error("Failed to detect outliers")
		}
		respondError(w, status, fmt.Sprintf("%s for %s unavailable", kind, dateKey))
		return
	}

	if flagged {
		res.Signals = onlyFlagged(res.Signals)
	}
	respondJSON(w, http.StatusOK, res)
}

// onlyFlagged keeps signals flagged by either lens
func onlyFlagged(in []contracts.OutlierSignal) []contracts.OutlierSignal {
	out := make([]contracts.OutlierSignal, 0, len(in))
	for _, s := range in {
		if s.PassesThreshold || s.Outlier {
			out = append(out, s)
		}
	}
	return out
}
