package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/heat"
	"github.com/wonny/boardheat/pkg/logger"
	"github.com/wonny/boardheat/pkg/redis"
)

const (
	defaultRankingLimit = 50
	maxRankingLimit     = 1000
)

// RankingSource serves board rankings for any (metric, k)
type RankingSource interface {
	Ranking(ctx context.Context, date time.Time, q heat.RankingQuery) ([]heat.RankingEntry, error)
}

// BoardHandler handles board ranking endpoints
// ⭐ SSOT: 보드 랭킹 API 핸들러는 이 구조체에서만
type BoardHandler struct {
	ranking  RankingSource
	state    RunState
	cache    *redis.Cache
	defaults heat.RankingQuery
	logger   *logger.Logger
}

// NewBoardHandler creates a new board handler.
// defaults supplies the metric and k used when the query omits them.
func NewBoardHandler(ranking RankingSource, state RunState, cache *redis.Cache, defaults heat.RankingQuery, log *logger.Logger) *BoardHandler {
	return &BoardHandler{
		ranking:  ranking,
		state:    state,
		cache:    cache,
		defaults: defaults,
		logger:   log,
	}
}

// RankingResponse is the board ranking payload
type RankingResponse struct {
	Date        string               `json:"date"`
	Metric      contracts.HeatMetric `json:"metric"`
	K           float64              `json:"k"`
	IncludeGray bool                 `json:"include_gray"`
	Count       int                  `json:"count"`
	Boards      []heat.RankingEntry  `json:"boards"`
}

// GetRanking returns boards ordered by heat percentile
// GET /api/boards/ranking?date=YYYY-MM-DD&metric=B1&k=1.0&limit=50&include_gray=false
func (h *BoardHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := h.parseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := resolveDate(ctx, r.URL.Query().Get("date"), h.state, contracts.TableBoardHeat)
	if err != nil {
		respondError(w, dateStatus(err), err.Error())
		return
	}
	dateKey := contracts.FormatDate(date)

	var resp RankingResponse
	key := redis.BoardRankingKey(dateKey, string(q.Metric), q.K, q.Limit, q.IncludeGray)
	err = h.cache.GetOrSet(ctx, key, &resp, func() (interface{}, error) {
		entries, err := h.ranking.Ranking(ctx, date, q)
		if err != nil {
			return nil, err
		}
		return RankingResponse{
			Date:        dateKey,
			Metric:      q.Metric,
			K:           q.K,
			IncludeGray: q.IncludeGray,
			Count:       len(entries),
			Boards:      entries,
		}, nil
	})
	if err != nil {
		status := lookupStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.WithError(err).WithField("date", dateKey).Error("Failed to build board ranking")
		}
		respondError(w, status, fmt.Sprintf("board ranking for %s unavailable", dateKey))
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *BoardHandler) parseQuery(r *http.Request) (heat.RankingQuery, error) {
	params := r.URL.Query()
	q := h.defaults
	q.Limit = defaultRankingLimit

	if raw := strings.TrimSpace(params.Get("metric")); raw != "" {
		m, err := contracts.ParseHeatMetric(raw)
		if err != nil {
			return q, err
		}
		q.Metric = m
	}
	if raw := params.Get("k"); raw != "" {
		k, err := strconv.ParseFloat(raw, 64)
		if err != nil || k <= 0 {
			return q, fmt.Errorf("k must be a positive number")
		}
		q.K = k
	}
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxRankingLimit {
			return q, fmt.Errorf("limit must be between 0 and %d", maxRankingLimit)
		}
		q.Limit = n
	}
	if raw := params.Get("include_gray"); raw != "" {
		g, err := strconv.ParseBool(raw)
		if err != nil {
			return q, fmt.Errorf("include_gray must be a boolean")
		}
		q.IncludeGray = g
	}
	return q, nil
}
