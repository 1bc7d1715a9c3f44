package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/boardheat/internal/api/handlers"
	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/heat"
	"github.com/wonny/boardheat/internal/marketdata"
	"github.com/wonny/boardheat/internal/outlier"
	"github.com/wonny/boardheat/internal/resultstore"
	"github.com/wonny/boardheat/internal/scheduler"
	"github.com/wonny/boardheat/internal/scoringconfig"
	"github.com/wonny/boardheat/internal/snapshot"
	"github.com/wonny/boardheat/pkg/logger"
	"github.com/wonny/boardheat/pkg/redis"
)

var (
	day7 = time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
	day8 = time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
)

type noopJob struct{}

func (noopJob) Name() string                  { return "board_heat_daily" }
func (noopJob) Schedule() string              { return "0 30 18 * * 1-5" }
func (noopJob) Run(ctx context.Context) error { return nil }

func heatRow(id int64, name string, b1 float64, gray bool) contracts.BoardHeatDaily {
	return contracts.BoardHeatDaily{
		BoardID: id, BoardName: name, BoardType: contracts.BoardTypeConcept,
		Date: day8, SnapDate: day8, MemberCount: 3,
		B1: b1, B2: b1 / 3, Metric: contracts.MetricB1, K: 1.0, IsGray: gray,
	}
}

func signal(code string, level contracts.SignalLevel) contracts.StockBoardSignal {
	return contracts.StockBoardSignal{
		StockCode:      code,
		Date:           day8,
		SignalLevel:    level,
		IndustryStatus: contracts.IndustryUnknown,
		TopBoards:      contracts.NewTopBoards([]contracts.TopBoardEntry{{BoardID: 1, HeatPct: 1, Type: contracts.BoardTypeConcept}}),
	}
}

func newTestRouter(t *testing.T, limiter *RateLimiter) http.Handler {
	t.Helper()
	ctx := context.Background()
	log := logger.Nop()
	cfg := scoringconfig.Default()

	results := resultstore.NewMemoryStore()
	require.NoError(t, results.UpsertBoardHeat(ctx, day8, heat.Rerank([]contracts.BoardHeatDaily{
		heatRow(1, "반도체", 3.0, false),
		heatRow(2, "AI", 2.0, false),
		heatRow(3, "우선주", 1.0, true),
	}, contracts.MetricB1)))
	require.NoError(t, results.UpsertStockSignals(ctx, day8, []contracts.StockBoardSignal{
		signal("005930", contracts.SignalS),
		signal("000660", contracts.SignalB),
	}))
	require.NoError(t, results.MarkComputed(ctx, contracts.TableBoardHeat, day8))
	require.NoError(t, results.MarkComputed(ctx, contracts.TableStockSignal, day8))

	agg := heat.NewAggregator(snapshot.NewResolver(snapshot.NewMemoryStore(), 7), 1, log)
	boardSets := func(ctx context.Context, date time.Time) (*contracts.BoardSet, error) {
		return contracts.NewBoardSet(date, nil, nil, nil), nil
	}
	ranking := heat.NewRankingService(results, agg, boardSets, log)

	stocks := marketdata.NewMemoryRepository()
	stocks.Add(
		contracts.StockDaily{Code: "005930", Date: day7, MarketRank: 500},
		contracts.StockDaily{Code: "005930", Date: day8, MarketRank: 100},
		contracts.StockDaily{Code: "000660", Date: day7, MarketRank: 50},
		contracts.StockDaily{Code: "000660", Date: day8, MarketRank: 60},
	)
	outliers := outlier.NewService(stocks, outlier.NewDetector(cfg.Outlier, log))

	sched := scheduler.New(scheduler.DefaultOptions(), log)
	require.NoError(t, sched.AddJob(noopJob{}))

	cache := redis.NewCache(redis.Disabled(), "test", time.Minute)
	defaults := heat.RankingQuery{Metric: contracts.MetricB1, K: 1.0}

	return NewRouter(Handlers{
		Board:   handlers.NewBoardHandler(ranking, results, cache, defaults, log),
		Signal:  handlers.NewSignalHandler(results, cache, 3, log),
		Outlier: handlers.NewOutlierHandler(outliers, results, cache, log),
		Jobs:    handlers.NewJobHandler(sched, log),
		Config:  handlers.NewConfigHandler(cfg, "abc123"),
	}, limiter, log)
}

func do(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(t, nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestBoardRanking(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		name     string
		target   string
		wantCode int
		wantIDs  []int64
	}{
		{"defaults to last computed date", "/api/boards/ranking", http.StatusOK, []int64{1, 2}},
		{"include gray", "/api/boards/ranking?date=2026-01-08&include_gray=true", http.StatusOK, []int64{1, 2, 3}},
		{"limit", "/api/boards/ranking?limit=1", http.StatusOK, []int64{1}},
		{"k-independent metric reuses stored rows", "/api/boards/ranking?metric=c1&k=2", http.StatusOK, nil},
		{"bad metric", "/api/boards/ranking?metric=Z9", http.StatusBadRequest, nil},
		{"bad k", "/api/boards/ranking?k=-1", http.StatusBadRequest, nil},
		{"bad date", "/api/boards/ranking?date=2026/01/08", http.StatusBadRequest, nil},
		{"no data", "/api/boards/ranking?date=2026-01-09", http.StatusNotFound, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, tt.target, nil)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantIDs == nil {
				return
			}
			var resp handlers.RankingResponse
			decode(t, rec, &resp)
			assert.Equal(t, "2026-01-08", resp.Date)
			ids := make([]int64, len(resp.Boards))
			for i, b := range resp.Boards {
				ids[i] = b.BoardID
				assert.Equal(t, i+1, b.Rank)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestStockSignal(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/api/stocks/005930/signal", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sig contracts.StockBoardSignal
	decode(t, rec, &sig)
	assert.Equal(t, contracts.SignalS, sig.SignalLevel)
	assert.Equal(t, contracts.TopBoardsVersion, sig.TopBoards.Version)

	// 캐시 적중 후에도 동일
	rec = do(t, router, http.MethodGet, "/api/stocks/005930/signal?date=2026-01-08", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/stocks/999999/signal", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStockSignals_Batch(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodPost, "/api/stocks/signals", handlers.BatchRequest{
		Date:  "2026-01-08",
		Codes: []string{"000660", " 005930 ", "000660", "123456"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.BatchResponse
	decode(t, rec, &resp)
	require.Len(t, resp.Signals, 2)
	assert.Equal(t, "000660", resp.Signals[0].StockCode)
	assert.Equal(t, "005930", resp.Signals[1].StockCode)
	assert.Equal(t, []string{"123456"}, resp.Missing)

	tests := []struct {
		name string
		body interface{}
	}{
		{"empty codes", handlers.BatchRequest{Codes: []string{" "}}},
		{"too many codes", handlers.BatchRequest{Codes: []string{"1", "2", "3", "4"}}},
		{"bad date", handlers.BatchRequest{Date: "yesterday", Codes: []string{"005930"}}},
		{"not json", "codes=005930"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/stocks/signals", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestOutliers(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/api/stocks/outliers/rank-jump", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res contracts.OutlierResult
	decode(t, rec, &res)
	require.Len(t, res.Signals, 2)
	assert.Equal(t, "005930", res.Signals[0].Code)
	assert.Equal(t, 400, res.Signals[0].Improvement)

	rec = do(t, router, http.MethodGet, "/api/stocks/outliers/rank-jump?flagged=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &res)
	require.Len(t, res.Signals, 1)
	assert.True(t, res.Signals[0].PassesThreshold)

	rec = do(t, router, http.MethodGet, "/api/stocks/outliers/steady-rise", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "two days of history is shorter than the window")

	rec = do(t, router, http.MethodGet, "/api/stocks/outliers/rank-jump?flagged=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobsAndConfig(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := do(t, router, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"job_name":"board_heat_daily"`)

	rec = do(t, router, http.MethodPost, "/api/jobs/missing/run", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hash":"abc123"`)
	assert.Contains(t, rec.Body.String(), `"warnings":[]`)
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2, nil, logger.Nop())
	router := newTestRouter(t, limiter)

	for i := 0; i < 2; i++ {
		rec := do(t, router, http.MethodGet, "/api/config", nil)
		require.Equal(t, http.StatusOK, rec.Code, fmt.Sprintf("request %d", i))
	}
	rec := do(t, router, http.MethodGet, "/api/config", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// 다른 클라이언트는 별도 버킷
	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.9, 10.0.0.1")
	other := httptest.NewRecorder()
	router.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)

	// health 는 제한 없음
	rec = do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "Internal server error"))
}
