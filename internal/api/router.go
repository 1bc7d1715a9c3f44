package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/boardheat/internal/api/handlers"
	"github.com/wonny/boardheat/pkg/database"
	"github.com/wonny/boardheat/pkg/logger"
)

// HealthChecker reports storage health for /health
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// Handlers groups the endpoint handlers. Jobs, Config and Health are optional.
type Handlers struct {
	Board   *handlers.BoardHandler
	Signal  *handlers.SignalHandler
	Outlier *handlers.OutlierHandler
	Jobs    *handlers.JobHandler
	Config  *handlers.ConfigHandler
	Health  HealthChecker
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, limiter *RateLimiter, log *logger.Logger) http.Handler {
	r := mux.NewRouter()
	log = log.WithComponent("api")

	// Health check (레이트 리밋 제외)
	r.HandleFunc("/health", healthCheckHandler(h.Health)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	if limiter != nil {
		api.Use(limiter.Middleware())
	}

	// Board endpoints
	api.HandleFunc("/boards/ranking", h.Board.GetRanking).Methods("GET")

	// Stock endpoints (outliers 먼저 등록해야 {code} 와 충돌 없음)
	api.HandleFunc("/stocks/outliers/rank-jump", h.Outlier.GetRankJump).Methods("GET")
	api.HandleFunc("/stocks/outliers/steady-rise", h.Outlier.GetSteadyRise).Methods("GET")
	api.HandleFunc("/stocks/signals", h.Signal.GetSignals).Methods("POST")
	api.HandleFunc("/stocks/{code}/signal", h.Signal.GetSignal).Methods("GET")

	if h.Jobs != nil {
		api.HandleFunc("/jobs", h.Jobs.ListJobs).Methods("GET")
		api.HandleFunc("/jobs/{name}/run", h.Jobs.TriggerJob).Methods("POST")
	}
	if h.Config != nil {
		api.HandleFunc("/config", h.Config.GetConfig).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "ok",
			"service": "boardheat-api",
		}
		status := http.StatusOK

		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			db, err := checker.HealthCheck(ctx)
			body["database"] = db
			if err != nil {
				body["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
