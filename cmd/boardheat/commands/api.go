package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/boardheat/internal/api"
	"github.com/wonny/boardheat/internal/api/handlers"
	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/heat"
	"github.com/wonny/boardheat/internal/scheduler"
	"github.com/wonny/boardheat/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `읽기 전용 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                            - Health check
  GET  /api/boards/ranking                - 보드 히트 랭킹 (metric, k, limit, include_gray)
  GET  /api/stocks/{code}/signal          - 종목 시그널
  POST /api/stocks/signals                - 종목 시그널 일괄 조회
  GET  /api/stocks/outliers/rank-jump     - 전일 대비 순위 급등
  GET  /api/stocks/outliers/steady-rise   - 연속 순위 상승
  GET  /api/config                        - 적용 중인 스코어링 설정

Example:
  go run ./cmd/boardheat api
  go run ./cmd/boardheat api --port 8090`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본 PORT)")
}

// router builds the HTTP handler. jobs may be nil when no scheduler runs in-process.
func (a *app) router(jobs *scheduler.Scheduler) http.Handler {
	metric, _ := contracts.ParseHeatMetric(a.scoring.Heat.Metric)
	defaults := heat.RankingQuery{Metric: metric, K: a.scoring.Heat.K}

	h := api.Handlers{
		Board:   handlers.NewBoardHandler(a.ranking, a.results, a.cache, defaults, a.log),
		Signal:  handlers.NewSignalHandler(a.results, a.cache, a.cfg.API.MaxBatchCodes, a.log),
		Outlier: handlers.NewOutlierHandler(a.outliers, a.results, a.cache, a.log),
		Config:  handlers.NewConfigHandler(a.scoring, a.scoringHash),
		Health:  a.db,
	}
	if jobs != nil {
		h.Jobs = handlers.NewJobHandler(jobs, a.log)
	}

	limiter := api.NewRateLimiter(
		a.cfg.API.RateLimitRPS,
		a.cfg.API.RateLimitBurst,
		redis.NewRateLimiter(a.redis, "boardheat"),
		a.log,
	)
	return api.NewRouter(h, limiter, a.log)
}

// serve runs the server until ctx is done, then shuts down gracefully
func (a *app) serve(ctx context.Context, handler http.Handler) error {
	server := api.New(a.cfg, a.log, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Board Heat API Server ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port":        a.cfg.Port,
		"env":         a.cfg.Env,
		"config_hash": a.scoringHash,
		"redis":       a.redis.Enabled(),
	}).Info("Initializing API server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	return a.serve(ctx, a.router(nil))
}
