package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/boardheat/internal/scheduler"
	"github.com/wonny/boardheat/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작 (--serve 로 API 동시 실행)
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/boardheat scheduler start
  go run ./cmd/boardheat scheduler start --serve
  go run ./cmd/boardheat scheduler run board_heat_daily`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- board_heat_daily: 평일 18:30 (SCHEDULE_CRON, 누락일 포함 이어서 계산)
- outlier_warmup:   평일 18:45 (WARMUP_CRON, 순위 이상치 캐시 워밍)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerServe bool
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerStartCmd.Flags().BoolVar(&schedulerServe, "serve", false, "API 서버도 함께 실행 (/api/jobs 포함)")
}

// newScheduler registers every engine job
func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	opts := scheduler.DefaultOptions()
	opts.RunTimeout = a.cfg.Engine.RunTimeout

	sched := scheduler.New(opts, a.log)
	if err := sched.AddJob(jobs.NewBoardHeatJob(a.pipeline, a.cfg.Engine.Schedule, a.log)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewOutlierWarmupJob(a.outliers, a.cache, a.cfg.Engine.WarmupSchedule, a.log)); err != nil {
		return nil, err
	}
	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Board Heat Scheduler ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := a.newScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()
	defer sched.Stop()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if schedulerServe {
		fmt.Printf("\n✅ API running on http://localhost:%s\n", a.cfg.Port)
		return a.serve(ctx, a.router(sched))
	}

	<-ctx.Done()
	fmt.Println("\nShutting down scheduler...")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := a.newScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()
	widths := []int{20, 20}
	PrintTableHeader([]string{"JOB", "SCHEDULE"}, widths)
	for _, name := range sched.GetAllJobs() {
		PrintTableRow([]string{name, stats[name].Schedule}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := a.newScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	ctx, cancel := signalContext(a)
	defer cancel()

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunNow(ctx, jobName)
	if err != nil {
		PrintError(fmt.Sprintf("%s failed after %d attempt(s): %v", jobName, result.Attempts, err))
		return err
	}

	PrintSuccess(fmt.Sprintf("%s completed in %s", jobName, result.Duration))
	return nil
}
