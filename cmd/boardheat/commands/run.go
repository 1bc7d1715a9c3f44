package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/pipeline"
)

// runCmd computes one date or a date range
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "보드 히트/종목 시그널 계산",
	Long: `지정한 거래일(또는 구간)의 보드 히트와 종목 시그널을 계산하고 저장합니다.

같은 날짜를 다시 실행하면 동일한 결과로 덮어씁니다.

Example:
  go run ./cmd/boardheat run --date 2026-01-08
  go run ./cmd/boardheat run --from 2026-01-02 --to 2026-01-08`,
	RunE: runPipeline,
}

// resumeCmd continues from the last computed date
var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "마지막 계산일 이후부터 이어서 계산",
	Long: `마지막으로 완료된 날짜 다음 거래일부터 목표일까지 계산합니다.
실행 이력이 없으면 목표일만 계산합니다.

Example:
  go run ./cmd/boardheat resume
  go run ./cmd/boardheat resume --date 2026-01-08`,
	RunE: runResume,
}

var (
	runDate   string
	runFrom   string
	runTo     string
	runTarget string
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)

	runCmd.Flags().StringVar(&runDate, "date", "", "거래일 YYYY-MM-DD (기본: 오늘)")
	runCmd.Flags().StringVar(&runFrom, "from", "", "구간 시작일 YYYY-MM-DD")
	runCmd.Flags().StringVar(&runTo, "to", "", "구간 종료일 YYYY-MM-DD")
	runCmd.MarkFlagsRequiredTogether("from", "to")
	runCmd.MarkFlagsMutuallyExclusive("date", "from")

	resumeCmd.Flags().StringVar(&runTarget, "date", "", "목표일 YYYY-MM-DD (기본: 오늘)")
}

// signalContext cancels on Ctrl+C / SIGTERM and applies the run timeout
func signalContext(a *app) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Engine.RunTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext(a)
	defer cancel()

	var results []*pipeline.RunResult
	if runFrom != "" {
		from, err := contracts.ParseTradeDate(runFrom)
		if err != nil {
			return err
		}
		to, err := contracts.ParseTradeDate(runTo)
		if err != nil {
			return err
		}
		PrintHeader("Board Heat Run", map[string]string{
			"Period": fmt.Sprintf("%s ~ %s", runFrom, runTo),
			"Config": shortHash(a.scoringHash),
		}, []string{"Period", "Config"})
		results, err = a.pipeline.RunRange(ctx, from, to)
		PrintRunResults(results)
		return err
	}

	date, err := parseDateFlag(runDate)
	if err != nil {
		return err
	}
	PrintHeader("Board Heat Run", map[string]string{
		"Date":   contracts.FormatDate(date),
		"Config": shortHash(a.scoringHash),
	}, []string{"Date", "Config"})

	res, err := a.pipeline.Run(ctx, date)
	if res != nil {
		results = append(results, res)
	}
	PrintRunResults(results)
	return err
}

func runResume(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	target, err := parseDateFlag(runTarget)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(a)
	defer cancel()

	PrintHeader("Board Heat Resume", map[string]string{
		"Target": contracts.FormatDate(target),
		"Config": shortHash(a.scoringHash),
	}, []string{"Target", "Config"})

	results, err := a.pipeline.Resume(ctx, target)
	if len(results) == 0 && err == nil {
		PrintSuccess("Already up to date")
		return nil
	}
	PrintRunResults(results)
	return err
}
