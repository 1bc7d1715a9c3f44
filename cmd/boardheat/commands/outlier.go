package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/boardheat/internal/contracts"
)

// outlierCmd represents the outlier command
var outlierCmd = &cobra.Command{
	Use:   "outlier",
	Short: "순위 이상치 탐지",
	Long: `시장 순위 이동을 두 관점(절대 임계값 / σ 밴드)으로 탐지합니다.

Subcommands:
  rank-jump    - 직전 거래일 대비 순위 급등
  steady-rise  - window_days 동안 연속 순위 상승

Example:
  go run ./cmd/boardheat outlier rank-jump --date 2026-01-08
  go run ./cmd/boardheat outlier steady-rise --flagged`,
}

var (
	outlierRankJumpCmd = &cobra.Command{
		Use:   "rank-jump",
		Short: "직전 거래일 대비 순위 급등",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutlier(cmd, contracts.OutlierRankJump)
		},
	}

	outlierSteadyRiseCmd = &cobra.Command{
		Use:   "steady-rise",
		Short: "연속 순위 상승",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutlier(cmd, contracts.OutlierSteadyRise)
		},
	}

	outlierDate    string
	outlierFlagged bool
)

func init() {
	rootCmd.AddCommand(outlierCmd)
	outlierCmd.AddCommand(outlierRankJumpCmd)
	outlierCmd.AddCommand(outlierSteadyRiseCmd)

	outlierCmd.PersistentFlags().StringVar(&outlierDate, "date", "", "거래일 YYYY-MM-DD (기본: 오늘)")
	outlierCmd.PersistentFlags().BoolVar(&outlierFlagged, "flagged", false, "임계값 또는 σ 밴드에 걸린 종목만")
}

func runOutlier(cmd *cobra.Command, kind contracts.OutlierKind) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	date, err := parseDateFlag(outlierDate)
	if err != nil {
		return err
	}

	detect := a.outliers.RankJump
	if kind == contracts.OutlierSteadyRise {
		detect = a.outliers.SteadyRise
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	res, err := detect(ctx, date)
	if err != nil {
		return fmt.Errorf("%s %s: %w", kind, contracts.FormatDate(date), err)
	}

	if outlierFlagged {
		flagged := res.Signals[:0]
		for _, s := range res.Signals {
			if s.PassesThreshold || s.Outlier {
				flagged = append(flagged, s)
			}
		}
		res.Signals = flagged
	}

	PrintHeader(fmt.Sprintf("Outlier: %s", kind), map[string]string{
		"Date":    contracts.FormatDate(date),
		"Signals": fmt.Sprintf("%d", len(res.Signals)),
	}, []string{"Date", "Signals"})
	PrintOutliers(res)
	return nil
}
