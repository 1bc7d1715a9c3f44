package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	scoringPath string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "boardheat",
	Short: "Board Heat - 보드 히트 & 종목 시그널 엔진",
	Long: `Board Heat Unified CLI

테마/업종 보드 히트 집계와 종목 시그널 합성 엔진.
Registry → Heat → Signals 파이프라인을 거래일 단위로 실행합니다.

Usage:
  go run ./cmd/boardheat [command]

Examples:
  go run ./cmd/boardheat run --date 2026-01-08
  go run ./cmd/boardheat resume
  go run ./cmd/boardheat api
  go run ./cmd/boardheat scheduler start --serve
  go run ./cmd/boardheat outlier rank-jump --flagged`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&scoringPath, "scoring", "", "scoring config YAML (default SCORING_CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (LOG_LEVEL=debug)")
}
