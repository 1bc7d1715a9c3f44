package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/boardheat/internal/api/handlers"
	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/pkg/httputil"
	"github.com/wonny/boardheat/pkg/logger"
)

// queryCmd reads from a running API server instead of the database
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "API 서버 조회",
	Long: `실행 중인 API 서버에서 결과를 조회합니다 (DB 접속 불필요).

Subcommands:
  ranking              - 보드 히트 랭킹
  signal <code>        - 종목 시그널
  signals <code>...    - 종목 시그널 일괄 조회
  outliers <kind>      - rank-jump | steady-rise

Example:
  go run ./cmd/boardheat query ranking --metric B2 --limit 20
  go run ./cmd/boardheat query signals 005930 000660 --api http://localhost:8089`,
}

var (
	queryRankingCmd = &cobra.Command{
		Use:   "ranking",
		Short: "보드 히트 랭킹",
		Args:  cobra.NoArgs,
		RunE:  runQueryRanking,
	}

	querySignalCmd = &cobra.Command{
		Use:   "signal <code>",
		Short: "종목 시그널",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuerySignal,
	}

	querySignalsCmd = &cobra.Command{
		Use:   "signals <code>...",
		Short: "종목 시그널 일괄 조회",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuerySignals,
	}

	queryOutliersCmd = &cobra.Command{
		Use:       "outliers <rank-jump|steady-rise>",
		Short:     "순위 이상치",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(contracts.OutlierRankJump), string(contracts.OutlierSteadyRise)},
		RunE:      runQueryOutliers,
	}

	queryAPI         string
	queryDate        string
	queryMetric      string
	queryK           float64
	queryLimit       int
	queryIncludeGray bool
	queryFlagged     bool
	queryRPS         float64
)

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(queryRankingCmd)
	queryCmd.AddCommand(querySignalCmd)
	queryCmd.AddCommand(querySignalsCmd)
	queryCmd.AddCommand(queryOutliersCmd)

	queryCmd.PersistentFlags().StringVar(&queryAPI, "api", "http://localhost:8089", "API 서버 주소")
	queryCmd.PersistentFlags().StringVar(&queryDate, "date", "", "거래일 YYYY-MM-DD (기본: 마지막 계산일)")
	queryCmd.PersistentFlags().Float64Var(&queryRPS, "rps", 5, "클라이언트 측 초당 요청 수")

	queryRankingCmd.Flags().StringVar(&queryMetric, "metric", "", "B1|B2|C1|C2 (기본: 서버 설정)")
	queryRankingCmd.Flags().Float64Var(&queryK, "k", 0, "감쇠 지수 (기본: 서버 설정)")
	queryRankingCmd.Flags().IntVar(&queryLimit, "limit", 50, "최대 보드 수")
	queryRankingCmd.Flags().BoolVar(&queryIncludeGray, "include-gray", false, "GRAY 보드 포함")

	queryOutliersCmd.Flags().BoolVar(&queryFlagged, "flagged", false, "걸린 종목만")
}

func newQueryClient() (*httputil.Client, error) {
	log := logger.Nop()
	if verbose {
		log = logger.NewWithWriter(os.Stderr, "debug", "console", "development")
	}
	client, err := httputil.New(queryAPI, log)
	if err != nil {
		return nil, err
	}
	return client.WithTimeout(30 * time.Second).WithRateLimit(queryRPS, 1), nil
}

func queryValues() url.Values {
	v := url.Values{}
	if queryDate != "" {
		v.Set("date", queryDate)
	}
	return v
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runQueryRanking(cmd *cobra.Command, args []string) error {
	client, err := newQueryClient()
	if err != nil {
		return err
	}

	v := queryValues()
	if queryMetric != "" {
		v.Set("metric", queryMetric)
	}
	if queryK > 0 {
		v.Set("k", strconv.FormatFloat(queryK, 'f', -1, 64))
	}
	v.Set("limit", strconv.Itoa(queryLimit))
	v.Set("include_gray", strconv.FormatBool(queryIncludeGray))

	var resp handlers.RankingResponse
	if err := client.GetJSON(cmd.Context(), "/api/boards/ranking", v, &resp); err != nil {
		return err
	}

	PrintHeader("Board Ranking", map[string]string{
		"Date":   resp.Date,
		"Metric": fmt.Sprintf("%s (k=%g)", resp.Metric, resp.K),
		"Boards": strconv.Itoa(resp.Count),
	}, []string{"Date", "Metric", "Boards"})

	widths := []int{4, 8, 24, 9, 7, 8, 6}
	PrintTableHeader([]string{"#", "ID", "NAME", "TYPE", "PCT", "VALUE", "N"}, widths)
	for _, b := range resp.Boards {
		name := b.BoardName
		if b.IsGray {
			name += " (gray)"
		}
		PrintTableRow([]string{
			strconv.Itoa(b.Rank),
			strconv.FormatInt(b.BoardID, 10),
			name,
			string(b.BoardType),
			fmt.Sprintf("%.3f", b.HeatPct),
			fmt.Sprintf("%.3f", b.HeatRaw),
			strconv.Itoa(b.MemberCount),
		}, widths)
	}
	return nil
}

func runQuerySignal(cmd *cobra.Command, args []string) error {
	client, err := newQueryClient()
	if err != nil {
		return err
	}

	var sig contracts.StockBoardSignal
	path := "/api/stocks/" + url.PathEscape(args[0]) + "/signal"
	if err := client.GetJSON(cmd.Context(), path, queryValues(), &sig); err != nil {
		if httputil.IsNotFound(err) {
			PrintWarning(fmt.Sprintf("no signal for %s", args[0]))
		}
		return err
	}
	return printJSON(sig)
}

func runQuerySignals(cmd *cobra.Command, args []string) error {
	client, err := newQueryClient()
	if err != nil {
		return err
	}

	var resp handlers.BatchResponse
	req := handlers.BatchRequest{Date: queryDate, Codes: args}
	if err := client.PostJSON(cmd.Context(), "/api/stocks/signals", req, &resp); err != nil {
		return err
	}

	widths := []int{8, 16, 6, 7, 20, 9}
	PrintTableHeader([]string{"CODE", "NAME", "TIER", "PCT", "DRIVER", "INDUSTRY"}, widths)
	for _, s := range resp.Signals {
		PrintTableRow([]string{
			s.StockCode,
			s.StockName,
			string(s.SignalLevel),
			fmt.Sprintf("%.3f", s.FinalScorePct),
			s.DriverBoardName,
			string(s.IndustryStatus),
		}, widths)
	}
	if len(resp.Missing) > 0 {
		fmt.Println()
		PrintWarning(fmt.Sprintf("missing: %v", resp.Missing))
	}
	return nil
}

func runQueryOutliers(cmd *cobra.Command, args []string) error {
	kind := contracts.OutlierKind(args[0])
	if kind != contracts.OutlierRankJump && kind != contracts.OutlierSteadyRise {
		return fmt.Errorf("unknown outlier kind %q", args[0])
	}

	client, err := newQueryClient()
	if err != nil {
		return err
	}

	v := queryValues()
	if queryFlagged {
		v.Set("flagged", "true")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	var res contracts.OutlierResult
	if err := client.GetJSON(ctx, "/api/stocks/outliers/"+string(kind), v, &res); err != nil {
		return err
	}

	PrintHeader(fmt.Sprintf("Outlier: %s", kind), map[string]string{
		"Date":    contracts.FormatDate(res.Date),
		"Signals": strconv.Itoa(len(res.Signals)),
	}, []string{"Date", "Signals"})
	PrintOutliers(&res)
	return nil
}
