package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/scoringconfig"
	"github.com/wonny/boardheat/pkg/logger"
)

var (
	tradeDate = time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	priorDate = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
)

func id(v int64) *int64 { return &v }

func heatRow(boardID int64, name string, pct float64, members int) contracts.BoardHeatDaily {
	return contracts.BoardHeatDaily{
		BoardID:     boardID,
		BoardName:   name,
		BoardType:   contracts.BoardTypeConcept,
		Date:        tradeDate,
		SnapDate:    tradeDate,
		MemberCount: members,
		HeatPct:     pct,
	}
}

func defaultComposer() *Composer {
	return New(scoringconfig.Default().Composer, logger.Nop())
}

func byCode(rows []contracts.StockBoardSignal) map[string]contracts.StockBoardSignal {
	out := map[string]contracts.StockBoardSignal{}
	for _, r := range rows {
		out[r.StockCode] = r
	}
	return out
}

func TestClassify_InclusiveBoundaries(t *testing.T) {
	tiers := scoringconfig.Default().Composer.Tiers // S .95, A .85, B .70

	tests := []struct {
		pct  float64
		want contracts.SignalLevel
	}{
		{1.0, contracts.SignalS},
		{0.95, contracts.SignalS},
		{19.0 / 20.0, contracts.SignalS},
		{0.9499999, contracts.SignalA},
		{0.85, contracts.SignalA},
		{0.70, contracts.SignalB},
		{0.6999, contracts.SignalNone},
		{0, contracts.SignalNone},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.pct), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.pct, tiers))
		})
	}
}

func TestCompose_DriverAndExposure(t *testing.T) {
	heat := []contracts.BoardHeatDaily{
		heatRow(1, "반도체", 0.9, 10),
		heatRow(2, "AI", 0.9, 30), // 동점 → 멤버 수 많은 쪽
		heatRow(3, "로봇", 0.2, 5),
		heatRow(4, "우선주", 1.0, 3),
		heatRow(5, "가나다", 0.9, 30), // 동점/동수 → 이름 사전순
	}
	heat[3].IsGray = true
	heat[1].SnapDate = priorDate
	heat[1].FallbackReason = contracts.FallbackPriorSnapshot

	in := Input{
		Date: tradeDate,
		Stocks: []contracts.StockDaily{
			{Code: "A", TotalScore: 10},
			{Code: "B", TotalScore: 5},
		},
		Heat: heat,
		Memberships: map[string][]int64{
			"A": {1, 2, 3, 4, 99}, // 99 는 제외/미해석 보드
			"B": {5, 1},
		},
	}

	out, err := defaultComposer().Compose(context.Background(), in)
	require.NoError(t, err)
	sigs := byCode(out)

	a := sigs["A"]
	require.NotNil(t, a.DriverBoardID)
	assert.Equal(t, int64(2), *a.DriverBoardID, "GRAY board 4 is hotter but never the driver")
	assert.Equal(t, "AI", a.DriverBoardName)
	assert.InDelta(t, 0.9, a.DriverHeatPct, 1e-12)
	assert.Equal(t, 4, a.BoardCount)
	assert.Equal(t, 3, a.HotBoardCount) // 1, 2, 4 (GRAY 도 exposure 에는 포함)
	assert.InDelta(t, 0.75, a.BoardExposure, 1e-12)
	require.NotNil(t, a.SnapDate)
	assert.Equal(t, priorDate, *a.SnapDate)
	assert.Equal(t, contracts.FallbackPriorSnapshot, a.FallbackReason)

	var top []int64
	for _, e := range a.TopBoards.Entries {
		top = append(top, e.BoardID)
	}
	assert.Equal(t, []int64{2, 1, 3}, top)
	assert.Equal(t, contracts.TopBoardsVersion, a.TopBoards.Version)

	b := sigs["B"]
	require.NotNil(t, b.DriverBoardID)
	assert.Equal(t, int64(5), *b.DriverBoardID)
}

func TestCompose_NoBoards(t *testing.T) {
	in := Input{
		Date:   tradeDate,
		Stocks: []contracts.StockDaily{{Code: "A", TotalScore: 1}},
	}

	out, err := defaultComposer().Compose(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)

	s := out[0]
	assert.Nil(t, s.DriverBoardID)
	assert.Zero(t, s.BoardExposure)
	assert.Zero(t, s.BoardCount)
	assert.Nil(t, s.SnapDate)
	assert.Empty(t, s.TopBoards.Entries)
	assert.Equal(t, contracts.IndustryUnknown, s.IndustryStatus)
	assert.False(t, s.IndustrySafe)
}

func TestCompose_IndustryStatus(t *testing.T) {
	heat := []contracts.BoardHeatDaily{
		heatRow(1, "반도체", 0.8, 10),
		heatRow(2, "조선", 0.1, 10),
	}
	boards := contracts.NewBoardSet(tradeDate, []contracts.Board{
		{ID: 1, Name: "반도체"},
		{ID: 2, Name: "조선"},
		{ID: 3, Name: "철강"}, // 활성이나 해당일 히트 없음
	}, nil, map[int64]string{9: "BLACK (ETF)"})

	in := Input{
		Date: tradeDate,
		Stocks: []contracts.StockDaily{
			{Code: "SAFE", PrimaryIndustryBoardID: id(1)},
			{Code: "UNSAFE", PrimaryIndustryBoardID: id(2)},
			{Code: "NOHEAT", PrimaryIndustryBoardID: id(3)},
			{Code: "BLACK", PrimaryIndustryBoardID: id(9)},
			{Code: "NONE"},
		},
		Heat:   heat,
		Boards: boards,
	}

	out, err := defaultComposer().Compose(context.Background(), in)
	require.NoError(t, err)
	sigs := byCode(out)

	tests := []struct {
		code       string
		safe       bool
		status     contracts.IndustryStatus
		industryID *int64
	}{
		{"SAFE", true, contracts.IndustrySafe, id(1)},
		{"UNSAFE", false, contracts.IndustryUnsafe, id(2)},
		{"NOHEAT", false, contracts.IndustryUnknown, id(3)},
		{"BLACK", false, contracts.IndustryUnknown, nil},
		{"NONE", false, contracts.IndustryUnknown, nil},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			s := sigs[tt.code]
			assert.Equal(t, tt.safe, s.IndustrySafe)
			assert.Equal(t, tt.status, s.IndustryStatus)
			assert.Equal(t, tt.industryID, s.IndustryBoardID)
		})
	}
	assert.Equal(t, "철강", sigs["NOHEAT"].IndustryBoardName)
	assert.Nil(t, sigs["NOHEAT"].IndustryHeatPct)
}

func TestCompose_PenaltyOrdersIdenticalRawScores(t *testing.T) {
	cfg := scoringconfig.Default().Composer
	cfg.Weights = scoringconfig.Weights{Stock: 0.5, Exposure: 0, MaxDriver: 0.5}

	heat := []contracts.BoardHeatDaily{
		heatRow(1, "hot", 1.0, 10),
		heatRow(2, "mid", 0.5, 10),
		heatRow(3, "cold", 0.0, 10),
	}

	// A: total_pct .5, driver 1.0 → raw .75, 주업종 cold (UNSAFE)
	// B: total_pct 1.0, driver .5 → raw .75, 주업종 hot (SAFE)
	in := Input{
		Date: tradeDate,
		Stocks: []contracts.StockDaily{
			{Code: "X", TotalScore: 1},
			{Code: "A", TotalScore: 2, PrimaryIndustryBoardID: id(3)},
			{Code: "B", TotalScore: 3, PrimaryIndustryBoardID: id(1)},
		},
		Heat: heat,
		Memberships: map[string][]int64{
			"A": {1, 3},
			"B": {2},
		},
	}

	out, err := New(cfg, logger.Nop()).Compose(context.Background(), in)
	require.NoError(t, err)
	sigs := byCode(out)

	a, b := sigs["A"], sigs["B"]
	assert.False(t, a.IndustrySafe)
	assert.True(t, b.IndustrySafe)
	assert.InDelta(t, 0.75*cfg.IndustryPenalty, a.FinalScore, 1e-12)
	assert.InDelta(t, 0.75, b.FinalScore, 1e-12)
	assert.Less(t, a.FinalScorePct, b.FinalScorePct)

	// 감점이 없으면 코드 동점 규칙상 A 가 위
	cfg.IndustrySafeThreshold = 0
	out, err = New(cfg, logger.Nop()).Compose(context.Background(), in)
	require.NoError(t, err)
	sigs = byCode(out)
	assert.Greater(t, sigs["A"].FinalScorePct, sigs["B"].FinalScorePct)
}

func TestCompose_PenaltyOrdersZeroRawScores(t *testing.T) {
	cfg := scoringconfig.Default().Composer
	cfg.Weights = scoringconfig.Weights{Stock: 0, Exposure: 0.5, MaxDriver: 0.5}

	// 멤버십 없음 → raw 0, 감점해도 0
	in := Input{
		Date: tradeDate,
		Stocks: []contracts.StockDaily{
			{Code: "A", TotalScore: 1, PrimaryIndustryBoardID: id(3)},
			{Code: "B", TotalScore: 1, PrimaryIndustryBoardID: id(1)},
		},
		Heat: []contracts.BoardHeatDaily{
			heatRow(1, "hot", 1.0, 10),
			heatRow(3, "cold", 0.0, 10),
		},
	}

	out, err := New(cfg, logger.Nop()).Compose(context.Background(), in)
	require.NoError(t, err)
	sigs := byCode(out)

	a, b := sigs["A"], sigs["B"]
	assert.Zero(t, a.FinalScore)
	assert.Zero(t, b.FinalScore)
	assert.False(t, a.IndustrySafe)
	assert.True(t, b.IndustrySafe)
	assert.Equal(t, 0.0, a.FinalScorePct)
	assert.Equal(t, 1.0, b.FinalScorePct)
}

func TestCompose_TierAtExactThreshold(t *testing.T) {
	// 21 종목, board 없음, 주업종 없음 → final = 0.5*total_pct*penalty, 순서 보존
	stocks := make([]contracts.StockDaily, 21)
	for i := range stocks {
		stocks[i] = contracts.StockDaily{Code: fmt.Sprintf("%03d", i), TotalScore: float64(i)}
	}

	out, err := defaultComposer().Compose(context.Background(), Input{Date: tradeDate, Stocks: stocks})
	require.NoError(t, err)
	sigs := byCode(out)

	assert.Equal(t, 0.95, sigs["019"].FinalScorePct)
	assert.Equal(t, contracts.SignalS, sigs["019"].SignalLevel)
	assert.Equal(t, contracts.SignalS, sigs["020"].SignalLevel)
	assert.Equal(t, contracts.SignalA, sigs["018"].SignalLevel)
	assert.Equal(t, contracts.SignalNone, sigs["000"].SignalLevel)
}

func TestCompose_Idempotent(t *testing.T) {
	heat := []contracts.BoardHeatDaily{
		heatRow(1, "반도체", 0.9, 10),
		heatRow(2, "AI", 0.4, 30),
	}
	in := Input{
		Date: tradeDate,
		Stocks: []contracts.StockDaily{
			{Code: "B", TotalScore: 3, PrimaryIndustryBoardID: id(1)},
			{Code: "A", TotalScore: 3, PrimaryIndustryBoardID: id(2)},
			{Code: "C", TotalScore: 1},
		},
		Heat:        heat,
		Memberships: map[string][]int64{"A": {1, 2}, "B": {2}},
	}

	c := defaultComposer()
	first, err := c.Compose(context.Background(), in)
	require.NoError(t, err)
	second, err := c.Compose(context.Background(), in)
	require.NoError(t, err)

	j1, err := json.Marshal(first)
	require.NoError(t, err)
	j2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(j1), string(j2))

	// 출력은 코드 순
	assert.Equal(t, "A", first[0].StockCode)
	assert.Equal(t, "C", first[2].StockCode)
}

func TestCompose_EmptyAndDuplicates(t *testing.T) {
	out, err := defaultComposer().Compose(context.Background(), Input{Date: tradeDate})
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = defaultComposer().Compose(context.Background(), Input{
		Date:   tradeDate,
		Stocks: []contracts.StockDaily{{Code: "A", TotalScore: 1}, {Code: "A", TotalScore: 9}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1.0, out[0].TotalScore)
	assert.Equal(t, 1.0, out[0].TotalScorePct)
}

func TestCompose_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := defaultComposer().Compose(ctx, Input{
		Date:   tradeDate,
		Stocks: []contracts.StockDaily{{Code: "A"}},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
