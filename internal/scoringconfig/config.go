package scoringconfig

// Config는 보드 히트/종목 시그널 스코어링의 전체 설정
// YAML 기본값 + engine.config_kv 오버라이드 → Validate 통과 후에만 사용
type Config struct {
	Heat     Heat     `yaml:"heat" json:"heat"`
	Snapshot Snapshot `yaml:"snapshot" json:"snapshot"`
	Registry Registry `yaml:"registry" json:"registry"`
	Composer Composer `yaml:"composer" json:"composer"`
	Outlier  Outlier  `yaml:"outlier" json:"outlier"`
}

// Heat 보드 히트 집계
type Heat struct {
	Metric string  `yaml:"metric" json:"metric" validate:"oneof=B1 B2 C1 C2"`
	K      float64 `yaml:"k" json:"k" validate:"gt=0"` // w(rank) = rank^-k
}

// Snapshot 스냅샷 주소 해석
type Snapshot struct {
	MaxLookbackDays int `yaml:"max_lookback_days" json:"max_lookback_days" validate:"gte=0"` // 달력일
}

// Registry 보드 필터
type Registry struct {
	ThematicOnly bool `yaml:"thematic_only" json:"thematic_only"` // 광역 지수 보드 제외
}

// Composer 종목 시그널 합성
type Composer struct {
	Weights               Weights `yaml:"weights" json:"weights"`
	IndustrySafeThreshold float64 `yaml:"industry_safe_threshold" json:"industry_safe_threshold" validate:"gte=0,lte=1"`
	HotBoardThreshold     float64 `yaml:"hot_board_threshold" json:"hot_board_threshold" validate:"gte=0,lte=1"`
	IndustryPenalty       float64 `yaml:"industry_penalty" json:"industry_penalty" validate:"gt=0,lt=1"`
	Tiers                 Tiers   `yaml:"tiers" json:"tiers"`
	TopBoardsLimit        int     `yaml:"top_boards_limit" json:"top_boards_limit" validate:"gte=1,lte=50"`
}

// Weights final_score 가중치 (합 = 1.0)
type Weights struct {
	Stock     float64 `yaml:"stock" json:"stock" validate:"gte=0,lte=1"`
	Exposure  float64 `yaml:"exposure" json:"exposure" validate:"gte=0,lte=1"`
	MaxDriver float64 `yaml:"max_driver" json:"max_driver" validate:"gte=0,lte=1"`
}

// Sum returns the total of the three weights
func (w Weights) Sum() float64 {
	return w.Stock + w.Exposure + w.MaxDriver
}

// Tiers final_score_pct 하한 (포함), S > A > B
type Tiers struct {
	S float64 `yaml:"s" json:"s" validate:"gte=0,lte=1"`
	A float64 `yaml:"a" json:"a" validate:"gte=0,lte=1"`
	B float64 `yaml:"b" json:"b" validate:"gte=0,lte=1"`
}

// Outlier rank-jump / steady-rise
type Outlier struct {
	SigmaMultiplier float64    `yaml:"sigma_multiplier" json:"sigma_multiplier" validate:"gt=0"`
	RankJump        RankJump   `yaml:"rank_jump" json:"rank_jump"`
	SteadyRise      SteadyRise `yaml:"steady_rise" json:"steady_rise"`
}

// RankJump 전일 대비 순위 상승
type RankJump struct {
	MinJump int `yaml:"min_jump" json:"min_jump" validate:"gte=1"`
}

// SteadyRise 연속 상승
type SteadyRise struct {
	WindowDays int  `yaml:"window_days" json:"window_days" validate:"gte=2,lte=60"` // 관측 수 (거래일)
	MinRise    int  `yaml:"min_rise" json:"min_rise" validate:"gte=0"`
	Strict     bool `yaml:"strict" json:"strict"` // true: 매일 개선, false: 비감소 허용
}

// Default returns the built-in defaults (config/scoring.yaml mirrors these)
func Default() *Config {
	return &Config{
		Heat: Heat{
			Metric: "B1",
			K:      1.0,
		},
		Snapshot: Snapshot{
			MaxLookbackDays: 7,
		},
		Registry: Registry{
			ThematicOnly: true,
		},
		Composer: Composer{
			Weights: Weights{
				Stock:     0.5,
				Exposure:  0.2,
				MaxDriver: 0.3,
			},
			IndustrySafeThreshold: 0.3,
			HotBoardThreshold:     0.7,
			IndustryPenalty:       0.8,
			Tiers:                 Tiers{S: 0.95, A: 0.85, B: 0.70},
			TopBoardsLimit:        5,
		},
		Outlier: Outlier{
			SigmaMultiplier: 2.0,
			RankJump:        RankJump{MinJump: 100},
			SteadyRise:      SteadyRise{WindowDays: 5, MinRise: 50, Strict: false},
		},
	}
}
