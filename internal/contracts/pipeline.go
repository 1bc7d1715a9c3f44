package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, run state, DB row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름 (거래일 1회):
//   Registry → Resolve → Heat → (commit) → Signals → (commit) → Mark
//
// Outlier 는 같은 랭크 시계열을 독립적으로 사용 (파이프라인 외부)

// Stage represents a pipeline stage
type Stage string

const (
	// StageRegistry: 활성 보드 집합 + BLACK/GRAY 필터
	// 위치: internal/registry/
	StageRegistry Stage = "REGISTRY"

	// StageHeat: 스냅샷 해석 + 보드별 B1/B2/C1/C2 + 백분위
	// 위치: internal/snapshot/, internal/heat/
	StageHeat Stage = "HEAT"

	// StageSignals: 종목별 final_score / signal_level
	// 위치: internal/composer/
	StageSignals Stage = "SIGNALS"

	// StageOutlier: rank-jump / steady-rise (독립 실행)
	// 위치: internal/outlier/
	StageOutlier Stage = "OUTLIER"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// Description returns Korean description of the stage
func (s Stage) Description() string {
	switch s {
	case StageRegistry:
		return "보드 레지스트리/블랙리스트"
	case StageHeat:
		return "보드 히트 집계"
	case StageSignals:
		return "종목 시그널 합성"
	case StageOutlier:
		return "이상치 탐지"
	default:
		return "알 수 없음"
	}
}

// PipelineStages returns the per-date stages in execution order
func PipelineStages() []Stage {
	return []Stage{StageRegistry, StageHeat, StageSignals}
}

// Derived tables tracked by run state
const (
	TableBoardHeat   = "board_heat_daily"
	TableStockSignal = "stock_board_signal"
)

// StageResult represents the result of one stage for one date
type StageResult struct {
	Stage       Stage                  `json:"stage"`
	Success     bool                   `json:"success"`
	InputCount  int                    `json:"input_count"`
	OutputCount int                    `json:"output_count"`
	DurationMs  int64                  `json:"duration_ms"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
