package scoringconfig

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError 검증 실패 (실행 거부)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const weightsEpsilon = 1e-6

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 에러 필드명을 YAML 키로 (예: composer.weights.stock)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks all required constraints.
// 실패 시 ValidationError 반환 → 배치 실행 거부
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fromFieldError(verrs[0])
		}
		return err
	}

	// === Composer (cross-field) ===
	if sum := cfg.Composer.Weights.Sum(); math.Abs(sum-1.0) > weightsEpsilon {
		return ValidationError{"composer.weights", fmt.Sprintf("must sum to 1.00, got %.4f", sum)}
	}

	t := cfg.Composer.Tiers
	if !(t.S > t.A && t.A > t.B) {
		return ValidationError{"composer.tiers", fmt.Sprintf("must satisfy s > a > b, got s=%.4f a=%.4f b=%.4f", t.S, t.A, t.B)}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Snapshot.MaxLookbackDays == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_FALLBACK",
			Message: "max_lookback_days = 0: 스냅샷 없는 보드는 모두 제외됨",
		})
	}
	if cfg.Snapshot.MaxLookbackDays > 14 {
		warnings = append(warnings, Warning{
			Code:    "STALE_SNAPSHOT",
			Message: "max_lookback_days > 14: 오래된 스냅샷이 히트에 반영될 수 있음",
		})
	}

	if cfg.Composer.IndustryPenalty >= 0.95 {
		warnings = append(warnings, Warning{
			Code:    "WEAK_PENALTY",
			Message: "industry_penalty >= 0.95: 주업종 비안전 종목이 거의 감점되지 않음",
		})
	}

	if cfg.Composer.HotBoardThreshold < cfg.Composer.IndustrySafeThreshold {
		warnings = append(warnings, Warning{
			Code:    "HOT_BELOW_SAFE",
			Message: "hot_board_threshold < industry_safe_threshold: 비안전 업종이 hot 으로 집계될 수 있음",
		})
	}

	if cfg.Heat.K < 0.3 {
		warnings = append(warnings, Warning{
			Code:    "FLAT_DECAY",
			Message: "heat.k < 0.3: 순위 가중치가 거의 평탄함",
		})
	}

	return warnings
}

func fromFieldError(fe validator.FieldError) ValidationError {
	// Namespace = "Config.composer.weights.stock" → 루트 타입명 제거
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	var msg string
	switch fe.Tag() {
	case "gt":
		msg = "must be > " + fe.Param()
	case "gte":
		msg = "must be >= " + fe.Param()
	case "lt":
		msg = "must be < " + fe.Param()
	case "lte":
		msg = "must be <= " + fe.Param()
	case "oneof":
		msg = "must be one of: " + fe.Param()
	default:
		msg = "failed " + fe.Tag()
	}
	return ValidationError{Field: field, Message: fmt.Sprintf("%s, got %v", msg, fe.Value())}
}
