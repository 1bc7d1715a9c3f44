package composer

import (
	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/scoringconfig"
)

// Classify maps final_score_pct to a tier. Lower bounds are inclusive,
// evaluated S → A → B, first match wins.
func Classify(pct float64, t scoringconfig.Tiers) contracts.SignalLevel {
	switch {
	case pct >= t.S:
		return contracts.SignalS
	case pct >= t.A:
		return contracts.SignalA
	case pct >= t.B:
		return contracts.SignalB
	default:
		return contracts.SignalNone
	}
}
