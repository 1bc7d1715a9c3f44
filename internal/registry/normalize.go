package registry

import (
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// foldChain: 호환 분해(NFKC) 후 전각 → 반각
var foldChain = transform.Chain(norm.NFKC, width.Fold)

// Normalize folds a board name or keyword for matching.
// "ＥＴＦ　레버리지" and "etf 레버리지" normalize to the same string.
func Normalize(s string) string {
	folded, _, err := transform.String(foldChain, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
