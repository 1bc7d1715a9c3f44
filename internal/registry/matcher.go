package registry

import (
	"strings"

	"github.com/wonny/boardheat/internal/contracts"
)

type compiledRule struct {
	keyword string // normalized
	rule    contracts.BlacklistRule
}

// Matcher evaluates blacklist rules against board names.
// BLACK wins over GRAY when both match.
type Matcher struct {
	black []compiledRule
	gray  []compiledRule
}

// NewMatcher compiles active rules; inactive and empty-keyword rules are dropped
func NewMatcher(rules []contracts.BlacklistRule) *Matcher {
	m := &Matcher{}
	for _, r := range rules {
		if !r.IsActive {
			continue
		}
		kw := Normalize(r.Keyword)
		if kw == "" {
			continue
		}
		cr := compiledRule{keyword: kw, rule: r}
		switch r.Level {
		case contracts.RuleBlack:
			m.black = append(m.black, cr)
		case contracts.RuleGray:
			m.gray = append(m.gray, cr)
		}
	}
	return m
}

// Match returns the strongest level matching name, and the rule that matched
func (m *Matcher) Match(name string) (contracts.RuleLevel, *contracts.BlacklistRule) {
	n := Normalize(name)
	for i := range m.black {
		if strings.Contains(n, m.black[i].keyword) {
			return contracts.RuleBlack, &m.black[i].rule
		}
	}
	for i := range m.gray {
		if strings.Contains(n, m.gray[i].keyword) {
			return contracts.RuleGray, &m.gray[i].rule
		}
	}
	return "", nil
}
