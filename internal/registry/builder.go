package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/pkg/logger"
)

// Options controls per-run filtering
type Options struct {
	ThematicOnly bool     // 광역 지수 보드 제외
	Providers    []string // 비어 있으면 활성 제공자 전체
}

// Builder constructs the active board set for a trade date
type Builder struct {
	boards contracts.BoardRepository
	rules  contracts.BlacklistRepository
	log    *logger.Logger
}

// NewBuilder creates a new registry Builder
func NewBuilder(boards contracts.BoardRepository, rules contracts.BlacklistRepository, log *logger.Logger) *Builder {
	return &Builder{
		boards: boards,
		rules:  rules,
		log:    log.WithComponent("registry"),
	}
}

// Build loads boards and rules and returns the filtered, immutable set
// ⭐ SSOT: Registry → Heat/Composer 보드 집합 생성
func (b *Builder) Build(ctx context.Context, date time.Time, opts Options) (*contracts.BoardSet, error) {
	providers, err := b.boards.ListProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	boards, err := b.boards.ListBoards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	rules, err := b.rules.ListActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blacklist rules: %w", err)
	}

	activeProviders := make(map[string]bool, len(providers))
	for _, p := range providers {
		activeProviders[p.Code] = p.IsActive
	}
	if len(opts.Providers) > 0 {
		wanted := make(map[string]bool, len(opts.Providers))
		for _, code := range opts.Providers {
			wanted[code] = true
		}
		for code := range activeProviders {
			if !wanted[code] {
				activeProviders[code] = false
			}
		}
	}

	matcher := NewMatcher(rules)
	kept := make([]contracts.Board, 0, len(boards))
	gray := make(map[int64]bool)
	excluded := make(map[int64]string)

	for _, board := range boards {
		reason, isGray := checkExclusion(board, activeProviders, matcher, opts)
		if reason != "" {
			excluded[board.ID] = reason
			continue
		}
		if isGray {
			gray[board.ID] = true
		}
		kept = append(kept, board)
	}

	set := contracts.NewBoardSet(date, kept, gray, excluded)

	b.log.WithFields(map[string]interface{}{
		"date":     contracts.FormatDate(date),
		"total":    len(boards),
		"active":   set.Count(),
		"gray":     set.GrayCount(),
		"excluded": len(excluded),
		"rules":    len(rules),
	}).Info("board set built")

	return set, nil
}

// checkExclusion returns the exclusion reason ("" = kept) and whether the board is GRAY
func checkExclusion(board contracts.Board, activeProviders map[string]bool, m *Matcher, opts Options) (string, bool) {
	// 우선순위 순서로 체크

	// 1. 비활성
	if !board.IsActive {
		return "비활성 보드", false
	}
	if !activeProviders[board.ProviderCode] {
		return fmt.Sprintf("비활성 제공자 (%s)", board.ProviderCode), false
	}

	// 2. 블랙리스트
	level, rule := m.Match(board.Name)
	if level == contracts.RuleBlack {
		return fmt.Sprintf("BLACK (%s)", rule.Keyword), false
	}

	// 3. 광역 지수
	if opts.ThematicOnly && board.IsBroadIndex {
		return "광역 지수", false
	}

	return "", level == contracts.RuleGray
}
