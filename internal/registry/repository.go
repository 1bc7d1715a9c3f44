package registry

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/boardheat/internal/contracts"
)

// Repository reads providers, boards and blacklist rules from PostgreSQL
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListProviders returns every provider
func (r *Repository) ListProviders(ctx context.Context) ([]contracts.Provider, error) {
	rows, err := r.db.Query(ctx, `SELECT code, name, is_active FROM engine.providers ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query providers: %w", err)
	}
	defer rows.Close()

	var out []contracts.Provider
	for rows.Next() {
		var p contracts.Provider
		if err := rows.Scan(&p.Code, &p.Name, &p.IsActive); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListBoards returns every board including inactive ones
func (r *Repository) ListBoards(ctx context.Context) ([]contracts.Board, error) {
	query := `
		SELECT id, provider_code, code, name, type, is_broad_index, is_active, member_count
		FROM engine.boards
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query boards: %w", err)
	}
	defer rows.Close()

	var out []contracts.Board
	for rows.Next() {
		var b contracts.Board
		var boardType string
		if err := rows.Scan(&b.ID, &b.ProviderCode, &b.Code, &b.Name, &boardType,
			&b.IsBroadIndex, &b.IsActive, &b.MemberCount); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		b.Type = contracts.BoardType(boardType)
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListActiveRules returns active blacklist rules
func (r *Repository) ListActiveRules(ctx context.Context) ([]contracts.BlacklistRule, error) {
	query := `
		SELECT id, keyword, level, COALESCE(reason, ''), is_active
		FROM engine.board_blacklist
		WHERE is_active
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query blacklist: %w", err)
	}
	defer rows.Close()

	var out []contracts.BlacklistRule
	for rows.Next() {
		var rule contracts.BlacklistRule
		var level string
		if err := rows.Scan(&rule.ID, &rule.Keyword, &level, &rule.Reason, &rule.IsActive); err != nil {
			return nil, fmt.Errorf("scan blacklist rule: %w", err)
		}
		rule.Level = contracts.RuleLevel(level)
		out = append(out, rule)
	}
	return out, rows.Err()
}

// MemoryRepository is an in-memory board/blacklist source
type MemoryRepository struct {
	Providers []contracts.Provider
	Boards    []contracts.Board
	Rules     []contracts.BlacklistRule
}

// ListProviders returns a copy of Providers
func (m *MemoryRepository) ListProviders(context.Context) ([]contracts.Provider, error) {
	return append([]contracts.Provider(nil), m.Providers...), nil
}

// ListBoards returns a copy of Boards
func (m *MemoryRepository) ListBoards(context.Context) ([]contracts.Board, error) {
	return append([]contracts.Board(nil), m.Boards...), nil
}

// ListActiveRules returns active Rules
func (m *MemoryRepository) ListActiveRules(context.Context) ([]contracts.BlacklistRule, error) {
	var out []contracts.BlacklistRule
	for _, r := range m.Rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}
