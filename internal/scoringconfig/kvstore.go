package scoringconfig

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgKVStore reads and writes overrides in engine.config_kv
// 운영자가 재배포 없이 임계값/가중치를 조정하는 경로
type PgKVStore struct {
	pool *pgxpool.Pool
}

// NewPgKVStore creates a KV store
func NewPgKVStore(pool *pgxpool.Pool) *PgKVStore {
	return &PgKVStore{pool: pool}
}

// LoadOverrides returns every key/value pair
func (s *PgKVStore) LoadOverrides(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM engine.config_kv`)
	if err != nil {
		return nil, fmt.Errorf("query config_kv: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan config_kv: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Set upserts one override after checking it applies cleanly to the current config
func (s *PgKVStore) Set(ctx context.Context, base *Config, key, value string) error {
	trial := *base
	if err := ApplyOverrides(&trial, map[string]string{key: value}); err != nil {
		return err
	}
	if err := Validate(&trial); err != nil {
		return err
	}

	query := `
		INSERT INTO engine.config_kv (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("upsert config_kv %s: %w", key, err)
	}
	return nil
}

// Delete removes an override, restoring the YAML value on next load
func (s *PgKVStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM engine.config_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete config_kv %s: %w", key, err)
	}
	return nil
}

// StaticOverrides is an in-memory OverrideSource
type StaticOverrides map[string]string

// LoadOverrides returns a copy of the map
func (s StaticOverrides) LoadOverrides(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, nil
}
