package scoringconfig

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OverrideSource supplies dotted-key overrides (e.g. "composer.tiers.s" → "0.9")
type OverrideSource interface {
	LoadOverrides(ctx context.Context) (map[string]string, error)
}

// Parse decodes YAML over the defaults.
// KnownFields(true)로 오타/미사용 필드 즉시 실패
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode scoring config: %w", err)
	}
	return cfg, nil
}

// Load reads the YAML file, applies overrides (nil src = none) and validates.
// Returns the raw YAML alongside for audit.
func Load(ctx context.Context, path string, src OverrideSource) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read scoring config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}

	if src != nil {
		kv, err := src.LoadOverrides(ctx)
		if err != nil {
			return nil, data, fmt.Errorf("load config overrides: %w", err)
		}
		if err := ApplyOverrides(cfg, kv); err != nil {
			return nil, data, err
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, data, err
	}

	return cfg, data, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
