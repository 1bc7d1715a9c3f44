package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/boardheat/internal/scoringconfig"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "스코어링 설정 관리",
	Long: `스코어링 설정(YAML 기본값 + engine.config_kv 오버라이드)을 조회/검증/변경합니다.

Subcommands:
  check [file]       - YAML 파일 검증 (DB 불필요)
  keys               - 오버라이드 가능한 키 목록
  show               - 적용 중인 설정과 해시
  set <key> <value>  - 오버라이드 저장 (검증 실패 시 저장 안 함)
  unset <key>        - 오버라이드 삭제

Example:
  go run ./cmd/boardheat config check config/scoring.yaml
  go run ./cmd/boardheat config set composer.tiers.s 0.97`,
}

var (
	configCheckCmd = &cobra.Command{
		Use:   "check [file]",
		Short: "YAML 파일 검증",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigCheck,
	}

	configKeysCmd = &cobra.Command{
		Use:   "keys",
		Short: "오버라이드 가능한 키 목록",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, k := range scoringconfig.Keys() {
				fmt.Println(k)
			}
		},
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "적용 중인 설정",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}

	configSetCmd = &cobra.Command{
		Use:   "set <key> <value>",
		Short: "오버라이드 저장",
		Args:  cobra.ExactArgs(2),
		RunE:  runConfigSet,
	}

	configUnsetCmd = &cobra.Command{
		Use:   "unset <key>",
		Short: "오버라이드 삭제",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigUnset,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	path := "config/scoring.yaml"
	if scoringPath != "" {
		path = scoringPath
	}
	if len(args) == 1 {
		path = args[0]
	}

	cfg, _, err := scoringconfig.Load(cmd.Context(), path, nil)
	if err != nil {
		PrintError(err.Error())
		return err
	}
	hash, err := scoringconfig.Hash(cfg)
	if err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("%s is valid (hash %s)", path, shortHash(hash)))
	for _, w := range scoringconfig.Warn(cfg) {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	out := map[string]interface{}{
		"path":     a.cfg.Engine.ScoringConfigPath,
		"hash":     a.scoringHash,
		"config":   a.scoring,
		"warnings": scoringconfig.Warn(a.scoring),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	key, value := args[0], args[1]
	if err := a.overrides.Set(ctx, a.scoring, key, value); err != nil {
		PrintError(err.Error())
		return err
	}

	a.log.WithFields(map[string]interface{}{
		"key":   key,
		"value": value,
	}).Info("Scoring override saved")
	PrintSuccess(fmt.Sprintf("%s = %s (다음 실행부터 적용)", key, value))
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	if err := a.overrides.Delete(ctx, args[0]); err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("%s override removed", args[0]))
	return nil
}
