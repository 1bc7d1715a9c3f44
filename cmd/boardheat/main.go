package main

import (
	"os"

	"github.com/wonny/boardheat/cmd/boardheat/commands"
)

// main is the entry point for the boardheat CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/boardheat [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
