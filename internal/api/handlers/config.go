package handlers

import (
	"net/http"

	"github.com/wonny/boardheat/internal/scoringconfig"
)

// ConfigHandler exposes the scoring config a process runs with
type ConfigHandler struct {
	cfg  *scoringconfig.Config
	hash string
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *scoringconfig.Config, hash string) *ConfigHandler {
	return &ConfigHandler{cfg: cfg, hash: hash}
}

// GetConfig returns the effective scoring config, its hash and non-fatal warnings
// GET /api/config
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	warnings := scoringconfig.Warn(h.cfg)
	if warnings == nil {
		warnings = []scoringconfig.Warning{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"hash":     h.hash,
		"config":   h.cfg,
		"warnings": warnings,
	})
}
