package schema

import (
	"errors"
	"strings"
	"time"
)

// DefaultSeedTemplate is the script a buffer opened on a collection starts with.
// The single %s is replaced with the collection name.
const DefaultSeedTemplate = `db.getCollection("%s").find({})`

// DefaultExecTimeout bounds a single script execution.
const DefaultExecTimeout = 5 * time.Minute

// WorkspaceConfig defines defaults and limits for the workspace.
type WorkspaceConfig struct {
	SeedTemplate string
	LabelMax     int
	LabelSuffix  string
	ExecTimeout  time.Duration
}

// NormalizeWorkspaceConfig applies defaults and validates the config.
func NormalizeWorkspaceConfig(cfg WorkspaceConfig) (WorkspaceConfig, error) {
	if strings.TrimSpace(cfg.SeedTemplate) == "" {
		cfg.SeedTemplate = DefaultSeedTemplate
	}
	if strings.Count(cfg.SeedTemplate, "%s") != 1 {
		return WorkspaceConfig{}, errors.New("seed template must contain exactly one %s")
	}
	if cfg.LabelMax <= 0 {
		cfg.LabelMax = 16
	}
	if cfg.LabelSuffix == "" {
		cfg.LabelSuffix = "~"
	}
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = DefaultExecTimeout
	}
	if cfg.LabelMax <= len(cfg.LabelSuffix) {
		return WorkspaceConfig{}, errors.New("label max must exceed suffix length")
	}
	return cfg, nil
}
