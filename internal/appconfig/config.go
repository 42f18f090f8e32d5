package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/mongoui/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int             `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string          `mapstructure:"state_dir" yaml:"state_dir"`
	SavedDBPath   string          `mapstructure:"saved_db_path" yaml:"saved_db_path"`
	DefaultURI    string          `mapstructure:"default_uri" yaml:"default_uri"`
	Workspace     WorkspaceConfig `mapstructure:"workspace" yaml:"workspace"`
	Engine        EngineConfig    `mapstructure:"engine" yaml:"engine"`
	UI            UIConfig        `mapstructure:"ui" yaml:"ui"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// WorkspaceConfig controls buffer defaults.
type WorkspaceConfig struct {
	SeedTemplate       string `mapstructure:"seed_template" yaml:"seed_template"`
	LabelMax           int    `mapstructure:"label_max" yaml:"label_max"`
	LabelSuffix        string `mapstructure:"label_suffix" yaml:"label_suffix"`
	ExecTimeoutSeconds int    `mapstructure:"exec_timeout_seconds" yaml:"exec_timeout_seconds"`
}

// EngineConfig controls the database backend.
type EngineConfig struct {
	ConnectTimeoutSeconds    int `mapstructure:"connect_timeout_seconds" yaml:"connect_timeout_seconds"`
	DisconnectTimeoutSeconds int `mapstructure:"disconnect_timeout_seconds" yaml:"disconnect_timeout_seconds"`
}

// UIConfig controls the terminal UI.
type UIConfig struct {
	SidebarWidth int  `mapstructure:"sidebar_width" yaml:"sidebar_width"`
	ShowHelp     bool `mapstructure:"show_help" yaml:"show_help"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	stateDir := filepath.Join(home, ".mongoui", "state")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      stateDir,
		SavedDBPath:   filepath.Join(stateDir, "saved.db"),
		DefaultURI:    "",
		Workspace: WorkspaceConfig{
			SeedTemplate:       schema.DefaultSeedTemplate,
			LabelMax:           16,
			LabelSuffix:        "~",
			ExecTimeoutSeconds: int(schema.DefaultExecTimeout / time.Second),
		},
		Engine: EngineConfig{
			ConnectTimeoutSeconds:    10,
			DisconnectTimeoutSeconds: 5,
		},
		UI: UIConfig{
			SidebarWidth: 28,
			ShowHelp:     true,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mongoui", "config.yaml"), nil
}

// WorkspaceSettings converts the workspace section for core.NewWorkspace.
func (c Config) WorkspaceSettings() schema.WorkspaceConfig {
	return schema.WorkspaceConfig{
		SeedTemplate: c.Workspace.SeedTemplate,
		LabelMax:     c.Workspace.LabelMax,
		LabelSuffix:  c.Workspace.LabelSuffix,
		ExecTimeout:  time.Duration(c.Workspace.ExecTimeoutSeconds) * time.Second,
	}
}

// ConnectTimeout returns the engine dial timeout.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Engine.ConnectTimeoutSeconds) * time.Second
}

// DisconnectTimeout returns the engine disconnect timeout.
func (c Config) DisconnectTimeout() time.Duration {
	return time.Duration(c.Engine.DisconnectTimeoutSeconds) * time.Second
}
