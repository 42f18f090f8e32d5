package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/mongoui/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("saved_db_path", "")
	v.SetDefault("default_uri", cfg.DefaultURI)
	v.SetDefault("workspace.seed_template", cfg.Workspace.SeedTemplate)
	v.SetDefault("workspace.label_max", cfg.Workspace.LabelMax)
	v.SetDefault("workspace.label_suffix", cfg.Workspace.LabelSuffix)
	v.SetDefault("workspace.exec_timeout_seconds", cfg.Workspace.ExecTimeoutSeconds)
	v.SetDefault("engine.connect_timeout_seconds", cfg.Engine.ConnectTimeoutSeconds)
	v.SetDefault("engine.disconnect_timeout_seconds", cfg.Engine.DisconnectTimeoutSeconds)
	v.SetDefault("ui.sidebar_width", cfg.UI.SidebarWidth)
	v.SetDefault("ui.show_help", cfg.UI.ShowHelp)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if cfg.SavedDBPath == "" {
		cfg.SavedDBPath = filepath.Join(cfg.StateDir, "saved.db")
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func isNotFound(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	// SetConfigFile reports a missing explicit path as a plain fs error.
	return errors.Is(err, fs.ErrNotExist)
}

func validate(cfg Config) error {
	if _, err := schema.NormalizeWorkspaceConfig(cfg.WorkspaceSettings()); err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	if uri := strings.TrimSpace(cfg.DefaultURI); uri != "" {
		if _, err := schema.NormalizeURI(uri); err != nil {
			return fmt.Errorf("default_uri must start with mongodb:// or mongodb+srv://")
		}
	}
	if cfg.Engine.ConnectTimeoutSeconds < 0 || cfg.Engine.DisconnectTimeoutSeconds < 0 {
		return fmt.Errorf("engine timeouts must not be negative")
	}
	if cfg.UI.SidebarWidth < 0 {
		return fmt.Errorf("ui.sidebar_width must not be negative")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.SavedDBPath = expandEnv(cfg.SavedDBPath)
	cfg.DefaultURI = expandEnv(cfg.DefaultURI)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
