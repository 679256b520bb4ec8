package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Kernel      KernelConfig
	History     HistoryConfig
	Log         LogConfig
	UI          UIConfig
	Keybindings []KeybindingOverride
}

// KeybindingOverride rebinds one action in one key scope.
type KeybindingOverride struct {
	Scope  string
	Action string
	Keys   []string
}

// KernelConfig holds kernel connection settings.
type KernelConfig struct {
	// Default is the kernelspec name used when a notebook does not name one.
	Default string
	// StartTimeoutSecs bounds the kernel_info handshake on startup.
	StartTimeoutSecs int `mapstructure:"start_timeout_secs"`
	// Kernels maps kernelspec names to gateway websocket URLs.
	Kernels map[string]KernelSpecConfig
}

// KernelSpecConfig describes one declared kernel.
type KernelSpecConfig struct {
	DisplayName   string `mapstructure:"display_name"`
	Language      string
	FileExtension string `mapstructure:"file_extension"`
	URL           string
}

// HistoryConfig holds the execution history sqlite settings.
type HistoryConfig struct {
	Path string
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string
	// File is an optional path to mirror log records to.
	File string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	ColorScheme   string `mapstructure:"color_scheme"`
	ShowCellNums  bool   `mapstructure:"show_cell_nums"`
	ScrollStep    int    `mapstructure:"scroll_step"`
	AutosaveSecs  int    `mapstructure:"autosave_secs"`
	ConfirmOnExit bool   `mapstructure:"confirm_on_exit"`
}

// Load reads configuration from file and env. Env var overrides use prefix EUPORIE_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("kernel.default", "")
	v.SetDefault("kernel.start_timeout_secs", 30)
	v.SetDefault("history.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "euporie", "history.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("ui.color_scheme", "default")
	v.SetDefault("ui.show_cell_nums", true)
	v.SetDefault("ui.scroll_step", 5)
	v.SetDefault("ui.autosave_secs", 0)
	v.SetDefault("ui.confirm_on_exit", true)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("EUPORIE_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "euporie"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("EUPORIE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if
// needed. Used by the settings command so UI preferences survive restarts.
func Save(cfg Config) error {
	path := os.Getenv("EUPORIE_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "euporie", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("kernel.default", cfg.Kernel.Default)
	v.Set("kernel.start_timeout_secs", cfg.Kernel.StartTimeoutSecs)
	for name, spec := range cfg.Kernel.Kernels {
		v.Set("kernel.kernels."+name+".display_name", spec.DisplayName)
		v.Set("kernel.kernels."+name+".language", spec.Language)
		v.Set("kernel.kernels."+name+".file_extension", spec.FileExtension)
		v.Set("kernel.kernels."+name+".url", spec.URL)
	}
	v.Set("history.path", cfg.History.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)
	v.Set("ui.color_scheme", cfg.UI.ColorScheme)
	v.Set("ui.show_cell_nums", cfg.UI.ShowCellNums)
	v.Set("ui.scroll_step", cfg.UI.ScrollStep)
	v.Set("ui.autosave_secs", cfg.UI.AutosaveSecs)
	v.Set("ui.confirm_on_exit", cfg.UI.ConfirmOnExit)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
