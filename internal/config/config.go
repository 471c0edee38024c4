// Package config resolves, validates, and defaults povox configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Config is the fully materialized runtime configuration used by povox.
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Locale   LocaleConfig   `mapstructure:"locale"`
	Playback PlaybackConfig `mapstructure:"playback"`
}

// BackendConfig locates the recognition/lookup backend.
type BackendConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	HealthPath      string `mapstructure:"health_path"`
	UploadTimeoutMS int    `mapstructure:"upload_timeout_ms"`
	FetchTimeoutMS  int    `mapstructure:"fetch_timeout_ms"`
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string `mapstructure:"input"`
	Fallback string `mapstructure:"fallback"`
}

// LocaleConfig sets the locale used before the backend detects one.
type LocaleConfig struct {
	Default string `mapstructure:"default"`
}

// PlaybackConfig controls synthesized-speech playback.
type PlaybackConfig struct {
	Enable bool `mapstructure:"enable"`
}

// Warning is a non-fatal load message.
type Warning struct {
	Message string
}

// Loaded captures the resolved config path, parsed values, and warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Default returns the canonical runtime configuration used when no file or
// overrides are present.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:         "http://127.0.0.1:5000",
			HealthPath:      "/",
			UploadTimeoutMS: 30000,
			FetchTimeoutMS:  10000,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Locale:   LocaleConfig{Default: "en-US"},
		Playback: PlaybackConfig{Enable: true},
	}
}

// Load reads configuration from file, POVOX_* environment variables, and
// defaults, then validates the result. A missing file is not an error.
func Load(explicitPath string) (Loaded, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("backend.base_url", defaults.Backend.BaseURL)
	v.SetDefault("backend.health_path", defaults.Backend.HealthPath)
	v.SetDefault("backend.upload_timeout_ms", defaults.Backend.UploadTimeoutMS)
	v.SetDefault("backend.fetch_timeout_ms", defaults.Backend.FetchTimeoutMS)
	v.SetDefault("audio.input", defaults.Audio.Input)
	v.SetDefault("audio.fallback", defaults.Audio.Fallback)
	v.SetDefault("locale.default", defaults.Locale.Default)
	v.SetDefault("playback.enable", defaults.Playback.Enable)

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := resolveConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("POVOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	loaded := Loaded{Exists: true}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath == "" && errors.As(err, &notFound) {
			loaded.Exists = false
			loaded.Warnings = append(loaded.Warnings, Warning{
				Message: "no config file found; using defaults",
			})
		} else if explicitPath != "" && errors.Is(err, os.ErrNotExist) {
			loaded.Exists = false
			loaded.Warnings = append(loaded.Warnings, Warning{
				Message: fmt.Sprintf("config file %q not found; using defaults", explicitPath),
			})
		} else {
			return Loaded{}, fmt.Errorf("read config: %w", err)
		}
	}
	loaded.Path = v.ConfigFileUsed()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Loaded{}, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Loaded{}, err
	}

	loaded.Config = cfg
	return loaded, nil
}

// Validate enforces config invariants.
func Validate(cfg Config) error {
	base := strings.TrimSpace(cfg.Backend.BaseURL)
	if base == "" {
		return fmt.Errorf("backend.base_url must not be empty")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("backend.base_url must start with http:// or https://")
	}
	if !strings.HasPrefix(strings.TrimSpace(cfg.Backend.HealthPath), "/") {
		return fmt.Errorf("backend.health_path must start with '/'")
	}
	if cfg.Backend.UploadTimeoutMS <= 0 {
		return fmt.Errorf("backend.upload_timeout_ms must be > 0")
	}
	if cfg.Backend.FetchTimeoutMS <= 0 {
		return fmt.Errorf("backend.fetch_timeout_ms must be > 0")
	}
	if strings.TrimSpace(cfg.Audio.Input) == "" {
		return fmt.Errorf("audio.input must not be empty")
	}
	if _, err := language.Parse(strings.TrimSpace(cfg.Locale.Default)); err != nil {
		return fmt.Errorf("locale.default %q is not a valid BCP-47 tag", cfg.Locale.Default)
	}
	return nil
}

// resolveConfigDir selects XDG_CONFIG_HOME when available, else ~/.config.
func resolveConfigDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "povox"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "povox"), nil
}
