package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/denysvitali/repo-analyzer-go/pkg/walker"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Scratch   ScratchConfig   `mapstructure:"scratch"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Walker    WalkerConfig    `mapstructure:"walker"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig contains server-specific configuration
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ScratchConfig controls where repositories are fetched to
type ScratchConfig struct {
	Dir string `mapstructure:"dir"`
}

// FetchConfig configures the git-based source fetcher
type FetchConfig struct {
	GitBinary string        `mapstructure:"git_binary"`
	Depth     int           `mapstructure:"depth"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// WalkerConfig configures repository traversal
type WalkerConfig struct {
	Exclude []string `mapstructure:"exclude"`
	OnError string   `mapstructure:"on_error"`
}

// Options converts the config into walker options
func (w WalkerConfig) Options() (walker.Options, error) {
	policy, err := walker.ParseErrorPolicy(w.OnError)
	if err != nil {
		return walker.Options{}, err
	}
	return walker.Options{Exclude: w.Exclude, OnError: policy}, nil
}

// GitHubConfig configures the GitHub REST client
type GitHubConfig struct {
	Token   string        `mapstructure:"token"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TelemetryConfig contains telemetry configuration
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: 3000},
		Scratch: ScratchConfig{Dir: os.TempDir()},
		Fetch: FetchConfig{
			GitBinary: "git",
			Depth:     1,
			Timeout:   5 * time.Minute,
		},
		Walker: WalkerConfig{
			Exclude: append([]string(nil), walker.DefaultExclude...),
			OnError: walker.Strict.String(),
		},
		GitHub: GitHubConfig{
			BaseURL: "https://api.github.com",
			Timeout: 30 * time.Second,
		},
		Telemetry: TelemetryConfig{Enabled: false},
		Log:       LogConfig{Level: "info"},
	}
}

// Load loads the configuration from viper
func Load() (*Config, error) {
	cfg := &Config{}

	// Set defaults
	setDefaults()

	// Unmarshal configuration
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Post-process configuration
	if err := postProcess(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults() {
	d := Default()

	viper.SetDefault("server.port", d.Server.Port)

	viper.SetDefault("scratch.dir", d.Scratch.Dir)

	viper.SetDefault("fetch.git_binary", d.Fetch.GitBinary)
	viper.SetDefault("fetch.depth", d.Fetch.Depth)
	viper.SetDefault("fetch.timeout", d.Fetch.Timeout)

	viper.SetDefault("walker.exclude", d.Walker.Exclude)
	viper.SetDefault("walker.on_error", d.Walker.OnError)

	viper.SetDefault("github.base_url", d.GitHub.BaseURL)
	viper.SetDefault("github.timeout", d.GitHub.Timeout)

	viper.SetDefault("telemetry.enabled", d.Telemetry.Enabled)

	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.json", d.Log.JSON)

	// Environment variable mappings
	_ = viper.BindEnv("github.token", "GITHUB_TOKEN")
	_ = viper.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func postProcess(cfg *Config) error {
	if cfg.Scratch.Dir == "" {
		cfg.Scratch.Dir = os.TempDir()
	}

	// Ensure scratch directory is absolute
	if !filepath.IsAbs(cfg.Scratch.Dir) {
		abs, err := filepath.Abs(cfg.Scratch.Dir)
		if err != nil {
			return err
		}
		cfg.Scratch.Dir = abs
	}

	if cfg.Fetch.GitBinary == "" {
		cfg.Fetch.GitBinary = "git"
	}
	if cfg.Fetch.Depth < 0 {
		return fmt.Errorf("fetch.depth must not be negative, got %d", cfg.Fetch.Depth)
	}

	if _, err := cfg.Walker.Options(); err != nil {
		return err
	}

	return nil
}
