// Package config loads the gateway configuration: file settings from the
// config directory, flag overrides from the CLI, and environment overrides
// via AGENTGATE_* variables. Configuration is read fresh on every invocation
// and treated as an immutable snapshot afterward.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir      = ".agentgate"
	DefaultRulesFile      = "rules.yaml"
	DefaultExemptionsFile = "exemptions.yaml"
	DefaultGatewayFile    = "gateway.yaml"
	DefaultLogFile        = "decisions.jsonl"
	DefaultCacheDir       = "cache"
)

// Completion is the completion-moderator policy.
type Completion struct {
	Markers    []string `yaml:"markers"`
	Prohibited []string `yaml:"prohibited"`
	Window     int      `yaml:"window"`
	Escalate   bool     `yaml:"escalate"`
}

// Session describes the agent session on whose behalf hooks fire. Owned by
// the session's caller; the gateway only reads it.
type Session struct {
	Provider     string   `yaml:"provider"`
	Model        string   `yaml:"model"`
	SessionID    string   `yaml:"session_id"`
	AllowedTools []string `yaml:"allowed_tools"`
	// HooksEnabled distinguishes "not set" from an explicit false; only the
	// explicit false opts the session out of evaluation.
	HooksEnabled   *bool `yaml:"hooks_enabled"`
	TimeoutSeconds int   `yaml:"timeout_seconds"`
}

// gatewayFile is the optional on-disk settings file.
type gatewayFile struct {
	Provider       string     `yaml:"provider"`
	Model          string     `yaml:"model"`
	TimeoutSeconds int        `yaml:"timeout_seconds"`
	MaxWorkers     int        `yaml:"max_workers"`
	CacheBackend   string     `yaml:"cache_backend"`
	Completion     Completion `yaml:"completion"`
}

// envOverrides are applied last. envconfig turns the field names into
// AGENTGATE_BYPASS, AGENTGATE_PROVIDER, and so on.
type envOverrides struct {
	Bypass         bool   `envconfig:"BYPASS"`
	Provider       string `envconfig:"PROVIDER"`
	Model          string `envconfig:"MODEL"`
	TimeoutSeconds int    `envconfig:"TIMEOUT_SECONDS"`
	MaxWorkers     int    `envconfig:"MAX_WORKERS"`
	CacheBackend   string `envconfig:"CACHE_BACKEND"`
}

// Config is the merged, immutable snapshot for one invocation.
type Config struct {
	ConfigDir      string
	RulesPath      string
	ExemptionsPath string
	LogPath        string
	CacheDir       string

	Provider       string
	Model          string
	TimeoutSeconds int
	MaxWorkers     int
	CacheBackend   string
	Bypass         bool

	Completion Completion
}

// Overrides carry CLI flag values; empty strings mean "use the default".
type Overrides struct {
	RulesPath      string
	ExemptionsPath string
	LogPath        string
	CacheDir       string
	Provider       string
	Model          string
}

// Load merges defaults, the optional gateway.yaml, CLI overrides, and
// environment overrides, in that order.
func Load(ov Overrides) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %w", err)
	}
	configDir := filepath.Join(home, DefaultConfigDir)
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("config dir: %w", err)
	}

	cfg := &Config{
		ConfigDir:      configDir,
		RulesPath:      filepath.Join(configDir, DefaultRulesFile),
		ExemptionsPath: filepath.Join(configDir, DefaultExemptionsFile),
		LogPath:        filepath.Join(configDir, DefaultLogFile),
		CacheDir:       filepath.Join(configDir, DefaultCacheDir),
		Provider:       "claude",
		TimeoutSeconds: 120,
		MaxWorkers:     4,
		CacheBackend:   "file",
	}

	if err := cfg.applyGatewayFile(filepath.Join(configDir, DefaultGatewayFile)); err != nil {
		return nil, err
	}

	if ov.RulesPath != "" {
		cfg.RulesPath = ov.RulesPath
	}
	if ov.ExemptionsPath != "" {
		cfg.ExemptionsPath = ov.ExemptionsPath
	}
	if ov.LogPath != "" {
		cfg.LogPath = ov.LogPath
	}
	if ov.CacheDir != "" {
		cfg.CacheDir = ov.CacheDir
	}
	if ov.Provider != "" {
		cfg.Provider = ov.Provider
	}
	if ov.Model != "" {
		cfg.Model = ov.Model
	}

	var env envOverrides
	if err := envconfig.Process("agentgate", &env); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if env.Bypass {
		cfg.Bypass = true
	}
	if env.Provider != "" {
		cfg.Provider = env.Provider
	}
	if env.Model != "" {
		cfg.Model = env.Model
	}
	if env.TimeoutSeconds > 0 {
		cfg.TimeoutSeconds = env.TimeoutSeconds
	}
	if env.MaxWorkers > 0 {
		cfg.MaxWorkers = env.MaxWorkers
	}
	if env.CacheBackend != "" {
		cfg.CacheBackend = env.CacheBackend
	}

	return cfg, nil
}

func (c *Config) applyGatewayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	var gf gatewayFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if gf.Provider != "" {
		c.Provider = gf.Provider
	}
	if gf.Model != "" {
		c.Model = gf.Model
	}
	if gf.TimeoutSeconds > 0 {
		c.TimeoutSeconds = gf.TimeoutSeconds
	}
	if gf.MaxWorkers > 0 {
		c.MaxWorkers = gf.MaxWorkers
	}
	if gf.CacheBackend != "" {
		c.CacheBackend = gf.CacheBackend
	}
	c.Completion = gf.Completion
	return nil
}

// LoadExemptions reads the fully-exempt path glob list. A missing file means
// no extra exemptions.
func LoadExemptions(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var doc struct {
		ExemptPaths []string `yaml:"exempt_paths"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.ExemptPaths, nil
}

// LoadSession reads a session description if one exists at path.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &s, nil
}
