// Package config provides configuration management for topolab.
//
// Settings come from, in increasing precedence: built-in defaults, a YAML
// config file, environment variables and command-line flags (applied by the
// caller).
//
// The config file is the first of $TOPOLAB_CONFIG, ./topolab.yaml,
// topolab/config.yaml under the user config directory ($XDG_CONFIG_HOME or
// ~/.config on Linux) and /etc/topolab/config.yaml that exists.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv
const (
	EnvHost      = "FORTIGATE_HOST"
	EnvPort      = "FORTIGATE_PORT"
	EnvUsername  = "FORTIGATE_USERNAME"
	EnvPassword  = "FORTIGATE_PASSWORD"
	EnvAPIToken  = "FORTIGATE_API_TOKEN"
	EnvVerifySSL = "VERIFY_SSL"
	EnvAddr      = "TOPOLAB_ADDR"
	EnvDatabase  = "TOPOLAB_DB"
	EnvLogLevel  = "TOPOLAB_LOG_LEVEL"
)

// EnvConfigPath names an explicit config file, searched before any default
// location
const EnvConfigPath = "TOPOLAB_CONFIG"

// ConfigFileName is the config file looked for in the working directory
const ConfigFileName = "topolab.yaml"

// ErrNoCredentials is returned by ValidateCollector when neither an API
// token nor a username and password are configured
var ErrNoCredentials = errors.New("no FortiGate credentials configured")

// searchPaths returns the candidate config files in priority order
func searchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	if abs, err := filepath.Abs(ConfigFileName); err == nil {
		paths = append(paths, abs)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "topolab", "config.yaml"))
	}
	return append(paths, "/etc/topolab/config.yaml")
}

// FindConfigPath returns the first existing config file, or "" when there
// is none. A $TOPOLAB_CONFIG that does not exist is skipped.
func FindConfigPath() string {
	for _, p := range searchPaths() {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p
		}
	}
	return ""
}

// DefaultConfigPath is where `config init` writes a new file
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "topolab", "config.yaml")
	}
	return ConfigFileName
}

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return cfg, path, nil
}

// Save writes config to the specified path. Secrets are written as-is, so
// the file is created readable by its owner only.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		FortiGate: FortiGateConfig{
			Port:    443,
			Timeout: Duration(15 * time.Second),
		},
		Server:   ServerConfig{Addr: ":3000"},
		Database: DatabaseConfig{Path: "./topolab.db"},
		Build: BuildConfig{
			PollInterval: Duration(5 * time.Minute),
			HistoryLimit: 100,
			OutputDir:    "output",
		},
		Preflight: PreflightConfig{
			Timeout: Duration(30 * time.Second),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Version == 0 {
		c.Version = def.Version
	}
	if c.FortiGate.Port == 0 {
		c.FortiGate.Port = def.FortiGate.Port
	}
	if c.FortiGate.Timeout == 0 {
		c.FortiGate.Timeout = def.FortiGate.Timeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.Build.OutputDir == "" {
		c.Build.OutputDir = def.Build.OutputDir
	}
	if c.Preflight.Timeout == 0 {
		c.Preflight.Timeout = def.Preflight.Timeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
}

// ApplyEnv overrides settings from environment variables. lookup is
// os.LookupEnv outside of tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHost); ok && v != "" {
		c.FortiGate.Host = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.FortiGate.Port = port
	}
	if v, ok := lookup(EnvUsername); ok && v != "" {
		c.FortiGate.Username = v
	}
	if v, ok := lookup(EnvPassword); ok && v != "" {
		c.FortiGate.Password = v
	}
	if v, ok := lookup(EnvAPIToken); ok && v != "" {
		c.FortiGate.APIToken = v
	}
	if v, ok := lookup(EnvVerifySSL); ok && v != "" {
		verify, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvVerifySSL, err)
		}
		c.FortiGate.VerifySSL = verify
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvDatabase); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks settings every command depends on
func (c *Config) Validate() error {
	var errs []error
	if c.FortiGate.Port < 1 || c.FortiGate.Port > 65535 {
		errs = append(errs, fmt.Errorf("fortigate.port %d out of range", c.FortiGate.Port))
	}
	if c.FortiGate.Timeout < 0 {
		errs = append(errs, errors.New("fortigate.timeout must not be negative"))
	}
	if c.Build.PollInterval < 0 {
		errs = append(errs, errors.New("build.poll_interval must not be negative"))
	}
	if c.Build.HistoryLimit < 0 {
		errs = append(errs, errors.New("build.history_limit must not be negative"))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not console or json", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// ValidateCollector checks the settings needed to talk to a live firewall
func (c *Config) ValidateCollector() error {
	if c.FortiGate.Host == "" {
		return errors.New("fortigate.host is required")
	}
	if c.FortiGate.APIToken == "" && (c.FortiGate.Username == "" || c.FortiGate.Password == "") {
		return ErrNoCredentials
	}
	return nil
}

// Summary returns a human-readable config summary with secrets masked
func (c *Config) Summary() string {
	auth := "none"
	switch {
	case c.FortiGate.APIToken != "":
		auth = "api token"
	case c.FortiGate.Username != "":
		auth = "login as " + c.FortiGate.Username
	}

	summary := fmt.Sprintf("FortiGate: %s:%d (%s, verify_ssl=%v, timeout=%s)\n",
		c.FortiGate.Host, c.FortiGate.Port, auth, c.FortiGate.VerifySSL, c.FortiGate.Timeout.Duration())
	summary += fmt.Sprintf("Server: %s, Database: %s\n", c.Server.Addr, c.Database.Path)
	summary += fmt.Sprintf("Polling: %s, History: %d builds", c.Build.PollInterval.Duration(), c.Build.HistoryLimit)
	return summary
}
