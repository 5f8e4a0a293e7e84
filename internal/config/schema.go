package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	FortiGate FortiGateConfig `yaml:"fortigate"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Build     BuildConfig     `yaml:"build"`
	Preflight PreflightConfig `yaml:"preflight"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// FortiGateConfig locates and authenticates against the firewall API.
// Either APIToken or Username and Password must be set for live collection.
type FortiGateConfig struct {
	Host      string   `yaml:"host"`
	Port      int      `yaml:"port"`
	Username  string   `yaml:"username,omitempty"`
	Password  string   `yaml:"password,omitempty"`
	APIToken  string   `yaml:"api_token,omitempty"`
	VerifySSL bool     `yaml:"verify_ssl"`
	Timeout   Duration `yaml:"timeout"` // per fetch
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// BuildConfig controls scheduled rebuilds and build output
type BuildConfig struct {
	PollInterval Duration `yaml:"poll_interval"` // 0 disables polling
	HistoryLimit int      `yaml:"history_limit"` // 0 keeps every build
	OutputDir    string   `yaml:"output_dir"`
}

// PreflightConfig controls the nmap reachability probe
type PreflightConfig struct {
	Enabled    bool     `yaml:"enabled"`
	ExtraPorts string   `yaml:"extra_ports,omitempty"`
	Timeout    Duration `yaml:"timeout"`
}

// LoggingConfig selects the log level, encoding and optional rotating file
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // console or json
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
