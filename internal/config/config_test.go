package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.FortiGate.Port != 443 {
		t.Errorf("FortiGate.Port = %d, want 443", cfg.FortiGate.Port)
	}
	if cfg.FortiGate.VerifySSL {
		t.Error("VerifySSL should default to false")
	}
	if cfg.FortiGate.Timeout.Duration() != 15*time.Second {
		t.Errorf("FortiGate.Timeout = %s, want 15s", cfg.FortiGate.Timeout.Duration())
	}
	if cfg.Server.Addr != ":3000" {
		t.Errorf("Server.Addr = %s, want :3000", cfg.Server.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.FortiGate.Host = "192.0.2.1"
	cfg.FortiGate.APIToken = "secret-token"
	cfg.Build.PollInterval = Duration(90 * time.Second)

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}
	if loaded.FortiGate.Host != "192.0.2.1" {
		t.Errorf("FortiGate.Host = %s, want 192.0.2.1", loaded.FortiGate.Host)
	}
	if loaded.Build.PollInterval.Duration() != 90*time.Second {
		t.Errorf("PollInterval = %s, want 1m30s", loaded.Build.PollInterval.Duration())
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "topolab.yaml")
	data := "fortigate:\n  host: fw.example.net\n  timeout: 5s\nbuild:\n  poll_interval: 0s\n"
	if err := os.WriteFile(configPath, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.FortiGate.Port != 443 {
		t.Errorf("Port = %d, want default 443", cfg.FortiGate.Port)
	}
	if cfg.FortiGate.Timeout.Duration() != 5*time.Second {
		t.Errorf("Timeout = %s, want 5s", cfg.FortiGate.Timeout.Duration())
	}
	if cfg.Build.PollInterval != 0 {
		t.Errorf("PollInterval = %s, want 0 (disabled)", cfg.Build.PollInterval.Duration())
	}
	if cfg.Database.Path != "./topolab.db" {
		t.Errorf("Database.Path = %s, want default", cfg.Database.Path)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "topolab.yaml")
	if err := os.WriteFile(configPath, []byte("fortigate:\n  timeout: soon\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, _, err := LoadFromPath(configPath); err == nil {
		t.Error("expected parse error for invalid duration")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvHost:      "10.0.0.1",
		EnvPort:      "8443",
		EnvUsername:  "admin",
		EnvPassword:  "pw",
		EnvVerifySSL: "TRUE",
		EnvAddr:      ":8080",
		EnvDatabase:  "/tmp/t.db",
		EnvAPIToken:  "",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv() error: %v", err)
	}

	if cfg.FortiGate.Host != "10.0.0.1" || cfg.FortiGate.Port != 8443 {
		t.Errorf("FortiGate = %s:%d, want 10.0.0.1:8443", cfg.FortiGate.Host, cfg.FortiGate.Port)
	}
	if !cfg.FortiGate.VerifySSL {
		t.Error("VerifySSL should be true")
	}
	if cfg.Server.Addr != ":8080" || cfg.Database.Path != "/tmp/t.db" {
		t.Errorf("Server.Addr = %s, Database.Path = %s", cfg.Server.Addr, cfg.Database.Path)
	}
	if cfg.FortiGate.APIToken != "" {
		t.Error("empty env values must not override")
	}
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		EnvPort:      "https",
		EnvVerifySSL: "maybe",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			err := DefaultConfig().ApplyEnv(envMap(map[string]string{key: value}))
			if err == nil || !strings.Contains(err.Error(), key) {
				t.Errorf("ApplyEnv(%s=%s) error = %v, want error naming the variable", key, value, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.FortiGate.Port = 70000 }, "fortigate.port"},
		{"negative history", func(c *Config) { c.Build.HistoryLimit = -1 }, "history_limit"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %s", err, tt.want)
			}
		})
	}
}

func TestValidateCollector(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ValidateCollector(); err == nil {
		t.Error("expected error without host")
	}

	cfg.FortiGate.Host = "fw"
	if err := cfg.ValidateCollector(); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("ValidateCollector() = %v, want ErrNoCredentials", err)
	}

	cfg.FortiGate.Username = "admin"
	cfg.FortiGate.Password = "pw"
	if err := cfg.ValidateCollector(); err != nil {
		t.Errorf("ValidateCollector() = %v, want nil", err)
	}
}

func TestSummaryMasksSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FortiGate.Host = "fw"
	cfg.FortiGate.Username = "admin"
	cfg.FortiGate.Password = "hunter2"

	summary := cfg.Summary()
	if strings.Contains(summary, "hunter2") {
		t.Error("Summary() leaked the password")
	}
	if !strings.Contains(summary, "login as admin") {
		t.Errorf("Summary() = %q, want auth description", summary)
	}
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	t.Chdir(tmpDir)

	found := FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should find config in working directory")
	}

	// Explicit path doesn't exist, should fall back
	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	found = FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should fall back when env path doesn't exist")
	}

	explicit := filepath.Join(tmpDir, "explicit.yaml")
	if err := cfg.Save(explicit); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, explicit)
	if found := FindConfigPath(); found != explicit {
		t.Errorf("FindConfigPath() = %s, want %s", found, explicit)
	}
}

func TestFindConfigPathUserConfigDir(t *testing.T) {
	t.Chdir(t.TempDir())
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv(EnvConfigPath, "")

	want := filepath.Join(xdg, "topolab", "config.yaml")
	if got := DefaultConfigPath(); got != want {
		t.Errorf("DefaultConfigPath() = %s, want %s", got, want)
	}

	if err := DefaultConfig().Save(want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if got := FindConfigPath(); got != want {
		t.Errorf("FindConfigPath() = %s, want %s", got, want)
	}

	// A directory named like the config file is not a config file
	if err := os.Mkdir(ConfigFileName, 0o755); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigPath(); got != want {
		t.Errorf("FindConfigPath() = %s, want %s", got, want)
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}
}
