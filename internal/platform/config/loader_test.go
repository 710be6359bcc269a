package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	platformerrors "bizdash-go/internal/platform/errors"
)

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "bizdash.yaml")

	configContent := `
log:
  log_level: "debug"
domains:
  primary: "Admin.Example.com"
  hosts:
    admin.example.com:
      api_base: "https://api.example.com"
      auth_base: "https://api.example.com/api/auth"
session:
  driver: memory
orchestrator:
  max_retries: 5
  base_delay: 250ms
  timeouts:
    query: 5s
`
	if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	res, err := NewLoader().WithDotEnv(false).WithPath(configFile).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := res.Config

	if res.Path != configFile {
		t.Errorf("expected path %s, got %s", configFile, res.Path)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Domains.Primary != "admin.example.com" {
		t.Errorf("expected normalised primary, got %s", cfg.Domains.Primary)
	}
	if cfg.Orchestrator.MaxRetries != 5 {
		t.Errorf("expected max retries 5, got %d", cfg.Orchestrator.MaxRetries)
	}
	if cfg.Orchestrator.BaseDelay != 250*time.Millisecond {
		t.Errorf("expected base delay 250ms, got %s", cfg.Orchestrator.BaseDelay)
	}
	if cfg.Orchestrator.Timeouts.Query != 5*time.Second {
		t.Errorf("expected query timeout 5s, got %s", cfg.Orchestrator.Timeouts.Query)
	}
	// untouched keys keep their defaults
	if cfg.Orchestrator.Timeouts.Mutation != 30*time.Second {
		t.Errorf("expected default mutation timeout, got %s", cfg.Orchestrator.Timeouts.Mutation)
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("BIZDASH_SESSION_DRIVER", "memory")
	t.Setenv("BIZDASH_MAX_RETRIES", "1")
	t.Setenv("BIZDASH_DEFAULT_HOST", "Tenant.Example.com")

	loader := NewLoader().WithDotEnv(false)
	loader.search = nil

	res, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if res.Path != "" {
		t.Errorf("expected no config path, got %s", res.Path)
	}
	if res.Config.Session.Driver != "memory" {
		t.Errorf("expected memory driver, got %s", res.Config.Session.Driver)
	}
	if res.Config.Orchestrator.MaxRetries != 1 {
		t.Errorf("expected max retries 1, got %d", res.Config.Orchestrator.MaxRetries)
	}
	if res.Config.Domains.DefaultHost != "tenant.example.com" {
		t.Errorf("expected lower-cased default host, got %s", res.Config.Domains.DefaultHost)
	}
}

func TestLoader_MissingPinnedFile(t *testing.T) {
	_, err := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !platformerrors.IsKind(err, platformerrors.KindConfig) {
		t.Errorf("expected config kind, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}, wantErr: false},
		{
			name:    "primary without host entry",
			mutate:  func(c *Config) { c.Domains.Primary = "missing.example.com" },
			wantErr: true,
		},
		{
			name: "relative api base",
			mutate: func(c *Config) {
				c.Domains.Hosts["admin.bizdash.io"] = EndpointConfig{APIBase: "/api", AuthBase: "https://a.io"}
			},
			wantErr: true,
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Session.Driver = "etcd" },
			wantErr: true,
		},
		{
			name:    "redis without addr",
			mutate:  func(c *Config) { c.Session.Driver = "redis" },
			wantErr: true,
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Orchestrator.MaxRetries = -1 },
			wantErr: true,
		},
		{
			name:    "zero retries is a single attempt",
			mutate:  func(c *Config) { c.Orchestrator.MaxRetries = 0 },
			wantErr: false,
		},
		{
			name:    "zero cap",
			mutate:  func(c *Config) { c.Orchestrator.MaxDelay = 0 },
			wantErr: true,
		},
		{
			name:    "cap below base",
			mutate:  func(c *Config) { c.Orchestrator.MaxDelay = time.Millisecond },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
