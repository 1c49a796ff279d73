package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
api:
  url: "https://file.example.com/api.php"
  token: "file_token"
defaults:
  timeout: 20s
  applications_limit: 50
targets:
  - name: core-sw
    type: ios
    host: 10.0.0.1
    username: admin
    password_env: CORE_SW_PASSWORD
    enable_secret: s3cret
  - name: dc1
    type: windows
    host: dc1.corp.local
    username: CORP\probe
    password: pw
    timeout: 45s
    windows:
      transport: basic
      use_ssl: true
      collect_applications: false
      applications_limit: 10
      operation_timeout: 15s
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadLayered_CLIOverridesEverything(t *testing.T) {
	path := writeFile(t, sampleConfig)
	t.Setenv("ASSETPROBE_API_URL", "https://env.example.com")
	cli := CLIOverrides{URL: "https://cli.example.com", Token: "cli_token", LogLevel: "debug"}

	cfg, err := LoadLayered(cli, path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.URL != "https://cli.example.com" {
		t.Errorf("URL = %q, want CLI override", cfg.API.URL)
	}
	if cfg.API.Token != "cli_token" {
		t.Errorf("Token = %q, want CLI override", cfg.API.Token)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want CLI override", cfg.Logging.Level)
	}
}

func TestLoadLayered_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, sampleConfig)
	t.Setenv("ASSETPROBE_API_URL", "https://env.example.com")

	cfg, err := LoadLayered(CLIOverrides{}, path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.URL != "https://env.example.com" {
		t.Errorf("URL = %q, want env override", cfg.API.URL)
	}
	if cfg.API.Token != "file_token" {
		t.Errorf("Token = %q, want file value", cfg.API.Token)
	}
}

func TestLoadLayered_DefaultsWhenEmpty(t *testing.T) {
	cfg, err := LoadLayered(CLIOverrides{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Defaults.Timeout.Duration != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s default", cfg.Defaults.Timeout.Duration)
	}
	if cfg.Defaults.ApplicationsLimit != 200 {
		t.Errorf("ApplicationsLimit = %d, want 200", cfg.Defaults.ApplicationsLimit)
	}
	if len(cfg.Targets) != 0 {
		t.Errorf("Targets = %d, want none", len(cfg.Targets))
	}
}

func TestLoadLayered_MissingExplicitFile(t *testing.T) {
	_, err := LoadLayered(CLIOverrides{}, filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadFromBytes_InvalidDuration(t *testing.T) {
	_, err := LoadFromBytes([]byte("defaults:\n  timeout: soon\n"))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("err = %v, want invalid duration", err)
	}
}

func TestTargetConversion(t *testing.T) {
	t.Setenv("CORE_SW_PASSWORD", "from-env")
	cfg, err := LoadFromBytes([]byte(sampleConfig))
	if err != nil {
		t.Fatal(err)
	}

	sw, ok := cfg.FindTarget("core-sw")
	if !ok {
		t.Fatal("core-sw not found")
	}
	target := sw.Target(cfg.Defaults)
	if target.Password != "from-env" {
		t.Errorf("Password = %q, want value from env", target.Password)
	}
	if target.EnableSecret != "s3cret" {
		t.Errorf("EnableSecret = %q", target.EnableSecret)
	}
	if target.Timeout != 20*time.Second {
		t.Errorf("Timeout = %v, want defaults.timeout", target.Timeout)
	}
	if target.NormalizedKind() != "cisco" {
		t.Errorf("kind = %q, want cisco", target.NormalizedKind())
	}
	if target.DisplayName != "core-sw" {
		t.Errorf("DisplayName = %q", target.DisplayName)
	}

	dc, _ := cfg.FindTarget("dc1")
	win := dc.Target(cfg.Defaults)
	if win.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want per-target value", win.Timeout)
	}
	if win.Windows.CollectApplications {
		t.Error("CollectApplications should be overridden to false")
	}
	if win.Windows.ApplicationsLimit != 10 {
		t.Errorf("ApplicationsLimit = %d, want 10", win.Windows.ApplicationsLimit)
	}
	if !win.Windows.UseSSL || win.Windows.Transport != "basic" {
		t.Errorf("Windows options not carried: %+v", win.Windows)
	}
	if win.Windows.OperationTimeout != 15*time.Second {
		t.Errorf("OperationTimeout = %v", win.Windows.OperationTimeout)
	}
	if _, ok := cfg.FindTarget("missing"); ok {
		t.Error("FindTarget returned a target that does not exist")
	}
}

func TestValidate(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(sampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	cfg.Targets = append(cfg.Targets, TargetConfig{Name: "core-sw", Host: "10.0.0.2", Username: "x"})
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Validate() = %v, want duplicate name error", err)
	}

	cfg.Targets = []TargetConfig{{Name: "nohost", Username: "x"}}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "missing host") {
		t.Errorf("Validate() = %v, want missing host error", err)
	}

	cfg.Targets = []TargetConfig{{Name: "self", Type: "local"}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, local targets need no host", err)
	}
}

func TestValidateAPI(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		token   string
		wantErr bool
	}{
		{"https", "https://assets.example.com/api.php", "t", false},
		{"localhost http", "http://localhost:8080/api.php", "t", false},
		{"remote http", "http://assets.example.com/api.php", "t", true},
		{"no token", "https://assets.example.com/api.php", "", true},
		{"no url", "", "t", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.API.URL = tt.url
			cfg.API.Token = tt.token
			err := cfg.ValidateAPI()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPI() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteConfig_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.API.URL = "https://test.example.com"

	if err := WriteConfig(cfg, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.API.URL != "https://test.example.com" {
		t.Errorf("URL = %q after round trip", loaded.API.URL)
	}
	if loaded.Defaults.Timeout.Duration != cfg.Defaults.Timeout.Duration {
		t.Errorf("Timeout = %v after round trip", loaded.Defaults.Timeout.Duration)
	}
}
