// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Guliveer/assetprobe/internal/probe"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "15s", "30s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all probe configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Logging  LoggingConfig  `yaml:"logging"`
	Targets  []TargetConfig `yaml:"targets"`
}

// APIConfig holds the central collector endpoint used by "run --push".
type APIConfig struct {
	URL        string   `yaml:"url"`
	Token      string   `yaml:"token"`
	Timeout    Duration `yaml:"timeout"`
	MaxRetries int      `yaml:"max_retries"`

	// SpoolDir keeps reports that could not be delivered; empty disables it.
	SpoolDir   string `yaml:"spool_dir"`
	SpoolMaxMB int    `yaml:"spool_max_mb"`
}

// DefaultsConfig holds values applied to targets that leave them unset.
type DefaultsConfig struct {
	Timeout             Duration `yaml:"timeout"`
	CollectApplications bool     `yaml:"collect_applications"`
	ApplicationsLimit   int      `yaml:"applications_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// TargetConfig describes one device. Secrets may be given inline or read
// from the environment variable named by the matching *_env field.
type TargetConfig struct {
	Name            string        `yaml:"name"`
	Type            string        `yaml:"type"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port,omitempty"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password,omitempty"`
	PasswordEnv     string        `yaml:"password_env,omitempty"`
	KeyFile         string        `yaml:"key_file,omitempty"`
	EnableSecret    string        `yaml:"enable_secret,omitempty"`
	EnableSecretEnv string        `yaml:"enable_secret_env,omitempty"`
	Timeout         Duration      `yaml:"timeout,omitempty"`
	Domain          string        `yaml:"domain,omitempty"`
	Hashes          string        `yaml:"hashes,omitempty"`
	Kerberos        bool          `yaml:"kerberos,omitempty"`
	Windows         WindowsConfig `yaml:"windows,omitempty"`
}

// WindowsConfig holds the WMI and WinRM options of a Windows target.
type WindowsConfig struct {
	Namespace           string   `yaml:"namespace,omitempty"`
	Transport           string   `yaml:"transport,omitempty"`
	UseSSL              bool     `yaml:"use_ssl,omitempty"`
	Port                int      `yaml:"port,omitempty"`
	ValidateCert        bool     `yaml:"validate_cert,omitempty"`
	CollectApplications *bool    `yaml:"collect_applications,omitempty"`
	ApplicationsLimit   *int     `yaml:"applications_limit,omitempty"`
	ReadTimeout         Duration `yaml:"read_timeout,omitempty"`
	OperationTimeout    Duration `yaml:"operation_timeout,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			URL:        "http://localhost:8080/api.php",
			Timeout:    Duration{10 * time.Second},
			MaxRetries: 3,
			SpoolMaxMB: 50,
		},
		Defaults: DefaultsConfig{
			Timeout:             Duration{probe.DefaultTimeout},
			CollectApplications: true,
			ApplicationsLimit:   200,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with defaults.
// Environment variables take highest precedence and override values from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	URL      string
	Token    string
	LogLevel string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > YAML file > defaults.
//
// An optional configPath argument controls file discovery:
//   - omitted: auto-discover via Locate()
//   - explicit value: use that path ("" means no file)
//
// Unlike Load, an explicitly named file that does not exist is an error.
func LoadLayered(cli CLIOverrides, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	var filePath string
	explicit := len(configPath) > 0
	if explicit {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		case explicit || !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if cli.URL != "" {
		cfg.API.URL = cli.URL
	}
	if cli.Token != "" {
		cfg.API.Token = cli.Token
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("ASSETPROBE_API_URL"); url != "" {
		cfg.API.URL = url
	}
	if token := os.Getenv("ASSETPROBE_API_TOKEN"); token != "" {
		cfg.API.Token = token
	}
	if level := os.Getenv("ASSETPROBE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// Validate checks the target list. API settings are checked separately by
// ValidateAPI because only pushing needs them.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		label := t.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if t.Name != "" {
			if seen[t.Name] {
				return fmt.Errorf("target %s: duplicate name", label)
			}
			seen[t.Name] = true
		}
		if err := t.Target(c.Defaults).Validate(); err != nil {
			return fmt.Errorf("target %s: %w", label, err)
		}
	}
	return nil
}

// ValidateAPI checks that results can be pushed. HTTPS is required for
// non-localhost URLs.
func (c *Config) ValidateAPI() error {
	if c.API.URL == "" {
		return fmt.Errorf("api URL is required")
	}
	if c.API.Token == "" {
		return fmt.Errorf("api token is required")
	}
	if !strings.HasPrefix(c.API.URL, "https://") {
		// Allow localhost for development
		if !strings.Contains(c.API.URL, "localhost") && !strings.Contains(c.API.URL, "127.0.0.1") {
			return fmt.Errorf("api URL must use HTTPS (got: %s)", c.API.URL)
		}
	}
	return nil
}

// FindTarget returns the target with the given name.
func (c *Config) FindTarget(name string) (TargetConfig, bool) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return TargetConfig{}, false
}

// Target converts the configuration entry into connection parameters,
// filling unset values from defaults and resolving *_env secrets.
func (t TargetConfig) Target(defaults DefaultsConfig) probe.Target {
	target := probe.Target{
		Kind:         t.Type,
		Host:         t.Host,
		Port:         t.Port,
		Username:     t.Username,
		Password:     secret(t.Password, t.PasswordEnv),
		KeyFile:      t.KeyFile,
		Timeout:      t.Timeout.Duration,
		DisplayName:  t.Name,
		EnableSecret: secret(t.EnableSecret, t.EnableSecretEnv),
		Hashes:       t.Hashes,
		Domain:       t.Domain,
		Kerberos:     t.Kerberos,
		Windows: probe.WindowsOptions{
			Namespace:           t.Windows.Namespace,
			Transport:           t.Windows.Transport,
			UseSSL:              t.Windows.UseSSL,
			Port:                t.Windows.Port,
			ValidateCert:        t.Windows.ValidateCert,
			CollectApplications: defaults.CollectApplications,
			ApplicationsLimit:   defaults.ApplicationsLimit,
			ReadTimeout:         t.Windows.ReadTimeout.Duration,
			OperationTimeout:    t.Windows.OperationTimeout.Duration,
		},
	}
	if target.Timeout == 0 {
		target.Timeout = defaults.Timeout.Duration
	}
	if t.Windows.CollectApplications != nil {
		target.Windows.CollectApplications = *t.Windows.CollectApplications
	}
	if t.Windows.ApplicationsLimit != nil {
		target.Windows.ApplicationsLimit = *t.Windows.ApplicationsLimit
	}
	return target
}

func secret(inline, envName string) string {
	if inline != "" || envName == "" {
		return inline
	}
	return os.Getenv(envName)
}
