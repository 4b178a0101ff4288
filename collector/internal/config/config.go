package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/benchboard/benchboard/pkg/regress"
	"github.com/benchboard/benchboard/pkg/types"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultSuite          = "Benchmark"
	DefaultOutputFile     = "dev/bench/data.js"
	DefaultAlertThreshold = "200%"
	DefaultPushTimeout    = 10 * time.Second
	DefaultMaxAttempts    = 5
)

// Config is the top-level benchctl configuration file.
type Config struct {
	Collector CollectorConfig `yaml:"collector"`
}

// CollectorConfig holds every setting used by benchctl commands.
type CollectorConfig struct {
	// Suite is the name entries are recorded under (the chart group).
	Suite string `yaml:"suite"`

	// Tool selects the output parser: cargo | go | benchmarkjs | pytest |
	// customBiggerIsBetter | customSmallerIsBetter | prometheus.
	Tool string `yaml:"tool"`

	// OutputFile is the data.js file appended to.
	OutputFile string `yaml:"output_file"`

	// RepoURL is written to the data file and used to build commit URLs.
	RepoURL string `yaml:"repo_url"`

	// MaxItems trims each suite to its newest N entries; 0 keeps everything.
	MaxItems int `yaml:"max_items"`

	// AlertThreshold is the ratio ("200%") above which a change is reported.
	AlertThreshold string `yaml:"alert_threshold"`

	// FailThreshold is the ratio above which --fail-on-alert exits non-zero.
	// Defaults to AlertThreshold.
	FailThreshold string `yaml:"fail_threshold"`

	// FailOnAlert makes append exit non-zero when a regression exceeds
	// FailThreshold.
	FailOnAlert bool `yaml:"fail_on_alert"`

	// SourceAuth is used when the benchmark input is an http(s) URL.
	SourceAuth AuthConfig `yaml:"source_auth"`

	// Server configures `benchctl push`.
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds the gRPC push target.
type ServerConfig struct {
	// Endpoint is the gRPC address of the benchboard server (host:port).
	Endpoint string `yaml:"endpoint"`

	// Auth configures how benchctl authenticates to the server.
	Auth AuthConfig `yaml:"auth"`

	// Timeout bounds a single Append call.
	Timeout time.Duration `yaml:"timeout"`

	// MaxAttempts bounds retries of transient failures.
	MaxAttempts int `yaml:"max_attempts"`
}

// AuthConfig specifies an authentication mode.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header carries the API key; defaults to x-api-key.
	Header string `yaml:"header"`
	KeyEnv string `yaml:"key_env"`

	TokenEnv string `yaml:"token_env"`

	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// EffectiveHeader returns the configured header name, or "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// Load reads the YAML config file at path. A missing file is not an error
// when optional is true; defaults are returned instead.
func Load(path string, optional bool) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Collector: CollectorConfig{
			Suite:          DefaultSuite,
			OutputFile:     DefaultOutputFile,
			AlertThreshold: DefaultAlertThreshold,
			Server: ServerConfig{
				Timeout:     DefaultPushTimeout,
				MaxAttempts: DefaultMaxAttempts,
			},
		},
	}
}

// Validate checks structural constraints. Command-specific requirements
// (a tool for extract, an endpoint for push) are checked by the commands.
func Validate(cfg *Config) error {
	c := cfg.Collector
	if c.Tool != "" && !types.KnownTool(c.Tool) {
		return fmt.Errorf("collector.tool %q unknown", c.Tool)
	}
	if c.MaxItems < 0 {
		return fmt.Errorf("collector.max_items must not be negative")
	}
	if _, err := regress.ParseThreshold(c.AlertThreshold); err != nil {
		return fmt.Errorf("collector.alert_threshold: %w", err)
	}
	if c.FailThreshold != "" {
		if _, err := regress.ParseThreshold(c.FailThreshold); err != nil {
			return fmt.Errorf("collector.fail_threshold: %w", err)
		}
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("collector.server.timeout must be positive")
	}
	if c.Server.MaxAttempts <= 0 {
		return fmt.Errorf("collector.server.max_attempts must be positive")
	}
	for name, a := range map[string]AuthConfig{"source_auth": c.SourceAuth, "server.auth": c.Server.Auth} {
		switch a.Mode {
		case "mtls", "apikey", "bearer", "basic", "none", "":
		default:
			return fmt.Errorf("collector.%s: unknown auth mode %q", name, a.Mode)
		}
	}
	return nil
}

// Thresholds returns the parsed alert and fail thresholds.
func (c CollectorConfig) Thresholds() (alert, fail float64, err error) {
	alert, err = regress.ParseThreshold(c.AlertThreshold)
	if err != nil {
		return 0, 0, err
	}
	if c.FailThreshold == "" {
		return alert, alert, nil
	}
	fail, err = regress.ParseThreshold(c.FailThreshold)
	return alert, fail, err
}
