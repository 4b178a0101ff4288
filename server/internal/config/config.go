package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/benchboard/benchboard/pkg/regress"
)

// AlertsConfig holds the regression thresholds and webhook delivery targets.
type AlertsConfig struct {
	// Threshold is the ratio ("200%") above which a bench fires an alert.
	Threshold string `yaml:"threshold"`

	// WarnThreshold marks a suite degraded in /api/v1/health. Defaults to
	// half-way between 100% and Threshold.
	WarnThreshold string `yaml:"warn_threshold"`

	// Cooldown suppresses re-fires of the same suite+bench after an alert
	// fires. Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`

	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultGRPCPort       = 50051
	DefaultHTTPPort       = 8080
	DefaultBackend        = "memory"
	DefaultAlertThreshold = "200%"
	DefaultAlertCooldown  = 15 * time.Minute
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. Other top-level keys are ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// GRPCPort is the port the gRPC receiver listens on (default 50051).
	GRPCPort int `yaml:"grpc_port"`

	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates incoming gRPC and REST clients.
	Auth AuthConfig `yaml:"auth"`

	Storage  StorageConfig  `yaml:"storage"`
	DataFile DataFileConfig `yaml:"data_file"`
	History  HistoryConfig  `yaml:"history"`

	// Alerts holds regression thresholds and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the gRPC metadata key (and HTTP header name) to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// StorageConfig selects where history is persisted.
type StorageConfig struct {
	// Backend is memory | sqlite | postgres.
	Backend string `yaml:"backend"`

	// Path is the SQLite database file. Required for the sqlite backend.
	Path string `yaml:"path"`

	// DSNEnv is the name of the environment variable that holds the
	// PostgreSQL connection string. Required for the postgres backend.
	DSNEnv string `yaml:"dsn_env"`
}

// DSN returns the PostgreSQL connection string resolved from the environment.
func (s StorageConfig) DSN() string {
	if s.DSNEnv == "" {
		return ""
	}
	return os.Getenv(s.DSNEnv)
}

// DataFileConfig mirrors the history into a data.js file.
type DataFileConfig struct {
	// Path is rewritten after every append. Empty disables the sink.
	Path string `yaml:"path"`

	// Watch reloads the store when Path is changed by another writer.
	Watch bool `yaml:"watch"`
}

// HistoryConfig controls retention.
type HistoryConfig struct {
	// MaxItems keeps only the newest N entries per suite; 0 keeps all.
	MaxItems int `yaml:"max_items"`

	// RepoURL is reported as repoUrl in /data.js when no entry set one.
	RepoURL string `yaml:"repo_url"`
}

// Thresholds returns the parsed warn and alert ratios.
func (a AlertsConfig) Thresholds() (warn, alert float64, err error) {
	alert, err = regress.ParseThreshold(a.Threshold)
	if err != nil {
		return 0, 0, err
	}
	if a.WarnThreshold == "" {
		return 1 + (alert-1)/2, alert, nil
	}
	warn, err = regress.ParseThreshold(a.WarnThreshold)
	return warn, alert, err
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCPort: DefaultGRPCPort,
			HTTPPort: DefaultHTTPPort,
			Storage:  StorageConfig{Backend: DefaultBackend},
			Alerts: AlertsConfig{
				Threshold: DefaultAlertThreshold,
				Cooldown:  DefaultAlertCooldown,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.GRPCPort <= 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [1, 65535]", s.GRPCPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if s.Auth.Mode == "apikey" && s.Auth.KeyEnv == "" {
		return fmt.Errorf("server.auth.key_env is required for apikey mode")
	}
	switch s.Storage.Backend {
	case "memory":
	case "sqlite":
		if s.Storage.Path == "" {
			return fmt.Errorf("server.storage.path is required for the sqlite backend")
		}
	case "postgres":
		if s.Storage.DSNEnv == "" {
			return fmt.Errorf("server.storage.dsn_env is required for the postgres backend")
		}
	default:
		return fmt.Errorf("server.storage.backend %q unknown: want memory|sqlite|postgres", s.Storage.Backend)
	}
	if s.DataFile.Watch && s.DataFile.Path == "" {
		return fmt.Errorf("server.data_file.watch needs server.data_file.path")
	}
	if s.History.MaxItems < 0 {
		return fmt.Errorf("server.history.max_items must not be negative")
	}
	warn, alert, err := s.Alerts.Thresholds()
	if err != nil {
		return fmt.Errorf("server.alerts: %w", err)
	}
	if warn > alert {
		return fmt.Errorf("server.alerts.warn_threshold must not exceed threshold")
	}
	if s.Alerts.Cooldown < 0 {
		return fmt.Errorf("server.alerts.cooldown must not be negative")
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d].type %q unknown: want slack|teams|http", i, w.Type)
		}
	}
	return nil
}
