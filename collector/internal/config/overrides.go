package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Override keys shared by flags and BENCHCTL_* environment variables.
// A flag named "output-file" is read from BENCHCTL_OUTPUT_FILE as well.
const (
	KeySuite          = "suite"
	KeyTool           = "tool"
	KeyOutputFile     = "output-file"
	KeyRepoURL        = "repo-url"
	KeyMaxItems       = "max-items"
	KeyAlertThreshold = "alert-threshold"
	KeyFailThreshold  = "fail-threshold"
	KeyFailOnAlert    = "fail-on-alert"
	KeyServer         = "server"
	KeyServerKeyEnv   = "server-key-env"
)

// NewViper returns a viper instance reading BENCHCTL_* variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("BENCHCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyOverrides copies every key set in v (by flag or environment) onto cfg
// and re-validates the result.
func ApplyOverrides(cfg *Config, v *viper.Viper) error {
	c := &cfg.Collector
	if s := v.GetString(KeySuite); s != "" {
		c.Suite = s
	}
	if s := v.GetString(KeyTool); s != "" {
		c.Tool = s
	}
	if s := v.GetString(KeyOutputFile); s != "" {
		c.OutputFile = s
	}
	if s := v.GetString(KeyRepoURL); s != "" {
		c.RepoURL = s
	}
	if v.IsSet(KeyMaxItems) {
		c.MaxItems = v.GetInt(KeyMaxItems)
	}
	if s := v.GetString(KeyAlertThreshold); s != "" {
		c.AlertThreshold = s
	}
	if s := v.GetString(KeyFailThreshold); s != "" {
		c.FailThreshold = s
	}
	if v.GetBool(KeyFailOnAlert) {
		c.FailOnAlert = true
	}
	if s := v.GetString(KeyServer); s != "" {
		c.Server.Endpoint = s
	}
	if s := v.GetString(KeyServerKeyEnv); s != "" {
		c.Server.Auth.Mode = "apikey"
		c.Server.Auth.KeyEnv = s
	}

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
