package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Only the collector section is present; the server section is absent.
	p := writeConfig(t, `collector:
  suite: "Benchmark"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.GRPCPort != DefaultGRPCPort {
		t.Errorf("grpc_port: got %d, want %d", s.GRPCPort, DefaultGRPCPort)
	}
	if s.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", s.HTTPPort, DefaultHTTPPort)
	}
	if s.Storage.Backend != DefaultBackend {
		t.Errorf("storage.backend: got %q, want %q", s.Storage.Backend, DefaultBackend)
	}
	if s.Alerts.Threshold != DefaultAlertThreshold || s.Alerts.Cooldown != DefaultAlertCooldown {
		t.Errorf("alerts: got %+v", s.Alerts)
	}
	warn, alert, err := s.Alerts.Thresholds()
	if err != nil {
		t.Fatalf("Thresholds: %v", err)
	}
	if alert != 2 || warn != 1.5 {
		t.Errorf("thresholds: got warn=%v alert=%v, want 1.5/2", warn, alert)
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  grpc_port: 9090
  http_port: 9091
  auth:
    mode: apikey
    key_env: MY_KEY
    header: x-bench-key
  storage:
    backend: sqlite
    path: /var/lib/benchboard/history.db
  data_file:
    path: /srv/gh-pages/dev/bench/data.js
    watch: true
  history:
    max_items: 500
    repo_url: https://github.com/paritytech/jsonrpsee
  alerts:
    threshold: 150%
    warn_threshold: 120%
    cooldown: 1h
    webhooks:
      - type: slack
        url_env: SLACK_URL
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.GRPCPort != 9090 {
		t.Errorf("grpc_port: got %d, want 9090", s.GRPCPort)
	}
	if s.Auth.EffectiveHeader() != "x-bench-key" {
		t.Errorf("header: got %q, want x-bench-key", s.Auth.EffectiveHeader())
	}
	if s.Storage.Backend != "sqlite" || s.Storage.Path == "" {
		t.Errorf("storage: got %+v", s.Storage)
	}
	if !s.DataFile.Watch {
		t.Error("data_file.watch: want true")
	}
	if s.History.MaxItems != 500 {
		t.Errorf("history.max_items: got %d, want 500", s.History.MaxItems)
	}
	if s.Alerts.Cooldown != time.Hour {
		t.Errorf("alerts.cooldown: got %v, want 1h", s.Alerts.Cooldown)
	}
	warn, alert, _ := s.Alerts.Thresholds()
	if warn != 1.2 || alert != 1.5 {
		t.Errorf("thresholds: got %v/%v, want 1.2/1.5", warn, alert)
	}
	if len(s.Alerts.Webhooks) != 1 || s.Alerts.Webhooks[0].URLEnv != "SLACK_URL" {
		t.Errorf("webhooks: got %+v", s.Alerts.Webhooks)
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "x-api-key" {
		t.Errorf("EffectiveHeader: got %q, want x-api-key", h)
	}
}

func TestLoad_KeyEnvResolution(t *testing.T) {
	t.Setenv("TEST_SERVER_KEY", "supersecret")
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: TEST_SERVER_KEY
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Server.Auth.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
}

func TestLoad_WebhookURL(t *testing.T) {
	t.Setenv("TEST_HOOK_URL", "https://hooks.example.com/x")
	w := WebhookConfig{Type: "http", URLEnv: "TEST_HOOK_URL"}
	if w.URL() != "https://hooks.example.com/x" {
		t.Errorf("URL(): got %q", w.URL())
	}
	if (WebhookConfig{Type: "http"}).URL() != "" {
		t.Error("URL() without url_env should be empty")
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown auth mode":  "server:\n  auth:\n    mode: oauth2\n",
		"apikey without env": "server:\n  auth:\n    mode: apikey\n",
		"bad port":           "server:\n  grpc_port: 70000\n",
		"unknown backend":    "server:\n  storage:\n    backend: mongo\n",
		"sqlite no path":     "server:\n  storage:\n    backend: sqlite\n",
		"postgres no dsn":    "server:\n  storage:\n    backend: postgres\n",
		"watch no path":      "server:\n  data_file:\n    watch: true\n",
		"negative max":       "server:\n  history:\n    max_items: -1\n",
		"bad threshold":      "server:\n  alerts:\n    threshold: lots\n",
		"warn above alert":   "server:\n  alerts:\n    threshold: 150%\n    warn_threshold: 300%\n",
		"unknown webhook":    "server:\n  alerts:\n    webhooks:\n      - type: pagerduty\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "server:\n  http_port: 8080\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	errc := make(chan error, 1)
	go func() {
		errc <- Watch(ctx, p, func(c *Config) {
			select {
			case reloaded <- c:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(p, []byte("server:\n  http_port: 9999\n"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	// A truncating write can surface an empty file first; wait for the final content.
	deadline := time.After(3 * time.Second)
	for done := false; !done; {
		select {
		case c := <-reloaded:
			done = c.Server.HTTPPort == 9999
		case <-deadline:
			t.Fatal("timed out waiting for reload with http_port 9999")
		}
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

func TestLoad_PostgresDSNFromEnv(t *testing.T) {
	t.Setenv("BENCHBOARD_PG_DSN", "postgres://bench@localhost/bench?sslmode=disable")
	cfg, err := Load(writeConfig(t, "server:\n  storage:\n    backend: postgres\n    dsn_env: BENCHBOARD_PG_DSN\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Server.Storage.DSN(); got != "postgres://bench@localhost/bench?sslmode=disable" {
		t.Errorf("DSN: got %q", got)
	}
}
