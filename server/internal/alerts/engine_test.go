package alerts

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benchboard/benchboard/pkg/regress"
	"github.com/benchboard/benchboard/pkg/types"
	"github.com/benchboard/benchboard/server/internal/config"
)

func newEngine(t *testing.T, cfg config.AlertsConfig) (*Engine, *time.Time) {
	t.Helper()
	if cfg.Threshold == "" {
		cfg.Threshold = "200%"
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return clock }
	return e, &clock
}

func commitEntry(id string) *types.Entry {
	return &types.Entry{Commit: types.Commit{ID: id}}
}

func change(name string, ratio float64) regress.Change {
	return regress.Change{Name: name, Unit: "ns/iter", Prev: 100, Curr: 100 * ratio, Ratio: ratio}
}

func TestNew_InvalidThreshold(t *testing.T) {
	if _, err := New(config.AlertsConfig{Threshold: "fast"}); err == nil {
		t.Fatal("expected error for invalid threshold")
	}
}

func TestEvaluate_FiresOverThreshold(t *testing.T) {
	e, _ := newEngine(t, config.AlertsConfig{})

	fired := e.Evaluate("Rust", commitEntry("bbbbbbbbbbbb"), commitEntry("aaaa"), []regress.Change{
		change("round_trip", 2.5),
		change("batch", 1.1),
		change("huge", 5),
	})
	if len(fired) != 2 {
		t.Fatalf("fired: got %d alerts, want 2", len(fired))
	}
	if fired[0].Bench != "round_trip" || fired[0].Severity != SeverityWarning {
		t.Errorf("round_trip alert: %+v", fired[0])
	}
	if fired[1].Bench != "huge" || fired[1].Severity != SeverityCritical {
		t.Errorf("huge alert: %+v", fired[1])
	}
	if fired[0].Commit != "bbbbbbbbbbbb" || fired[0].Baseline != "aaaa" {
		t.Errorf("commit ids: %+v", fired[0])
	}
	if !strings.Contains(fired[0].Message, "Rust / round_trip regressed 2.50x") {
		t.Errorf("message: %q", fired[0].Message)
	}
	if e.Firing("Rust") != 2 || e.Firing("") != 2 || e.Firing("Other") != 0 {
		t.Errorf("Firing counts wrong")
	}
}

func TestEvaluate_Cooldown(t *testing.T) {
	e, clock := newEngine(t, config.AlertsConfig{Cooldown: 10 * time.Minute})
	changes := []regress.Change{change("round_trip", 3)}

	if n := len(e.Evaluate("S", commitEntry("a"), nil, changes)); n != 1 {
		t.Fatalf("first evaluation fired %d", n)
	}
	*clock = clock.Add(5 * time.Minute)
	if n := len(e.Evaluate("S", commitEntry("b"), nil, changes)); n != 0 {
		t.Errorf("within cooldown fired %d, want 0", n)
	}
	*clock = clock.Add(6 * time.Minute)
	if n := len(e.Evaluate("S", commitEntry("c"), nil, changes)); n != 1 {
		t.Errorf("after cooldown fired %d, want 1", n)
	}
	// Cooldown is per suite+bench.
	if n := len(e.Evaluate("Other", commitEntry("c"), nil, changes)); n != 1 {
		t.Errorf("other suite fired %d, want 1", n)
	}
}

func TestEvaluate_Resolves(t *testing.T) {
	e, clock := newEngine(t, config.AlertsConfig{})
	e.Evaluate("S", commitEntry("a"), nil, []regress.Change{change("x", 3), change("y", 3)})

	*clock = clock.Add(time.Minute)
	// x recovers, y is absent from this entry and stays firing.
	e.Evaluate("S", commitEntry("b"), nil, []regress.Change{change("x", 1)})

	active := e.Active()
	if len(active) != 2 {
		t.Fatalf("Active: got %d, want 2 (one firing, one resolved)", len(active))
	}
	states := map[string]string{}
	for _, a := range active {
		states[a.Bench] = a.State
	}
	if states["x"] != StateResolved || states["y"] != StateFiring {
		t.Errorf("states: %v", states)
	}
	if e.Firing("S") != 1 {
		t.Errorf("Firing: got %d, want 1", e.Firing("S"))
	}

	// Resolved alerts drop out of Active after the recent window.
	*clock = clock.Add(25 * time.Hour)
	if got := len(e.Active()); got != 1 {
		t.Errorf("Active after window: got %d, want 1", got)
	}
}

func TestDeliver_Webhooks(t *testing.T) {
	var mu sync.Mutex
	bodies := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies[r.URL.Path] = string(b)
		mu.Unlock()
	}))
	defer srv.Close()

	t.Setenv("TEST_SLACK_URL", srv.URL+"/slack")
	t.Setenv("TEST_TEAMS_URL", srv.URL+"/teams")
	t.Setenv("TEST_HTTP_URL", srv.URL+"/http")

	e, _ := newEngine(t, config.AlertsConfig{Webhooks: []config.WebhookConfig{
		{Type: "slack", URLEnv: "TEST_SLACK_URL"},
		{Type: "teams", URLEnv: "TEST_TEAMS_URL"},
		{Type: "http", URLEnv: "TEST_HTTP_URL"},
		{Type: "http"}, // no URL, skipped
	}})
	done := make(chan *Alert, 1)
	e.notify = func(a *Alert) { done <- a }

	e.Evaluate("Rust", commitEntry("abc"), nil, []regress.Change{change("round_trip", 3)})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("webhook delivery timed out")
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(bodies["/slack"], "[WARNING]") || !strings.Contains(bodies["/slack"], "attachments") {
		t.Errorf("slack body: %s", bodies["/slack"])
	}
	if !strings.Contains(bodies["/teams"], "MessageCard") {
		t.Errorf("teams body: %s", bodies["/teams"])
	}
	var payload struct {
		Alert Alert `json:"alert"`
	}
	if err := json.Unmarshal([]byte(bodies["/http"]), &payload); err != nil {
		t.Fatalf("http body: %v", err)
	}
	if payload.Alert.Bench != "round_trip" || payload.Alert.State != StateFiring {
		t.Errorf("http alert: %+v", payload.Alert)
	}
}

func TestReconfigure(t *testing.T) {
	e, _ := newEngine(t, config.AlertsConfig{})

	if err := e.Reconfigure(config.AlertsConfig{Threshold: "300%"}); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}
	if got := e.Threshold(); got != 3 {
		t.Errorf("Threshold: got %v, want 3", got)
	}
	if fired := e.Evaluate("Rust", commitEntry("b"), commitEntry("a"), []regress.Change{change("x", 2.5)}); len(fired) != 0 {
		t.Errorf("2.5x under a 300%% threshold fired: %+v", fired)
	}

	if err := e.Reconfigure(config.AlertsConfig{Threshold: "nope"}); err == nil {
		t.Error("expected error for invalid threshold")
	}
	if got := e.Threshold(); got != 3 {
		t.Errorf("Threshold after failed reload: got %v, want 3", got)
	}
}
