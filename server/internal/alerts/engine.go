package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/benchboard/benchboard/pkg/regress"
	"github.com/benchboard/benchboard/pkg/types"
	"github.com/benchboard/benchboard/server/internal/config"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 24
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert is one bench of one suite regressing beyond the threshold.
type Alert struct {
	ID         string     `json:"id"`
	Suite      string     `json:"suite"`
	Bench      string     `json:"bench"`
	Commit     string     `json:"commit"`
	Baseline   string     `json:"baseline"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Ratio      float64    `json:"ratio"`
	Prev       float64    `json:"prev"`
	Curr       float64    `json:"curr"`
	Unit       string     `json:"unit"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

// Engine evaluates appended entries against the regression threshold and
// delivers webhook notifications when alerts fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	threshold float64
	cooldown  time.Duration
	webhooks  []config.WebhookConfig

	mu       sync.Mutex
	active   map[string]*Alert    // key: "suite\x00bench"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
	now      func() time.Time // injectable for deterministic tests

	// notify is called with each delivered alert copy; tests set it.
	notify func(*Alert)
}

// New creates an Engine from the server alert configuration.
func New(cfg config.AlertsConfig) (*Engine, error) {
	_, threshold, err := cfg.Thresholds()
	if err != nil {
		return nil, fmt.Errorf("alerts: %w", err)
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Engine{
		threshold: threshold,
		cooldown:  cooldown,
		webhooks:  cfg.Webhooks,
		active:    make(map[string]*Alert),
		lastFire:  make(map[string]time.Time),
		client:    &http.Client{Timeout: 10 * time.Second},
		now:       time.Now,
	}, nil
}

// Threshold returns the ratio above which alerts fire.
func (e *Engine) Threshold() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threshold
}

// Reconfigure applies a reloaded alert configuration. Firing alerts and
// cooldowns are kept.
func (e *Engine) Reconfigure(cfg config.AlertsConfig) error {
	_, threshold, err := cfg.Thresholds()
	if err != nil {
		return fmt.Errorf("alerts: %w", err)
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	e.mu.Lock()
	e.threshold = threshold
	e.cooldown = cooldown
	e.webhooks = cfg.Webhooks
	e.mu.Unlock()
	return nil
}

// Evaluate tests every change of the entry appended to suite. Benches over
// the threshold fire (subject to the per-bench cooldown); firing benches
// that are back under it resolve. Benches absent from changes are left as
// they are. It returns copies of the alerts that fired.
func (e *Engine) Evaluate(suite string, curr, baseline *types.Entry, changes []regress.Change) []*Alert {
	now := e.now()
	var fired, deliveries []*Alert

	e.mu.Lock()
	for _, c := range changes {
		key := suite + "\x00" + c.Name
		fires, sev := evalChange(c, e.threshold)

		if fires {
			if now.Sub(e.lastFire[key]) <= e.cooldown {
				continue
			}
			a := &Alert{
				ID:       fmt.Sprintf("%s:%s:%d", suite, c.Name, now.UnixNano()),
				Suite:    suite,
				Bench:    c.Name,
				Commit:   commitID(curr),
				Baseline: commitID(baseline),
				Severity: sev,
				Ratio:    c.Ratio,
				Prev:     c.Prev,
				Curr:     c.Curr,
				Unit:     c.Unit,
				Message: fmt.Sprintf("[%s] %s / %s regressed %sx (%g -> %g %s) at %s, threshold %s",
					sev, suite, c.Name, regress.FormatFactor(c.Ratio), c.Prev, c.Curr, c.Unit,
					shortID(commitID(curr)), regress.FormatRatio(e.threshold)),
				FiredAt: now,
				State:   StateFiring,
			}
			e.active[key] = a
			e.lastFire[key] = now
			firedCopy, deliveryCopy := *a, *a
			fired = append(fired, &firedCopy)
			deliveries = append(deliveries, &deliveryCopy)
			continue
		}

		if a, ok := e.active[key]; ok {
			resolved := now
			a.State = StateResolved
			a.ResolvedAt = &resolved
			delete(e.active, key)

			e.history = append(e.history, a)
			if len(e.history) > maxHistoryLen {
				e.history = e.history[len(e.history)-maxHistoryLen:]
			}
			cp := *a
			deliveries = append(deliveries, &cp)
		}
	}
	hooks := e.webhooks
	e.mu.Unlock()

	for _, a := range deliveries {
		if a.State == StateFiring {
			slog.Warn("alert fired",
				"suite", a.Suite, "bench", a.Bench, "ratio", a.Ratio, "severity", a.Severity, "commit", a.Commit)
		} else {
			slog.Info("alert resolved", "suite", a.Suite, "bench", a.Bench)
		}
		go e.deliver(a, hooks)
	}
	return fired
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past day, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FiredAt.Equal(out[j].FiredAt) {
			return out[i].FiredAt.After(out[j].FiredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Firing returns the number of currently firing alerts for suite, or across
// all suites when suite is empty.
func (e *Engine) Firing(suite string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if suite == "" {
		return len(e.active)
	}
	n := 0
	for _, a := range e.active {
		if a.Suite == suite {
			n++
		}
	}
	return n
}

func commitID(e *types.Entry) string {
	if e == nil {
		return ""
	}
	return e.Commit.ID
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
