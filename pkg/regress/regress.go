package regress

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/benchboard/benchboard/pkg/types"
)

// Health states returned by Classify.
const (
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateCritical = "critical"
	StateUnknown  = "unknown"
)

// MaxRatio is the ratio of a bigger-is-better bench whose current value fell
// to zero. It stays finite so results remain JSON encodable.
const MaxRatio = math.MaxFloat64

// Change is the comparison of one bench between a baseline and a current entry.
type Change struct {
	Name  string  `json:"name"`
	Unit  string  `json:"unit"`
	Prev  float64 `json:"prev"`
	Curr  float64 `json:"curr"`
	Ratio float64 `json:"ratio"`

	// BiggerIsBetter records the direction used to compute Ratio.
	BiggerIsBetter bool `json:"bigger_is_better"`
}

// DeltaPct returns the raw change from Prev to Curr in percent.
func (c Change) DeltaPct() float64 {
	if c.Prev == 0 {
		return 0
	}
	return (c.Curr - c.Prev) / c.Prev * 100
}

// Worse reports whether the change moved in the bad direction.
func (c Change) Worse() bool { return c.Ratio > 1 }

// Result is the outcome of comparing two entries.
type Result struct {
	Changes []Change `json:"changes"`

	// Added lists benches present in the current entry only.
	Added []string `json:"added,omitempty"`

	// Removed lists benches present in the baseline only.
	Removed []string `json:"removed,omitempty"`
}

// Compare compares curr against prev. Benches are matched by name; a bench
// with a zero baseline is skipped since no ratio exists. A bigger-is-better
// bench that drops to zero gets MaxRatio. The direction comes from curr's
// tool.
func Compare(prev, curr *types.Entry) Result {
	var res Result
	if curr == nil {
		return res
	}
	if prev == nil {
		for _, b := range curr.Benches {
			res.Added = append(res.Added, b.Name)
		}
		return res
	}

	bigger := types.IsBiggerBetter(curr.Tool)
	seen := make(map[string]bool, len(curr.Benches))
	for _, c := range curr.Benches {
		seen[c.Name] = true
		p, ok := prev.Bench(c.Name)
		if !ok {
			res.Added = append(res.Added, c.Name)
			continue
		}
		if p.Value == 0 {
			continue
		}
		ch := Change{
			Name:           c.Name,
			Unit:           c.Unit,
			Prev:           p.Value,
			Curr:           c.Value,
			BiggerIsBetter: bigger,
		}
		switch {
		case bigger && c.Value == 0:
			ch.Ratio = MaxRatio
		case bigger:
			ch.Ratio = p.Value / c.Value
		default:
			ch.Ratio = c.Value / p.Value
		}
		res.Changes = append(res.Changes, ch)
	}
	for _, p := range prev.Benches {
		if !seen[p.Name] {
			res.Removed = append(res.Removed, p.Name)
		}
	}
	return res
}

// Regressions returns the changes whose ratio exceeds threshold, worst first.
func Regressions(changes []Change, threshold float64) []Change {
	var out []Change
	for _, c := range changes {
		if c.Ratio > threshold {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ratio > out[j].Ratio })
	return out
}

// Classify maps a set of changes to a health state: critical when any ratio
// exceeds alert, degraded when any exceeds warn, healthy otherwise. An empty
// set is unknown.
func Classify(changes []Change, warn, alert float64) string {
	if len(changes) == 0 {
		return StateUnknown
	}
	state := StateHealthy
	for _, c := range changes {
		switch {
		case c.Ratio > alert:
			return StateCritical
		case c.Ratio > warn:
			state = StateDegraded
		}
	}
	return state
}

// ParseThreshold parses a percentage such as "200%" or a plain ratio such as
// "2" or "1.5" into a ratio. The result must be positive.
func ParseThreshold(s string) (float64, error) {
	raw := strings.TrimSpace(s)
	pct := strings.HasSuffix(raw, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(raw, "%")), 64)
	if err != nil {
		return 0, fmt.Errorf("regress: invalid threshold %q: %w", s, err)
	}
	if pct {
		v /= 100
	}
	if v <= 0 {
		return 0, fmt.Errorf("regress: threshold %q must be positive", s)
	}
	return v, nil
}

// FormatRatio renders a ratio as a percentage string, e.g. 2.5 -> "250%".
func FormatRatio(r float64) string {
	if r >= MaxRatio {
		return "inf%"
	}
	return strconv.FormatFloat(r*100, 'f', -1, 64) + "%"
}

// FormatFactor renders a ratio with two decimals, e.g. 2.5 -> "2.50", and
// MaxRatio as "inf".
func FormatFactor(r float64) string {
	if r >= MaxRatio {
		return "inf"
	}
	return strconv.FormatFloat(r, 'f', 2, 64)
}
