package api

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/benchboard/benchboard/pkg/regress"
	"github.com/benchboard/benchboard/pkg/types"
)

// DiagnosticHint is one human-readable insight about a suite's latest run.
// The dashboard displays these as chips next to the comparison table.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip.
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint (e.g. a ratio).
	Value *float64 `json:"value,omitempty"`
}

// noisyRangePct is the relative spread above which a bench is flagged noisy.
const noisyRangePct = 10.0

var levelOrder = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// computeDiagnostics derives hints from the comparison of curr against prev.
// Hints are ordered: critical first, then warnings, info, ok.
func computeDiagnostics(prev, curr *types.Entry, res regress.Result, warn, alert float64) []DiagnosticHint {
	if curr == nil {
		return []DiagnosticHint{}
	}
	if prev == nil {
		return []DiagnosticHint{{
			Key:   "first_entry",
			Level: "info",
			Title: "No baseline yet",
			Detail: fmt.Sprintf("Commit %s is the first entry of this suite with its commit id, "+
				"so there is nothing to compare against. Comparisons start with the next push.",
				shortID(curr.Commit.ID)),
		}}
	}

	var hints []DiagnosticHint

	var critical, degraded, improved []regress.Change
	for _, c := range res.Changes {
		switch {
		case c.Ratio > alert:
			critical = append(critical, c)
		case c.Ratio > warn:
			degraded = append(degraded, c)
		case c.Ratio > 0 && c.Ratio < 1/warn:
			improved = append(improved, c)
		}
	}

	if len(critical) > 0 {
		hints = append(hints, changeHint("regressed", "critical", critical,
			"%d bench(es) are slower than the alert threshold %s allows. The worst is %s at %sx its baseline (%s). "+
				"Check the commits between %s and %s.",
			regress.FormatRatio(alert), shortID(prev.Commit.ID), shortID(curr.Commit.ID)))
	}
	if len(degraded) > 0 {
		hints = append(hints, changeHint("degraded", "warning", degraded,
			"%d bench(es) moved past the warning threshold %s. The worst is %s at %sx its baseline (%s). "+
				"This is below the alert threshold, but keep an eye on it across the next commits (%s to %s).",
			regress.FormatRatio(warn), shortID(prev.Commit.ID), shortID(curr.Commit.ID)))
	}
	if len(improved) > 0 {
		best := improved[0]
		for _, c := range improved[1:] {
			if c.Ratio < best.Ratio {
				best = c
			}
		}
		v := best.Ratio
		hints = append(hints, DiagnosticHint{
			Key:   "improved",
			Level: "info",
			Title: fmt.Sprintf("%d improved", len(improved)),
			Detail: fmt.Sprintf("%d bench(es) got meaningfully faster. The biggest gain is %s at %.2fx its baseline.",
				len(improved), best.Name, best.Ratio),
			Value: &v,
		})
	}

	if prev.Tool != curr.Tool {
		hints = append(hints, DiagnosticHint{
			Key:   "tool_changed",
			Level: "warning",
			Title: "Tool changed",
			Detail: fmt.Sprintf("The baseline was recorded with %q and this entry with %q. "+
				"Ratios across tools are rarely meaningful.", prev.Tool, curr.Tool),
		})
	}

	for _, c := range res.Changes {
		p, _ := prev.Bench(c.Name)
		if p.Unit != c.Unit {
			hints = append(hints, DiagnosticHint{
				Key:   "unit_changed:" + c.Name,
				Level: "warning",
				Title: "Unit changed",
				Detail: fmt.Sprintf("%s was measured in %q and is now in %q, so its ratio compares different quantities.",
					c.Name, p.Unit, c.Unit),
			})
		}
	}

	if n := len(res.Removed); n > 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "removed",
			Level: "warning",
			Title: fmt.Sprintf("%d removed", n),
			Detail: fmt.Sprintf("These benches exist in the baseline but not in this entry: %s. "+
				"A renamed or failing bench also shows up here.", strings.Join(res.Removed, ", ")),
		})
	}
	if n := len(res.Added); n > 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "added",
			Level:  "info",
			Title:  fmt.Sprintf("%d new", n),
			Detail: fmt.Sprintf("New benches without a baseline: %s.", strings.Join(res.Added, ", ")),
		})
	}

	for _, b := range curr.Benches {
		spread, ok := rangeValue(b.Range)
		if !ok || b.Value == 0 {
			continue
		}
		pct := spread / b.Value * 100
		if pct < noisyRangePct {
			continue
		}
		v := pct
		hints = append(hints, DiagnosticHint{
			Key:   "noisy:" + b.Name,
			Level: "info",
			Title: fmt.Sprintf("%s noisy", b.Name),
			Detail: fmt.Sprintf("%s varies by %.0f%% of its value between iterations. "+
				"Comparisons of a noisy bench can flag regressions that are only jitter.", b.Name, pct),
			Value: &v,
		})
	}

	if len(critical) == 0 && len(degraded) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "ok",
			Level: "ok",
			Title: "No regressions",
			Detail: fmt.Sprintf("All %d compared bench(es) are within %s of %s.",
				len(res.Changes), regress.FormatRatio(warn), shortID(prev.Commit.ID)),
		})
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return levelOrder[hints[i].Level] < levelOrder[hints[j].Level]
	})
	return hints
}

// changeHint builds a hint for a group of changes. format receives the
// count, threshold, worst name, worst ratio, worst delta and the two commits.
func changeHint(key, level string, changes []regress.Change, format, threshold, from, to string) DiagnosticHint {
	worst := changes[0]
	for _, c := range changes[1:] {
		if c.Ratio > worst.Ratio {
			worst = c
		}
	}
	v := worst.Ratio
	return DiagnosticHint{
		Key:   key,
		Level: level,
		Title: fmt.Sprintf("%d %s", len(changes), key),
		Detail: fmt.Sprintf(format, len(changes), threshold, worst.Name, regress.FormatFactor(worst.Ratio),
			fmt.Sprintf("%+.1f%%", worst.DeltaPct()), from, to),
		Value: &v,
	}
}

// rangeValue extracts the numeric spread from a range string such as
// "± 6279" or "stddev: 2e-05".
func rangeValue(r string) (float64, bool) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(r), "±"))
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(fields[len(fields)-1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
