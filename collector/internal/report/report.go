// Package report renders comparisons, suite listings and validation results
// for the terminal, and the Markdown alert body used in CI job summaries.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/benchboard/benchboard/pkg/datajs"
	"github.com/benchboard/benchboard/pkg/regress"
	"github.com/benchboard/benchboard/pkg/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Bold(true)
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // Red
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))             // Green
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

// SetColor selects terminal styling: "auto" detects the terminal, "always"
// forces ANSI colors and "never" prints plain text.
func SetColor(mode string) error {
	switch mode {
	case "", "auto":
	case "always":
		lipgloss.SetColorProfile(termenv.ANSI256)
	case "never":
		lipgloss.SetColorProfile(termenv.Ascii)
	default:
		return fmt.Errorf("report: unknown color mode %q: want auto|always|never", mode)
	}
	return nil
}

// Status labels of a comparison row.
const (
	StatusRegression = "REGRESSION"
	StatusImproved   = "improved"
	StatusOK         = "ok"
)

// RowStatus classifies a change against threshold. A change is an
// improvement when it is better by the same factor.
func RowStatus(c regress.Change, threshold float64) string {
	switch {
	case c.Ratio > threshold:
		return StatusRegression
	case threshold > 0 && c.Ratio < 1/threshold:
		return StatusImproved
	default:
		return StatusOK
	}
}

func styledStatus(s string) string {
	switch s {
	case StatusRegression:
		return badStyle.Render(s)
	case StatusImproved:
		return goodStyle.Render(s)
	default:
		return mutedStyle.Render(s)
	}
}

// Comparison writes the comparison of curr against prev as an aligned table.
func Comparison(w io.Writer, suite string, prev, curr *types.Entry, res regress.Result, threshold float64) {
	fmt.Fprintln(w, titleStyle.Render("Suite "+suite))
	if curr == nil {
		fmt.Fprintln(w, mutedStyle.Render("no entries"))
		return
	}
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Current: "), shortID(curr.Commit.ID))
	if prev == nil {
		fmt.Fprintf(w, "%s %s\n\n", labelStyle.Render("Previous:"), mutedStyle.Render("none (first entry)"))
	} else {
		fmt.Fprintf(w, "%s %s\n\n", labelStyle.Render("Previous:"), shortID(prev.Commit.ID))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "BENCHMARK\tCURRENT\tPREVIOUS\tRATIO\tSTATUS")
	for _, c := range res.Changes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.Name,
			formatValue(c.Curr, c.Unit),
			formatValue(c.Prev, c.Unit),
			regress.FormatFactor(c.Ratio),
			styledStatus(RowStatus(c, threshold)))
	}
	for _, name := range res.Added {
		if b, ok := curr.Bench(name); ok {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t%s\n", name, formatValue(b.Value, b.Unit), mutedStyle.Render("new"))
		}
	}
	tw.Flush()

	if len(res.Removed) > 0 {
		fmt.Fprintf(w, "\n%s %s\n", labelStyle.Render("Removed:"), strings.Join(res.Removed, ", "))
	}
}

// Validation writes the outcome of datajs.Validate for path.
func Validation(w io.Writer, path string, err error) {
	if err == nil {
		fmt.Fprintf(w, "%s %s\n", goodStyle.Render("OK"), path)
		return
	}
	var verr *datajs.ValidationError
	if !errors.As(err, &verr) {
		fmt.Fprintf(w, "%s %s: %v\n", badStyle.Render("INVALID"), path, err)
		return
	}
	fmt.Fprintf(w, "%s %s: %d violation(s)\n", badStyle.Render("INVALID"), path, len(verr.Violations))
	for _, v := range verr.Violations {
		fmt.Fprintf(w, "  - %s\n", v.String())
	}
}

// Suites writes one block per suite: entry count, latest commit and bench names.
func Suites(w io.Writer, d *types.Data) {
	names := d.SuiteNames()
	if len(names) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no suites"))
		return
	}
	if d.RepoURL != "" {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Repository:"), d.RepoURL)
	}
	for _, name := range names {
		entries := d.Entries[name]
		fmt.Fprintf(w, "\n%s (%d entries)\n", titleStyle.Render(name), len(entries))
		if len(entries) == 0 {
			continue
		}
		last := entries[len(entries)-1]
		fmt.Fprintf(w, "  %s %s  %s  %s\n", labelStyle.Render("latest:"),
			shortID(last.Commit.ID), last.Time().UTC().Format("2006-01-02 15:04:05"), last.Tool)
		for _, b := range last.Benches {
			fmt.Fprintf(w, "  - %s: %s\n", b.Name, formatValue(b.Value, b.Unit))
		}
	}
}

// AlertMarkdown renders the performance alert body for regressions of curr
// against prev, in the layout the benchmark action posts as commit comments.
func AlertMarkdown(suite string, threshold float64, prev, curr *types.Entry, regressions []regress.Change) string {
	var b strings.Builder
	b.WriteString("# :warning: **Performance Alert** :warning:\n\n")
	fmt.Fprintf(&b, "Possible performance regression was detected for benchmark **'%s'**.\n", suite)
	fmt.Fprintf(&b, "Benchmark result of this commit is worse than the previous benchmark result exceeding threshold `%s`.\n\n",
		regress.FormatRatio(threshold))

	fmt.Fprintf(&b, "| Benchmark suite | Current: %s | Previous: %s | Ratio |\n", curr.Commit.ID, prev.Commit.ID)
	b.WriteString("|-|-|-|-|\n")
	for _, c := range regressions {
		cb, _ := curr.Bench(c.Name)
		pb, _ := prev.Bench(c.Name)
		fmt.Fprintf(&b, "| `%s` | %s | %s | `%s` |\n",
			c.Name, markdownValue(cb), markdownValue(pb), regress.FormatFactor(c.Ratio))
	}
	return b.String()
}

func markdownValue(b types.Bench) string {
	s := formatValue(b.Value, b.Unit)
	if b.Range != "" {
		s += " (`" + b.Range + "`)"
	}
	return s
}

func formatValue(v float64, unit string) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + unit
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
