package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/benchboard/benchboard/collector/internal/config"
	"github.com/benchboard/benchboard/collector/internal/report"
	"github.com/benchboard/benchboard/pkg/datajs"
	"github.com/benchboard/benchboard/pkg/regress"
)

func newAppendCmd(a *app) *cobra.Command {
	var (
		in          entryInput
		summaryFile string
	)
	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append a benchmark run to the data.js history and compare it with the previous commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.cfg.Collector
			alertAt, failAt, err := c.Thresholds()
			if err != nil {
				return err
			}

			entry, err := a.buildEntry(cmd.Context(), in)
			if err != nil {
				return err
			}

			data, err := datajs.ReadFile(c.OutputFile)
			if err != nil {
				return err
			}
			if data.RepoURL == "" {
				data.RepoURL = c.RepoURL
			}

			prev, err := datajs.AddEntry(data, c.Suite, entry, c.MaxItems)
			if err != nil {
				return err
			}
			if err := datajs.WriteFile(c.OutputFile, data); err != nil {
				return err
			}
			slog.Info("entry appended",
				"file", c.OutputFile, "suite", c.Suite, "commit", entry.Commit.ID, "benches", len(entry.Benches))

			res := regress.Compare(prev, &entry)
			out := cmd.OutOrStdout()
			report.Comparison(out, c.Suite, prev, &entry, res, alertAt)

			alerts := regress.Regressions(res.Changes, alertAt)
			if len(alerts) > 0 && summaryFile != "" {
				if err := appendFile(summaryFile, report.AlertMarkdown(c.Suite, alertAt, prev, &entry, alerts)); err != nil {
					return err
				}
			}

			if c.FailOnAlert {
				if failing := regress.Regressions(res.Changes, failAt); len(failing) > 0 {
					fmt.Fprintf(out, "\n%d benchmark(s) exceeded the fail threshold %s\n",
						len(failing), regress.FormatRatio(failAt))
					return errReported
				}
			}
			return nil
		},
	}

	addEntryFlags(cmd, &in)
	f := cmd.Flags()
	f.String("file", "", "data.js file to append to (default "+config.DefaultOutputFile+")")
	f.Int(config.KeyMaxItems, 0, "keep only the newest N entries per suite (0 keeps all)")
	f.String(config.KeyAlertThreshold, "", "ratio above which a change is reported, e.g. 200%")
	f.String(config.KeyFailThreshold, "", "ratio above which --fail-on-alert fails (defaults to the alert threshold)")
	f.Bool(config.KeyFailOnAlert, false, "exit non-zero when a benchmark exceeds the fail threshold")
	f.StringVar(&summaryFile, "summary-file", os.Getenv("GITHUB_STEP_SUMMARY"), "Markdown file the alert body is appended to")
	return cmd
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.WriteString(content + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
