package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benchboard/benchboard/collector/internal/config"
	"github.com/benchboard/benchboard/collector/internal/report"
	"github.com/benchboard/benchboard/pkg/datajs"
	"github.com/benchboard/benchboard/pkg/regress"
	"github.com/benchboard/benchboard/pkg/types"
)

func newCompareCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the latest entry of a suite with its baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.cfg.Collector
			alertAt, _, err := c.Thresholds()
			if err != nil {
				return err
			}
			data, err := datajs.ReadFile(c.OutputFile)
			if err != nil {
				return err
			}
			latest, baseline := datajs.Latest(data, c.Suite)
			if latest == nil {
				return fmt.Errorf("suite %q has no entries in %s", c.Suite, c.OutputFile)
			}

			res := regress.Compare(baseline, latest)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					Suite       string           `json:"suite"`
					Commit      string           `json:"commit"`
					Baseline    string           `json:"baseline,omitempty"`
					Regressions []regress.Change `json:"regressions"`
					regress.Result
				}{
					Suite:       c.Suite,
					Commit:      latest.Commit.ID,
					Baseline:    commitID(baseline),
					Regressions: regress.Regressions(res.Changes, alertAt),
					Result:      res,
				})
			}
			report.Comparison(cmd.OutOrStdout(), c.Suite, baseline, latest, res, alertAt)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("file", "", "data.js file (default "+config.DefaultOutputFile+")")
	f.String("name", "", "suite name")
	f.String(config.KeyAlertThreshold, "", "ratio above which a change is flagged")
	f.BoolVar(&asJSON, "json", false, "print the comparison as JSON")
	return cmd
}

func commitID(e *types.Entry) string {
	if e == nil {
		return ""
	}
	return e.Commit.ID
}
