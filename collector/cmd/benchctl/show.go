package main

import (
	"github.com/spf13/cobra"

	"github.com/benchboard/benchboard/collector/internal/config"
	"github.com/benchboard/benchboard/collector/internal/report"
	"github.com/benchboard/benchboard/pkg/datajs"
)

func newShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the suites of a data.js file with their latest results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := datajs.ReadFile(a.cfg.Collector.OutputFile)
			if err != nil {
				return err
			}
			report.Suites(cmd.OutOrStdout(), data)
			return nil
		},
	}
	cmd.Flags().String("file", "", "data.js file (default "+config.DefaultOutputFile+")")
	return cmd
}
