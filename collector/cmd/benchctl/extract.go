package main

import (
	"github.com/spf13/cobra"

	"github.com/benchboard/benchboard/collector/internal/config"
	"github.com/benchboard/benchboard/collector/internal/extract"
)

func newExtractCmd(a *app) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Parse benchmark output and print the benches as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			benches, err := a.extractBenches(cmd.Context(), source)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), benches)
		},
	}
	f := cmd.Flags()
	f.String(config.KeyTool, "", "benchmark tool that produced the output")
	f.StringVarP(&source, "input", "i", extract.Stdin, "benchmark output: file, - for stdin, or http(s) URL")
	return cmd
}
