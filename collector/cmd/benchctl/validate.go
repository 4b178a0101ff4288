package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/benchboard/benchboard/collector/internal/report"
	"github.com/benchboard/benchboard/pkg/datajs"
)

func newValidateCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check data.js files for malformed entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := false
			for _, path := range args {
				err := validateFile(path)
				report.Validation(cmd.OutOrStdout(), path, err)
				if err != nil {
					failed = true
				}
			}
			if failed {
				return errReported
			}
			return nil
		},
	}
}

func validateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	d, err := datajs.Decode(f)
	if err != nil {
		return err
	}
	return datajs.Validate(d)
}
