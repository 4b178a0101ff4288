package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/benchboard/benchboard/collector/internal/config"
	"github.com/benchboard/benchboard/collector/internal/shipper"
	"github.com/benchboard/benchboard/pkg/entryrpc"
	"github.com/benchboard/benchboard/pkg/regress"
)

// newShipper is replaced in tests.
var newShipper = func(cfg config.ServerConfig) entrySender { return shipper.New(cfg) }

type entrySender interface {
	Send(ctx context.Context, req *entryrpc.AppendRequest) (*entryrpc.AppendResponse, error)
}

func newPushCmd(a *app) *cobra.Command {
	var in entryInput
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Send a benchmark run to a benchboard server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.cfg.Collector
			if c.Server.Endpoint == "" {
				return fmt.Errorf("--server (or collector.server.endpoint) is required")
			}
			entry, err := a.buildEntry(cmd.Context(), in)
			if err != nil {
				return err
			}

			resp, err := newShipper(c.Server).Send(cmd.Context(), &entryrpc.AppendRequest{
				Suite:   c.Suite,
				RepoURL: c.RepoURL,
				Entry:   entry,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pushed %s to %s at %s\n", entry.Commit.ID, c.Suite, c.Server.Endpoint)
			if resp.Baseline != "" {
				fmt.Fprintf(out, "compared with %s: %d change(s)\n", resp.Baseline, len(resp.Changes))
			}
			for _, r := range resp.Regressions {
				fmt.Fprintf(out, "  regression %s: %s -> %s %s (ratio %s)\n",
					r.Name, fmtFloat(r.Prev), fmtFloat(r.Curr), r.Unit, regress.FormatFactor(r.Ratio))
			}
			if c.FailOnAlert && len(resp.Regressions) > 0 {
				return errReported
			}
			return nil
		},
	}
	addEntryFlags(cmd, &in)
	f := cmd.Flags()
	f.String(config.KeyServer, "", "gRPC address of the benchboard server")
	f.String(config.KeyServerKeyEnv, "", "environment variable holding the server API key")
	f.Bool(config.KeyFailOnAlert, false, "exit non-zero when the server reports a regression")
	return cmd
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
