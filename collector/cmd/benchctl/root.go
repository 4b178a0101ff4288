package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/benchboard/benchboard/collector/internal/commit"
	"github.com/benchboard/benchboard/collector/internal/config"
	"github.com/benchboard/benchboard/collector/internal/extract"
	"github.com/benchboard/benchboard/collector/internal/report"
	"github.com/benchboard/benchboard/pkg/types"
)

const defaultConfigPath = "benchctl.yaml"

// errReported marks failures whose details were already written to the
// command output.
var errReported = errors.New("benchctl: failed")

// now is the clock used for entry dates; tests replace it.
var now = time.Now

// app carries state shared by every subcommand of one invocation.
type app struct {
	cfgPath string
	verbose bool
	color   string
	v       *viper.Viper
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "benchctl",
		Short: "Record and compare continuous benchmark results",
		Long: `benchctl parses benchmark output (cargo, go, benchmarkjs, pytest, custom JSON,
Prometheus text) into entries of a github-action-benchmark data.js file,
compares each run against the previous commit, and can push entries to a
benchboard server.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", defaultConfigPath, "config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.color, "color", "auto", "terminal colors: auto, always or never")

	root.AddCommand(
		newExtractCmd(a),
		newAppendCmd(a),
		newValidateCmd(a),
		newCompareCmd(a),
		newPushCmd(a),
		newShowCmd(a),
	)
	return root
}

// setup loads .env, the config file and flag/env overrides before any
// subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	// .env is optional.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	if err := report.SetColor(a.color); err != nil {
		return err
	}

	explicit := cmd.Flags().Changed("config")
	cfg, err := config.Load(a.cfgPath, !explicit)
	if err != nil {
		return err
	}

	if err := bindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	if err := config.ApplyOverrides(cfg, a.v); err != nil {
		return err
	}
	a.cfg = cfg
	slog.Debug("config loaded", "path", a.cfgPath, "suite", cfg.Collector.Suite, "tool", cfg.Collector.Tool)
	return nil
}

// flagKeys maps flag names that differ from their config override key.
var flagKeys = map[string]string{
	"name": config.KeySuite,
	"file": config.KeyOutputFile,
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key := f.Name
		if k, ok := flagKeys[f.Name]; ok {
			key = k
		}
		if bindErr := v.BindPFlag(key, f); bindErr != nil && err == nil {
			err = bindErr
		}
	})
	return err
}

// addEntryFlags registers the flags used to build an entry from tool output.
func addEntryFlags(cmd *cobra.Command, in *entryInput) {
	f := cmd.Flags()
	f.String(config.KeyTool, "", "benchmark tool that produced the output")
	f.String("name", "", "suite name the entry is recorded under")
	f.String(config.KeyRepoURL, "", "repository URL used for commit links")
	f.StringVarP(&in.source, "input", "i", extract.Stdin, "benchmark output: file, - for stdin, or http(s) URL")
	f.StringVar(&in.eventPath, "event-path", os.Getenv("GITHUB_EVENT_PATH"), "GitHub event payload to read the commit from")
	f.StringVar(&in.gitDir, "git-dir", ".", "git checkout used when no event payload is available")
}

type entryInput struct {
	source    string
	eventPath string
	gitDir    string
}

// extractBenches parses the tool output named by source.
func (a *app) extractBenches(ctx context.Context, source string) ([]types.Bench, error) {
	c := a.cfg.Collector
	if c.Tool == "" {
		return nil, fmt.Errorf("--tool is required")
	}

	rc, err := extract.Open(ctx, source, c.SourceAuth)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return extract.Extract(c.Tool, rc)
}

// buildEntry extracts benches from the input and stamps them with the
// resolved commit and the current time.
func (a *app) buildEntry(ctx context.Context, in entryInput) (types.Entry, error) {
	benches, err := a.extractBenches(ctx, in.source)
	if err != nil {
		return types.Entry{}, err
	}

	c := a.cfg.Collector
	cm, err := commit.Resolve(ctx, in.eventPath, in.gitDir, c.RepoURL)
	if err != nil {
		return types.Entry{}, err
	}

	slog.Debug("entry built", "tool", c.Tool, "benches", len(benches), "commit", cm.ID)
	return types.Entry{
		Commit:  cm,
		Date:    types.UnixMilli(now()),
		Tool:    c.Tool,
		Benches: benches,
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
