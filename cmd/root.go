package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/sdeconv/internal/ingest"
	"github.com/agentic-research/sdeconv/internal/logging"
	"github.com/agentic-research/sdeconv/internal/sink"
)

// DefaultOutputDir is created inside a directory input when --output is
// not given.
const DefaultOutputDir = "converted_output"

type options struct {
	output       string
	exclude      []string
	keepAllLangs bool
	keyed        bool
	selectors    map[string]string
	skipDirs     []string
	sqlitePath   string
	stats        bool
	strict       bool
	logLevel     string
	logFormat    string
}

// NewRootCmd builds the sdeconv command.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "sdeconv [input]",
		Short: "Convert EVE Online SDE YAML files to CSV",
		Long: `sdeconv converts a YAML file, or every YAML file under a directory, into
CSV files with flattened columns, and writes schema_map.json listing the
columns of every CSV it produced.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(opts.logLevel, opts.logFormat)
			return run(cmd.OutOrStdout(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "Output directory (default: <input>/converted_output, or the file's directory)")
	f.StringSliceVarP(&opts.exclude, "exclude", "e", nil, "Comma-separated columns to remove")
	f.BoolVar(&opts.keepAllLangs, "keep-all-langs", false, "Keep non-English text columns")
	f.BoolVar(&opts.keyed, "keyed", false, "Treat every mapping root as an id-keyed collection")
	f.StringToStringVar(&opts.selectors, "select", nil, "JSONPath record selector per file, e.g. graphics.yaml='$.items[*]'")
	f.StringSliceVar(&opts.skipDirs, "skip-dir", nil, "Directory names or paths to skip while scanning")
	f.StringVar(&opts.sqlitePath, "sqlite", "", "Also load every table into this SQLite database")
	f.BoolVar(&opts.stats, "stats", false, "Write column_stats.json with per-column fill counts")
	f.BoolVar(&opts.strict, "strict", false, "Exit non-zero when any file is skipped or fails")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	return cmd
}

func run(stdout io.Writer, input string, opts *options) error {
	abs, err := filepath.Abs(input)
	if err != nil {
		return &ingest.ConfigError{Msg: "resolve input " + input, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return &ingest.ConfigError{Msg: fmt.Sprintf("path '%s' not found", input), Err: err}
	}

	// The input is addressed relative to its parent so that a file and a
	// directory are walked the same way.
	parent, root := filepath.Dir(abs), filepath.Base(abs)

	outDir := parent
	if info.IsDir() {
		outDir = filepath.Join(abs, DefaultOutputDir)
	}
	if opts.output != "" {
		if outDir, err = filepath.Abs(opts.output); err != nil {
			return &ingest.ConfigError{Msg: "resolve output " + opts.output, Err: err}
		}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return &ingest.ConfigError{Msg: "create output directory", Err: err}
	}

	skip := append([]string(nil), opts.skipDirs...)
	if rel, err := filepath.Rel(parent, outDir); err == nil && rel != root && !strings.HasPrefix(rel, "..") {
		skip = append(skip, rel)
	}

	engine, err := ingest.NewEngine(osfs.New(parent), osfs.New(outDir), ingest.Options{
		Keyed:       opts.keyed,
		FoldLocales: !opts.keepAllLangs,
		Exclude:     opts.exclude,
		Selectors:   opts.selectors,
		SkipDirs:    skip,
		Stats:       opts.stats,
	})
	if err != nil {
		return err
	}

	if opts.sqlitePath != "" {
		db, err := sink.NewSQLiteWriter(opts.sqlitePath)
		if err != nil {
			return &ingest.ConfigError{Msg: "open sqlite output", Err: err}
		}
		defer func() {
			if err := db.Close(); err != nil {
				slog.Error("close sqlite output", "error", err)
			}
		}()
		engine.Sinks = append(engine.Sinks, db)
	}

	start := time.Now()
	slog.Info("scanning", "input", abs, "output", outDir)

	res, err := engine.Run(root)
	if err != nil {
		return err
	}

	s := res.Summary
	fmt.Fprintf(stdout, "Completed: %d/%d converted, %d skipped, %d failed, %d tables in %v\n",
		s.Converted, s.Documents, s.Skipped, s.Failed, s.Tables, time.Since(start).Round(time.Millisecond))
	if len(res.Errors) > 0 {
		fmt.Fprintf(stdout, "%d errors logged to %s\n", len(res.Errors), filepath.Join(outDir, sink.ErrorLogFile))
	}

	if opts.strict && (s.Skipped > 0 || s.Failed > 0) {
		return fmt.Errorf("%d of %d files were not converted", s.Skipped+s.Failed, s.Documents)
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
