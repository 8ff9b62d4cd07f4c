package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joshuapare/shimkit/internal/config"
	"github.com/joshuapare/shimkit/internal/logger"
	"github.com/joshuapare/shimkit/pkg/output"
	"github.com/joshuapare/shimkit/pkg/shimcache"
	"github.com/joshuapare/shimkit/pkg/source"
	"github.com/joshuapare/shimkit/pkg/types"
)

func init() {
	rootCmd.AddCommand(newParseCmd())
}

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Extract cache entries to CSV, JSON lines or SQLite",
		Long: `The parse command decodes the AppCompatCache value of every control set
(or the one given with -c) and writes one output file per control set.

Without --hive or --bin the live registry is read (Windows only).
A dirty hive is recovered from the SYSTEM.LOG1/LOG2 files next to it
unless --nl is given.

Example:
  shimkit parse -f SYSTEM --csv out
  shimkit parse -f SYSTEM --csv out -c 1 -t --format json --compress zstd
  shimkit parse --bin cache.bin --32bit --format stdout`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader(configFile).LoadForParse(cmd)
			if err != nil {
				return err
			}
			if err := logger.Init(logger.Options{Level: logLevel(cfg.Debug, cfg.Trace), LogDir: cfg.LogDir}); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			defer logger.Close()
			return runParse(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringP("hive", "f", "", "SYSTEM hive to process (default: live registry)")
	f.String("bin", "", "Raw AppCompatCache value dump to process instead of a hive")
	f.Bool("32bit", false, "Treat --bin data as coming from a 32-bit system")
	f.String("csv", "", "Directory to save output to")
	f.String("csvf", "", "File name to save output to, in place of the generated one")
	f.IntP("control-set", "c", config.DefaultControlSet, "Control set to parse, -1 for all")
	f.BoolP("sort", "t", false, "Sort entries newest first within each control set")
	f.String("dt", config.DefaultDateFormat, "Go time layout for LastModifiedTimeUTC")
	f.Bool("nl", false, "Read a dirty hive without replaying its transaction logs")
	f.String("format", string(config.DefaultFormat), "Output format: csv, json, sqlite or stdout")
	f.String("compress", string(config.DefaultCompress), "Compress csv/json files: none, zstd or gzip")
	f.Int("workers", config.DefaultWorkers, "Concurrent control set decodes (0: one per CPU)")
	f.String("source-label", "", "Value for the SourceFile column (default: input path)")
	f.Bool("debug", false, "Show debug information")
	f.Bool("trace", false, "Show trace information")
	f.String("log-dir", "", "Also write JSON logs to this directory")
	return cmd
}

// parseSummary is the --json result of a parse run.
type parseSummary struct {
	RunID       string             `json:"run_id"`
	Source      string             `json:"source"`
	OS          string             `json:"os"`
	Files       []string           `json:"files,omitempty"`
	ControlSets []controlSetResult `json:"control_sets"`
	Failures    []string           `json:"failures,omitempty"`
	Elapsed     string             `json:"elapsed"`
}

type controlSetResult struct {
	ControlSet int    `json:"control_set"`
	Variant    string `json:"variant"`
	Entries    int    `json:"entries"`
	Expected   int64  `json:"expected"`
	Digest     string `json:"digest"`
}

func runParse(ctx context.Context, cfg *config.Config) error {
	start := time.Now()
	report := types.NewDiagnosticReport("")
	sink := logger.DiagnosticSink{Next: report}

	src, err := openSource(sourceSpec{
		Hive:       cfg.Hive,
		Bin:        cfg.Bin,
		Is32:       cfg.Is32Bit,
		IgnoreLogs: cfg.NoTransactionLogs,
		Sink:       sink,
	})
	if err != nil {
		return err
	}
	defer src.Close()

	label := sourceLabel(cfg, src)
	report.Source = label
	printVerbose("Processing %s\n", label)

	opts := shimcache.DefaultOptions()
	if cfg.Workers > 0 {
		opts.Workers = cfg.Workers
	}
	opts.Sink = sink
	coll, err := shimcache.Load(ctx, src, cfg.ControlSet, opts)
	if err != nil {
		return err
	}
	for _, f := range coll.Failures {
		logger.Error("control set failed", "control_set", f.ControlSet, "error", f.Err)
		printError("%s: %v\n", controlSetName(f.ControlSet), f.Err)
	}
	if !coll.OK() {
		return fmt.Errorf("no AppCompatCache data could be decoded from %s", label)
	}

	summary := parseSummary{
		RunID:  uuid.NewString(),
		Source: label,
		OS:     coll.OS.String(),
	}
	for _, f := range coll.Failures {
		summary.Failures = append(summary.Failures, f.Error())
	}

	files, err := emit(cfg, coll, label, summary.RunID, start)
	if err != nil {
		return err
	}
	summary.Files = files

	// Entries already went to stdout; keep it clean.
	announce := cfg.Format != output.FormatStdout
	for _, r := range coll.Results {
		summary.ControlSets = append(summary.ControlSets, controlSetResult{
			ControlSet: r.Cache.ControlSet,
			Variant:    r.Variant,
			Entries:    len(r.Cache.Entries),
			Expected:   r.Cache.ExpectedCount,
			Digest:     r.Digest.String(),
		})
		if jsonOut || !announce {
			continue
		}
		printInfo("Found %d cache entries for %s\n", len(r.Cache.Entries), controlSetName(r.Cache.ControlSet))
		if !r.Cache.Complete() {
			printInfo("  Expected %d entries but decoded %d; some records could not be read\n",
				r.Cache.ExpectedCount, len(r.Cache.Entries))
		}
	}

	elapsed := time.Since(start)
	summary.Elapsed = elapsed.Round(time.Millisecond).String()
	if !announce {
		return nil
	}
	if jsonOut {
		return printJSON(summary)
	}
	for _, f := range files {
		printInfo("Results saved to %s\n", f)
	}
	printInfo("Total parsing time: %.3f seconds\n", elapsed.Seconds())
	return nil
}

// sourceLabel is the SourceFile value for every entry of the run.
func sourceLabel(cfg *config.Config, src source.Source) string {
	switch {
	case cfg.SourceLabel != "":
		return cfg.SourceLabel
	case cfg.Hive != "":
		return cfg.Hive
	case cfg.Bin != "":
		return cfg.Bin
	default:
		return src.Name()
	}
}

// emit post-processes every result in control set order and writes it.
// CSV and JSON get one file per control set; SQLite and stdout share one
// destination for the run. It returns the files written.
func emit(cfg *config.Config, coll *shimcache.Collection, label, runID string, now time.Time) ([]string, error) {
	oopts := cfg.Output()
	pp := shimcache.NewPostProcessor(cfg.SortTimestamps)
	run := output.Run{ID: runID, Started: now, OS: coll.OS.String(), Source: label}

	shared := oopts.Format == output.FormatSQLite || oopts.Format == output.FormatStdout
	var (
		files []string
		w     output.Writer
	)
	open := func(cs int) error {
		name := cfg.CSVName
		if name == "" {
			name = output.FileName(now, coll.OS, label, cs, oopts)
		} else if !shared && len(coll.Results) > 1 {
			ext := filepath.Ext(name)
			name = name[:len(name)-len(ext)] + "_" + controlSetName(cs) + ext
		}
		path := filepath.Join(cfg.CSVDir, name)
		var err error
		if w, err = output.Create(path, run, oopts); err != nil {
			return err
		}
		if oopts.Format != output.FormatStdout {
			files = append(files, path)
		}
		return nil
	}

	if shared {
		cs := -1
		if len(coll.Results) == 1 {
			cs = coll.Results[0].Cache.ControlSet
		}
		if err := open(cs); err != nil {
			return nil, err
		}
	}
	for _, r := range coll.Results {
		if !shared {
			if err := open(r.Cache.ControlSet); err != nil {
				return nil, err
			}
		}
		entries := pp.Process(r.Cache, label)
		if err := w.Write(entries); err != nil {
			_ = w.Abort()
			return nil, fmt.Errorf("write %s: %w", controlSetName(r.Cache.ControlSet), err)
		}
		if rec, ok := w.(output.BufferRecorder); ok {
			err := rec.WriteBuffer(output.BufferInfo{
				ControlSet:    r.Cache.ControlSet,
				Digest:        r.Digest.String(),
				Size:          r.Size,
				ExpectedCount: r.Cache.ExpectedCount,
				Decoded:       len(r.Cache.Entries),
				Variant:       r.Variant,
			})
			if err != nil {
				_ = w.Abort()
				return nil, err
			}
		}
		logger.Info("control set written", "control_set", r.Cache.ControlSet,
			"entries", len(entries), "duplicates_seen", countDuplicates(entries))
		if !shared {
			if err := w.Close(); err != nil {
				return nil, err
			}
		}
	}
	if shared {
		if err := w.Close(); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func countDuplicates(entries []types.CacheEntry) int {
	var n int
	for _, e := range entries {
		if e.Duplicate {
			n++
		}
	}
	return n
}
