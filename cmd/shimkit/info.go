package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/shimkit/pkg/shimcache"
	"github.com/joshuapare/shimkit/pkg/source"
	"github.com/joshuapare/shimkit/pkg/types"
)

var (
	infoIs32       bool
	infoIgnoreLogs bool
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Report the cache format, control sets and any decode problems",
		Long: `The info command identifies the AppCompatCache generation in a SYSTEM
hive or raw value dump and reports, per control set, the number of entries
the header promises and the number that decode, along with every
diagnostic raised on the way. Nothing is written to disk.

Example:
  shimkit info SYSTEM
  shimkit info cache.bin --32bit --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd.Context(), args)
		},
	}
	cmd.Flags().BoolVar(&infoIs32, "32bit", false, "Treat a raw value dump as coming from a 32-bit system")
	cmd.Flags().BoolVar(&infoIgnoreLogs, "nl", false, "Do not replay transaction logs of a dirty hive")
	return cmd
}

type infoResult struct {
	File        string                  `json:"file"`
	Kind        string                  `json:"kind"`
	OS          string                  `json:"os"`
	Current     int                     `json:"current_control_set"`
	Is32Bit     bool                    `json:"is_32bit"`
	Hive        *source.HiveState       `json:"hive,omitempty"`
	ControlSets []infoControlSet        `json:"control_sets"`
	Failures    []string                `json:"failures,omitempty"`
	Diagnostics *types.DiagnosticReport `json:"diagnostics"`
}

type infoControlSet struct {
	ControlSet int    `json:"control_set"`
	Variant    string `json:"variant"`
	Expected   int64  `json:"expected"`
	Decoded    int    `json:"decoded"`
	Size       int    `json:"size"`
	Digest     string `json:"digest"`
}

func runInfo(ctx context.Context, args []string) error {
	path := args[0]
	printVerbose("Opening %s\n", path)

	hive, err := isHiveFile(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	report := types.NewDiagnosticReport(path)
	spec := sourceSpec{Is32: infoIs32, IgnoreLogs: infoIgnoreLogs, Sink: report}
	res := infoResult{File: path, Kind: "value dump", Diagnostics: report}
	if hive {
		spec.Hive, res.Kind = path, "hive"
	} else {
		spec.Bin = path
	}

	src, err := openSource(spec)
	if err != nil {
		return err
	}
	defer src.Close()

	if hs, ok := src.(*source.HiveSource); ok {
		st := hs.State()
		res.Hive = &st
	}
	if res.Current, err = src.CurrentControlSet(ctx); err != nil {
		res.Current = -1
	}
	if res.Is32Bit, err = src.Is32Bit(ctx); err != nil {
		return err
	}

	opts := shimcache.DefaultOptions()
	opts.Sink = report
	coll, err := shimcache.Load(ctx, src, -1, opts)
	if err != nil {
		return err
	}
	res.OS = coll.OS.String()
	for _, r := range coll.Results {
		res.ControlSets = append(res.ControlSets, infoControlSet{
			ControlSet: r.Cache.ControlSet,
			Variant:    r.Variant,
			Expected:   r.Cache.ExpectedCount,
			Decoded:    len(r.Cache.Entries),
			Size:       r.Size,
			Digest:     r.Digest.String(),
		})
	}
	for _, f := range coll.Failures {
		res.Failures = append(res.Failures, f.Error())
	}

	if jsonOut {
		return printJSON(res)
	}
	printInfoResult(res)
	return nil
}

func printInfoResult(res infoResult) {
	printInfo("\nCache Information:\n")
	printInfo("  File: %s (%s)\n", res.File, res.Kind)
	if stat, err := os.Stat(res.File); err == nil {
		printInfo("  Size: %d bytes\n", stat.Size())
	}
	printInfo("  OS: %s\n", res.OS)
	printInfo("  32-bit: %t\n", res.Is32Bit)
	if res.Hive != nil {
		printInfo("  Current control set: %d\n", res.Current)
		printInfo("  Dirty: %t\n", res.Hive.Dirty)
		if res.Hive.Dirty {
			printInfo("  Transaction logs: %d found, recovered: %t (%d entries applied)\n",
				len(res.Hive.Logs), res.Hive.Recovered, res.Hive.LogEntries)
		}
		if !res.Hive.ChecksumValid {
			printInfo("  Base block checksum: invalid\n")
		}
	}

	printInfo("\nControl Sets:\n")
	for _, cs := range res.ControlSets {
		expected := "n/a"
		if cs.Expected >= 0 {
			expected = fmt.Sprint(cs.Expected)
		}
		printInfo("  %s: %s, %d entries decoded (header: %s), %d bytes, %s\n",
			controlSetName(cs.ControlSet), cs.Variant, cs.Decoded, expected, cs.Size, cs.Digest)
	}
	for _, f := range res.Failures {
		printInfo("  FAILED %s\n", f)
	}

	printInfo("\nDiagnostics:\n")
	printInfo("%s", res.Diagnostics.FormatTextCompact())
}
