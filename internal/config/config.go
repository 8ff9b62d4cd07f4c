// Package config resolves shimkit settings from defaults, config files,
// SHIMKIT_* environment variables and command flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/joshuapare/shimkit/pkg/output"
)

// Default configuration values
const (
	DefaultControlSet = -1
	DefaultFormat     = output.FormatCSV
	DefaultCompress   = output.CompressNone
	DefaultDateFormat = output.DefaultTimeLayout
	DefaultWorkers    = 0 // one per CPU
)

// Config holds the options for a parse run.
type Config struct {
	// SYSTEM hive to read. Empty with Bin also empty means the live
	// registry.
	Hive string

	// Raw AppCompatCache value dump, used instead of a hive.
	Bin string

	// Directory for output files, and an optional file name that replaces
	// the generated one.
	CSVDir  string
	CSVName string

	// Control set to export, -1 for all.
	ControlSet int

	// Sort entries newest first within each control set.
	SortTimestamps bool

	// Go time layout for LastModifiedTimeUTC.
	DateFormat string

	// Read a dirty hive without replaying its transaction logs.
	NoTransactionLogs bool

	// Treat a raw value dump as coming from a 32-bit system.
	Is32Bit bool

	Format   output.Format
	Compress output.Compression

	// Concurrent control set decodes; 0 means one per CPU.
	Workers int

	// Overrides the SourceFile column.
	SourceLabel string

	Debug  bool
	Trace  bool
	LogDir string
}

// Load builds a Config from the current viper state and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Hive:              viper.GetString("hive"),
		Bin:               viper.GetString("bin"),
		CSVDir:            viper.GetString("csv"),
		CSVName:           viper.GetString("csvf"),
		ControlSet:        viper.GetInt("control_set"),
		SortTimestamps:    viper.GetBool("sort_timestamps"),
		DateFormat:        viper.GetString("date_format"),
		NoTransactionLogs: viper.GetBool("no_transaction_logs"),
		Is32Bit:           viper.GetBool("is32bit"),
		Format:            output.Format(viper.GetString("format")),
		Compress:          output.Compression(viper.GetString("compress")),
		Workers:           viper.GetInt("workers"),
		SourceLabel:       viper.GetString("source_label"),
		Debug:             viper.GetBool("debug"),
		Trace:             viper.GetBool("trace"),
		LogDir:            viper.GetString("log_dir"),
	}

	if cfg.DateFormat == "" {
		cfg.DateFormat = DefaultDateFormat
	}
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	if cfg.Compress == "" {
		cfg.Compress = DefaultCompress
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate resolves paths to absolute form and checks ranges and enums.
func (c *Config) Validate() error {
	if c.Hive != "" && c.Bin != "" {
		return errors.New("--hive and --bin are mutually exclusive")
	}
	for _, p := range []*string{&c.Hive, &c.Bin, &c.CSVDir, &c.LogDir} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("invalid path %q: %v", *p, err)
		}
		*p = abs
	}

	if err := c.Output().Validate(); err != nil {
		return err
	}
	if c.CSVDir == "" && c.Format != output.FormatStdout {
		return errors.New("--csv is required unless --format is stdout")
	}
	if c.CSVName != "" && filepath.Base(c.CSVName) != c.CSVName {
		return fmt.Errorf("--csvf must be a file name, not a path: %s", c.CSVName)
	}
	if c.ControlSet != -1 && (c.ControlSet < 1 || c.ControlSet > 9) {
		return fmt.Errorf("invalid control set %d (want 1-9, or -1 for all)", c.ControlSet)
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid worker count %d", c.Workers)
	}
	return nil
}

// Output returns the emission options.
func (c *Config) Output() output.Options {
	return output.Options{
		Format:     c.Format,
		TimeLayout: c.DateFormat,
		Compress:   c.Compress,
	}
}
