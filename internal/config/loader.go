package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SHIMKIT_FORMAT.
const EnvPrefix = "SHIMKIT"

// flagKeys maps command flag names to config keys.
var flagKeys = map[string]string{
	"hive":         "hive",
	"bin":          "bin",
	"csv":          "csv",
	"csvf":         "csvf",
	"control-set":  "control_set",
	"sort":         "sort_timestamps",
	"dt":           "date_format",
	"nl":           "no_transaction_logs",
	"32bit":        "is32bit",
	"format":       "format",
	"compress":     "compress",
	"workers":      "workers",
	"source-label": "source_label",
	"debug":        "debug",
	"trace":        "trace",
	"log-dir":      "log_dir",
}

// Loader handles configuration loading from various sources
type Loader struct {
	// ConfigFile, when set, is read instead of the global and local files.
	ConfigFile string
}

// NewLoader creates a new configuration loader
func NewLoader(configFile string) *Loader {
	return &Loader{ConfigFile: configFile}
}

// LoadForParse loads configuration for the parse command. Local config
// files are searched from the working directory upwards.
func (l *Loader) LoadForParse(cmd *cobra.Command) (*Config, error) {
	l.setupViperDefaults()
	if l.ConfigFile != "" {
		viper.SetConfigFile(l.ConfigFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", l.ConfigFile, err)
		}
	} else {
		l.loadGlobalConfig()
		if wd, err := os.Getwd(); err == nil {
			l.loadLocalConfig(wd)
		}
	}
	l.bindEnv()
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("control_set", DefaultControlSet)
	viper.SetDefault("format", string(DefaultFormat))
	viper.SetDefault("compress", string(DefaultCompress))
	viper.SetDefault("date_format", DefaultDateFormat)
	viper.SetDefault("workers", DefaultWorkers)
}

// loadGlobalConfig reads the user-level config file, if any.
func (l *Loader) loadGlobalConfig() {
	if path := FindGlobalConfig(); path != "" {
		viper.SetConfigFile(path)
		_ = viper.ReadInConfig()
	}
}

// loadLocalConfig merges a .shimkit.* file found at or above dir over the
// global one.
func (l *Loader) loadLocalConfig(dir string) {
	if path := FindLocalConfig(dir); path != "" {
		viper.SetConfigFile(path)
		_ = viper.MergeInConfig()
	}
}

// bindEnv enables SHIMKIT_* overrides for every key.
func (l *Loader) bindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for _, key := range flagKeys {
		_ = viper.BindEnv(key)
	}
}

// bindCommandFlags binds command flags to viper. Flags the command does not
// define are skipped.
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}
