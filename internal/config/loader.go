package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/chazu/liftcab/pkg/gateway"
	"github.com/chazu/liftcab/pkg/rename"
	"github.com/spf13/viper"
)

// Environment variable prefix for liftcab configuration.
const envPrefix = "LIFTCAB"

// DefaultConfigFile is read from the working directory when no --config
// flag is given.
const DefaultConfigFile = "liftcab.yaml"

// DefaultLedgerPath is relative to the working directory.
const DefaultLedgerPath = ".liftcab/ledger.db"

// Loader handles loading and merging configuration from file, environment
// and defaults.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with every default registered.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return &Loader{v: v}
}

// setDefaults registers every key so AutomaticEnv can find it during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("reports_dir", "reports")
	v.SetDefault("export_dir", "export")
	v.SetDefault("ready.interval", gateway.DefaultReadyInterval)
	v.SetDefault("ready.timeout", gateway.DefaultReadyTimeout)

	c := rename.DefaultConventions()
	v.SetDefault("naming.assembly_suffix", c.AssemblySuffix)
	v.SetDefault("naming.sheet_metal_marker", c.SheetMetalMarker)
	v.SetDefault("naming.thickness_key", c.ThicknessKey)
	v.SetDefault("naming.length_keys", c.LengthKeys)
	v.SetDefault("naming.flat_pattern_ext", c.FlatPatternExt)
	v.SetDefault("naming.view_drawing_ext", c.ViewDrawingExt)
	v.SetDefault("naming.native_drawing_ext", c.NativeDrawingExt)
	v.SetDefault("naming.side_key", c.SideKey)
	v.SetDefault("naming.unfold_projection", c.UnfoldProjection)
	v.SetDefault("naming.drawing_index_var", c.DrawingIndexVar)
	v.SetDefault("naming.material_flag", c.MaterialFlag)
	v.SetDefault("naming.material_key", c.MaterialKey)
	v.SetDefault("naming.material_density", c.MaterialDensity)
	v.SetDefault("naming.rework_color", c.ReworkColor)
	v.SetDefault("naming.fastener_color", c.FastenerColor)
	v.SetDefault("naming.cabin_marking_stem", c.CabinMarkingStem)
	v.SetDefault("naming.cabin_name", c.CabinName)

	v.SetDefault("ledger.enabled", true)
	v.SetDefault("ledger.path", DefaultLedgerPath)
	v.SetDefault("log.verbose", false)
	v.SetDefault("log.timestamps", false)
}

// Load reads configFile, or DefaultConfigFile when empty. A missing default
// file is not an error; a missing explicit file is. Environment variables
// take precedence over file values.
func (l *Loader) Load(configFile string) (*Config, error) {
	explicit := configFile != ""
	if !explicit {
		configFile = DefaultConfigFile
	}
	l.v.SetConfigFile(configFile)
	l.v.SetConfigType("yaml")

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if !missing || explicit {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFileUsed returns the file Load read, or "" when none was found.
func (l *Loader) ConfigFileUsed() string {
	if _, err := os.Stat(l.v.ConfigFileUsed()); err != nil {
		return ""
	}
	return l.v.ConfigFileUsed()
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.ExportDir == "" {
		errs = append(errs, errors.New("export_dir must be set"))
	}
	if c.Ready.Interval <= 0 {
		errs = append(errs, fmt.Errorf("ready.interval must be positive, got %s", c.Ready.Interval))
	}
	if c.Ready.Timeout < c.Ready.Interval {
		errs = append(errs, fmt.Errorf("ready.timeout %s is shorter than ready.interval", c.Ready.Timeout))
	}
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		errs = append(errs, errors.New("ledger.path must be set when the ledger is enabled"))
	}
	for _, ext := range []string{c.Naming.FlatPatternExt, c.Naming.ViewDrawingExt, c.Naming.NativeDrawingExt} {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("naming extension %q must start with a dot", ext))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
