// Package config provides configuration loading for the liftcab CLI.
package config

import (
	"time"

	"github.com/chazu/liftcab/pkg/gateway"
	"github.com/chazu/liftcab/pkg/rename"
)

// ReadyConfig bounds the wait for the design engine at run start.
type ReadyConfig struct {
	// Interval between probes. Env: LIFTCAB_READY_INTERVAL, Default: 500ms
	Interval time.Duration `mapstructure:"interval"`

	// Timeout for the whole wait. Env: LIFTCAB_READY_TIMEOUT, Default: 60s
	Timeout time.Duration `mapstructure:"timeout"`
}

// NamingConfig overrides the naming conventions of the design library.
type NamingConfig struct {
	AssemblySuffix   string   `mapstructure:"assembly_suffix"`
	SheetMetalMarker string   `mapstructure:"sheet_metal_marker"`
	ThicknessKey     string   `mapstructure:"thickness_key"`
	LengthKeys       []string `mapstructure:"length_keys"`
	FlatPatternExt   string   `mapstructure:"flat_pattern_ext"`
	ViewDrawingExt   string   `mapstructure:"view_drawing_ext"`
	NativeDrawingExt string   `mapstructure:"native_drawing_ext"`
	SideKey          string   `mapstructure:"side_key"`
	UnfoldProjection string   `mapstructure:"unfold_projection"`
	DrawingIndexVar  string   `mapstructure:"drawing_index_var"`
	MaterialFlag     string   `mapstructure:"material_flag"`
	MaterialKey      string   `mapstructure:"material_key"`
	MaterialDensity  float64  `mapstructure:"material_density"`
	ReworkColor      int      `mapstructure:"rework_color"`
	FastenerColor    int      `mapstructure:"fastener_color"`
	CabinMarkingStem string   `mapstructure:"cabin_marking_stem"`
	CabinName        string   `mapstructure:"cabin_name"`
}

// LedgerConfig controls the run history database.
type LedgerConfig struct {
	// Enabled turns recording on. Env: LIFTCAB_LEDGER_ENABLED, Default: true
	Enabled bool `mapstructure:"enabled"`

	// Path of the SQLite file. Env: LIFTCAB_LEDGER_PATH
	Path string `mapstructure:"path"`
}

// LogConfig contains logging-related settings.
type LogConfig struct {
	// Verbose enables debug output. Overridden by --verbose.
	Verbose bool `mapstructure:"verbose"`

	// Timestamps shows timestamps in log output.
	Timestamps bool `mapstructure:"timestamps"`
}

// Config is the CLI configuration.
type Config struct {
	// ReportsDir holds the request reports; the newest one is exported.
	// Env: LIFTCAB_REPORTS_DIR, Default: "reports"
	ReportsDir string `mapstructure:"reports_dir"`

	// ExportDir receives the renamed units and their artifacts.
	// Env: LIFTCAB_EXPORT_DIR, Default: "export"
	ExportDir string `mapstructure:"export_dir"`

	Ready  ReadyConfig  `mapstructure:"ready"`
	Naming NamingConfig `mapstructure:"naming"`
	Ledger LedgerConfig `mapstructure:"ledger"`
	Log    LogConfig    `mapstructure:"log"`
}

// ReadyPolicy converts the ready settings.
func (c *Config) ReadyPolicy() gateway.ReadyPolicy {
	return gateway.ReadyPolicy{Interval: c.Ready.Interval, Timeout: c.Ready.Timeout}
}

// Conventions converts the naming settings.
func (c *Config) Conventions() rename.Conventions {
	n := c.Naming
	return rename.Conventions{
		AssemblySuffix:   n.AssemblySuffix,
		SheetMetalMarker: n.SheetMetalMarker,
		ThicknessKey:     n.ThicknessKey,
		LengthKeys:       append([]string(nil), n.LengthKeys...),
		FlatPatternExt:   n.FlatPatternExt,
		ViewDrawingExt:   n.ViewDrawingExt,
		NativeDrawingExt: n.NativeDrawingExt,
		SideKey:          n.SideKey,
		UnfoldProjection: n.UnfoldProjection,
		DrawingIndexVar:  n.DrawingIndexVar,
		MaterialFlag:     n.MaterialFlag,
		MaterialKey:      n.MaterialKey,
		MaterialDensity:  n.MaterialDensity,
		ReworkColor:      n.ReworkColor,
		FastenerColor:    n.FastenerColor,
		CabinMarkingStem: n.CabinMarkingStem,
		CabinName:        n.CabinName,
	}
}
