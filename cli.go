package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/chazu/liftcab/internal/config"
	"github.com/chazu/liftcab/internal/output"
	"github.com/chazu/liftcab/pkg/design"
	"github.com/chazu/liftcab/pkg/export"
	"github.com/spf13/cobra"
)

// cli holds the global flags and the App built from them.
type cli struct {
	configFile string
	verbose    bool

	cfg *config.Config
	app *App
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "liftcab",
		Short: "Export parametric elevator-cabin designs",
		Long: `liftcab exports a parametric elevator-cabin design for one order.

It reads the newest request report, opens every requested unit, applies
the order's dimensions and designations, and saves renamed copies with
their flat patterns and drawings into the export directory.`,
		PersistentPreRunE:  c.setup,
		PersistentPostRunE: c.teardown,
		SilenceUsage:       true,
		SilenceErrors:      true,
	}
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "path to config file (default ./"+config.DefaultConfigFile+")")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "increase output verbosity")

	root.AddCommand(
		c.newExportCmd(),
		c.newComposeCmd(),
		c.newFastenersCmd(),
		c.newTreeCmd(),
		c.newHistoryCmd(),
	)
	return root
}

// setup loads configuration, configures logging and builds the App.
func (c *cli) setup(_ *cobra.Command, _ []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(c.configFile)
	if err != nil {
		return err
	}
	output.SetupLogging(output.LogConfig{
		Verbose:    c.verbose || cfg.Log.Verbose,
		Timestamps: cfg.Log.Timestamps,
	})
	output.Debug("configuration loaded", "file", loader.ConfigFileUsed(), "export_dir", cfg.ExportDir)

	app, err := NewApp(cfg, output.Logger)
	if err != nil {
		return err
	}
	c.cfg, c.app = cfg, app
	return nil
}

func (c *cli) teardown(_ *cobra.Command, _ []string) error {
	if c.app == nil {
		return nil
	}
	return c.app.Close()
}

func (c *cli) newExportCmd() *cobra.Command {
	var outDir, reportsDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the newest request report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outDir = orDefault(outDir, c.cfg.ExportDir)
			reportsDir = orDefault(reportsDir, c.cfg.ReportsDir)

			var sum *export.Summary
			err := output.RunWithSpinner("Exporting "+reportsDir, func() error {
				var err error
				sum, err = c.app.Export(reportsDir, outDir)
				return err
			})
			if err != nil {
				return err
			}
			if sum == nil {
				output.Println(output.StyleDim.Render("nothing to export in " + reportsDir))
				return nil
			}
			ok, failed, skipped := sum.Counts()
			output.Println(output.FormatStatusLine("export "+sum.ID, ok, failed, skipped))
			for _, p := range sum.Parts {
				if p.NewPathModel != "" {
					output.Println("  " + p.Group + " → " + output.StyleNoun.Render(p.NewPathModel))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "export directory (default from config)")
	cmd.Flags().StringVar(&reportsDir, "reports", "", "directory holding request reports (default from config)")
	return cmd
}

func (c *cli) newComposeCmd() *cobra.Command {
	var outDir, reportsDir string
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Assemble the exported parts into the cabin assembly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := c.app.Compose(orDefault(reportsDir, c.cfg.ReportsDir), orDefault(outDir, c.cfg.ExportDir))
			if err != nil {
				return err
			}
			output.Println(output.FormatCheckmark("cabin saved to " + output.StyleNoun.Render(path)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "export directory (default from config)")
	cmd.Flags().StringVar(&reportsDir, "reports", "", "directory holding request reports (default from config)")
	return cmd
}

func (c *cli) newFastenersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fasteners ASSEMBLY",
		Short: "Cut fastener bodies out of the parts marked for rework",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := c.app.Fasteners(args[0])
			if err != nil {
				return err
			}
			if len(results) == 0 {
				output.Println(output.StyleDim.Render("no rework targets or fastener modifiers found"))
				return nil
			}
			for _, r := range results {
				name := output.StyleNoun.Render(filepath.Base(r.Path))
				switch {
				case r.Err != nil:
					output.Println(output.FormatCross(name + ": " + r.Err.Error()))
				case r.Dropped:
					output.Println(output.FormatCross(name + ": fasteners do not reach the part, boolean excluded"))
				default:
					output.Println(output.FormatCheckmark(fmt.Sprintf("%s: %d fasteners, %s", name, r.Inserted, r.DXFPath)))
				}
			}
			return nil
		},
	}
}

func (c *cli) newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree UNIT",
		Short: "Print the component hierarchy of a unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.app.Tree(args[0])
			if err != nil {
				return err
			}
			output.Println(output.RenderTree(t, treeLabel))
			return nil
		},
	}
}

func treeLabel(id design.NodeID, n *design.Node) string {
	label := output.DefaultNodeLabel(id, n)
	if n.IsLocal {
		label += output.StyleDim.Render(" (local)")
	}
	if n.SpecificationSection != "" {
		label += output.StyleDim.Render(" [" + n.SpecificationSection + "]")
	}
	return label
}

func (c *cli) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent export runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := c.app.History(limit)
			if err != nil {
				return err
			}
			tbl := output.NewTable("RUN", "STARTED", "DURATION", "OK", "FAILED", "SKIPPED", "EXPORT DIR")
			for _, r := range runs {
				dur := "aborted"
				if !r.Finished.IsZero() {
					dur = r.Finished.Sub(r.Started).Round(time.Millisecond).String()
				}
				tbl.Row(r.ID[:min(8, len(r.ID))], r.Started.Format(time.DateTime), dur,
					fmt.Sprint(r.OK), fmt.Sprint(r.Failed), fmt.Sprint(r.Skipped), r.ExportDir)
			}
			output.Println(tbl.String())
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list (0 for all)")
	return cmd
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
