// pid-extract recognizes device symbols in 2D vector drawings: it clusters
// raw geometry, assigns each cluster to the tag that names it, classifies the
// cluster against a pattern library, and reports the resulting device
// records.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pid-extract/internal/config"
	"pid-extract/internal/drawing"
	"pid-extract/internal/export"
	"pid-extract/internal/logger"
	"pid-extract/internal/match"
	"pid-extract/internal/pattern"
	"pid-extract/internal/render"
	"pid-extract/internal/store"
	"pid-extract/internal/version"
)

var (
	flagConfig   string
	flagEnv      string
	flagDrawing  string
	flagSnapshot string
)

func main() {
	root := &cobra.Command{
		Use:           "pid-extract",
		Short:         "Extract device records from 2D vector drawings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "pid-extract.toml", "path to the TOML configuration file")
	root.PersistentFlags().StringVar(&flagEnv, "env", ".env", "path to an optional .env override file")

	root.AddCommand(newRunCmd(), newRenderCmd(), newSnapshotCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadSetup loads configuration, logging, lists, and the pattern library.
// Any failure here is fatal to the run: no mutation may be attempted against
// a partially loaded configuration.
func loadSetup() (config.Config, *match.Runner, error) {
	if err := config.LoadEnvFile(flagEnv); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, nil, err
	}
	log := logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	prefixes, err := config.LoadStringList(cfg.Paths.TagPrefixes)
	if err != nil {
		return config.Config{}, nil, err
	}
	tagRe, err := config.TagPrefixPattern(prefixes)
	if err != nil {
		return config.Config{}, nil, err
	}
	layerList, err := config.LoadStringList(cfg.Paths.AllowedLayers)
	if err != nil {
		return config.Config{}, nil, err
	}
	lib, err := pattern.LoadLibrary(cfg.Paths.PatternLibrary)
	if err != nil {
		return config.Config{}, nil, err
	}

	runner := match.NewRunner(cfg, lib, tagRe, config.NewLayerFilter(layerList), log)
	return cfg, runner, nil
}

// loadSnapshot reads the drawing snapshot from the selected source.
func loadSnapshot(ctx context.Context) (*drawing.Snapshot, *store.Store, error) {
	switch {
	case flagDrawing != "" && flagSnapshot != "":
		return nil, nil, fmt.Errorf("use either --drawing or --snapshot, not both")
	case flagDrawing != "":
		st, err := store.Open(flagDrawing)
		if err != nil {
			return nil, nil, err
		}
		snap, err := st.Load(ctx)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		return snap, st, nil
	case flagSnapshot != "":
		snap, err := store.ReadSnapshotFile(flagSnapshot)
		return snap, nil, err
	default:
		return nil, nil, fmt.Errorf("a drawing source is required (--drawing or --snapshot)")
	}
}

func newRunCmd() *cobra.Command {
	var apply, doExport bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a matching pass over a drawing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, runner, err := loadSetup()
			if err != nil {
				return err
			}
			snap, st, err := loadSnapshot(ctx)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			res, err := runner.Run(ctx, snap)
			if err != nil {
				return err
			}
			printResult(res)

			if apply {
				if st == nil {
					return fmt.Errorf("--apply requires a --drawing database")
				}
				if err := st.Apply(ctx, res.Mutations); err != nil {
					return err
				}
				fmt.Printf("Applied %d mutations\n", len(res.Mutations))
			}

			if doExport {
				client := export.NewClient(cfg.Export, nil)
				if err := client.Send(ctx, res.Records); err != nil {
					return fmt.Errorf("export: %w", err)
				}
				fmt.Printf("Exported %d records\n", len(res.Records))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flagDrawing, "drawing", "", "path to a drawing database")
	cmd.Flags().StringVar(&flagSnapshot, "snapshot", "", "path to a snapshot file")
	cmd.Flags().BoolVar(&apply, "apply", false, "apply marker mutations to the drawing database")
	cmd.Flags().BoolVar(&doExport, "export", false, "send the record batch to the export sink")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var out string
	var width int
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a matching pass preview PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, runner, err := loadSetup()
			if err != nil {
				return err
			}
			snap, st, err := loadSnapshot(ctx)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			res, err := runner.Run(ctx, snap)
			if err != nil {
				return err
			}
			opts := render.DefaultOptions()
			if width > 0 {
				opts.Width = width
			}
			img := render.Preview(snap, res, opts)
			if err := render.WritePNG(out, img); err != nil {
				return err
			}
			fmt.Printf("Wrote preview to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagDrawing, "drawing", "", "path to a drawing database")
	cmd.Flags().StringVar(&flagSnapshot, "snapshot", "", "path to a snapshot file")
	cmd.Flags().StringVar(&out, "out", "preview.png", "output PNG path")
	cmd.Flags().IntVar(&width, "width", 0, "preview width in pixels")
	return cmd
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Move drawings between database and snapshot file form",
	}

	var exportOut string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write a drawing database out as a snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if flagDrawing == "" {
				return fmt.Errorf("--drawing is required")
			}
			st, err := store.Open(flagDrawing)
			if err != nil {
				return err
			}
			defer st.Close()
			snap, err := st.Load(ctx)
			if err != nil {
				return err
			}
			if err := store.WriteSnapshotFile(exportOut, snap); err != nil {
				return err
			}
			fmt.Printf("Wrote %d entities, %d tags to %s\n", len(snap.Entities), len(snap.Tags), exportOut)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&flagDrawing, "drawing", "", "path to a drawing database")
	exportCmd.Flags().StringVar(&exportOut, "out", "drawing.snap", "output snapshot file")

	var importIn string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load a snapshot file into a drawing database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if flagDrawing == "" {
				return fmt.Errorf("--drawing is required")
			}
			snap, err := store.ReadSnapshotFile(importIn)
			if err != nil {
				return err
			}
			st, err := store.Open(flagDrawing)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.SaveSnapshot(ctx, snap); err != nil {
				return err
			}
			fmt.Printf("Imported %d entities, %d tags into %s\n", len(snap.Entities), len(snap.Tags), flagDrawing)
			return nil
		},
	}
	importCmd.Flags().StringVar(&importIn, "in", "drawing.snap", "input snapshot file")
	importCmd.Flags().StringVar(&flagDrawing, "drawing", "", "path to a drawing database")

	cmd.AddCommand(exportCmd, importCmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pid-extract %s (commit %s, built %s)\n",
				version.Version, version.GitCommit, version.BuildTime)
		},
	}
}

func printResult(res *match.Result) {
	fmt.Printf("Tags seen:         %d\n", res.Stats.TagsSeen)
	fmt.Printf("Clusters built:    %d\n", res.Stats.ClustersBuilt)
	fmt.Printf("Matched:           %d\n", res.Stats.Matched)
	fmt.Printf("Unmatched:         %d\n", res.Stats.Unmatched)
	fmt.Printf("Unowned:           %d\n", res.Stats.Unowned)
	fmt.Printf("Markers added:     %d\n", res.Stats.MarkersAdded)
	fmt.Printf("Markers removed:   %d\n", res.Stats.MarkersRemoved)
	fmt.Printf("Entities skipped:  %d\n", res.Stats.EntitiesSkipped)
	for _, rec := range res.Records {
		status := rec.Pattern
		if !rec.Matched {
			status = "UNMATCHED"
		}
		fmt.Printf("  %-12s %s\n", rec.TagText, status)
	}
}
