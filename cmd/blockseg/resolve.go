package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/go-blockseg/config"
	"github.com/nvr-ai/go-blockseg/layout"
	"github.com/nvr-ai/go-blockseg/pipeline"
	"github.com/nvr-ai/go-blockseg/profiler"
	"github.com/nvr-ai/go-blockseg/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewResolveCmd creates the resolve command.
func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <bundle-dir>...",
		Short: "Resolve page bundles into PAGE XML regions",
		Long: `Resolve reads page bundles and writes regions.xml into each of them.

A bundle directory holds page.png and detections.json, and optionally
nontext.png (dark pixels = non-text content), frame.json (page frame polygon)
and regions.xml (regions already on the page). A directory that is not a
bundle is searched for bundle subdirectories.

Settings are read from blockseg.yaml (or --config), then BLOCKSEG_*
environment variables, then the flags below.

Examples:
  # Resolve one page
  blockseg resolve scans/page-0001

  # Resolve every bundle below scans/, eight pages at a time
  blockseg resolve --workers 8 scans/

  # Replace regions that are already on the pages
  blockseg resolve --overwrite scans/`,
		Args: cobra.MinimumNArgs(1),
		RunE: runResolveCmd,
	}

	cmd.Flags().StringP("config", "c", "", "Configuration file path (default: "+config.DefaultConfigFile+" if present)")
	cmd.Flags().String("env-file", "", "Load environment variables from this .env file")
	cmd.Flags().Int("th", 0, "Neighbourhood radius for box refinement")
	cmd.Flags().Bool("overwrite", false, "Remove regions already present on the page")
	cmd.Flags().Float32("min-confidence", 0, "Detection score threshold")
	cmd.Flags().IntP("workers", "w", 0, "Number of pages resolved in parallel")
	cmd.Flags().Int("max-refine-iterations", 0, "Cap on box refinement scans")
	cmd.Flags().Int("max-dilation-rounds", 0, "Dilation rounds allowed per region outline")
	cmd.Flags().Bool("profile", false, "Log per-phase timings when the batch is done")

	return cmd
}

// buildConfig layers the flags the user set over the file and environment.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(path, envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("th") {
		cfg.Th, _ = flags.GetInt("th")
	}
	if flags.Changed("overwrite") {
		cfg.Overwrite, _ = flags.GetBool("overwrite")
	}
	if flags.Changed("min-confidence") {
		cfg.MinConfidence, _ = flags.GetFloat32("min-confidence")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("max-refine-iterations") {
		cfg.MaxRefineIterations, _ = flags.GetInt("max-refine-iterations")
	}
	if flags.Changed("max-dilation-rounds") {
		cfg.MaxDilationRounds, _ = flags.GetInt("max-dilation-rounds")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runResolveCmd executes the resolve command.
func runResolveCmd(cmd *cobra.Command, args []string) error {
	logger, err := setupLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd), getLogFormat(cmd))
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := buildConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "configuration error")
	}

	dirs, err := util.FindBundles(args...)
	if err != nil {
		return err
	}
	if len(dirs) == 0 {
		return errors.Errorf("no page bundles found in %v", args)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return resolveBundles(ctx, cmd, cfg, dirs, logger)
}

func resolveBundles(ctx context.Context, cmd *cobra.Command, cfg *config.Config, dirs []string, logger *slog.Logger) error {
	opts := []layout.Option{layout.WithLogger(logger)}
	var prof *profiler.Profiler
	if profile, _ := cmd.Flags().GetBool("profile"); profile {
		prof = profiler.New(0)
		opts = append(opts, layout.WithProfiler(prof))
	}
	resolver := layout.NewResolver(cfg.Layout(), opts...)
	bp := pipeline.NewBatchProcessor(resolver,
		pipeline.WithConcurrency(cfg.Workers),
		pipeline.WithBatchLogger(logger),
	)

	jobs := make([]pipeline.Job, len(dirs))
	for i, dir := range dirs {
		jobs[i] = pipeline.BundleJob(dir, cfg.MinConfidence, logger)
	}

	reports, err := bp.ProcessBatch(ctx, jobs)
	if prof != nil {
		prof.LogReport(logger)
	}
	out := cmd.OutOrStdout()
	for i, r := range reports {
		switch {
		case r == nil:
			fmt.Fprintf(out, "%s: skipped\n", dirs[i])
		case r.Err != nil:
			fmt.Fprintf(out, "%s: error: %v\n", r.Name, r.Err)
		default:
			fmt.Fprintf(out, "%s: %d regions, %d dropped\n", r.Name, r.Result.Stats.Emitted, r.Result.Stats.Dropped)
		}
	}
	if err != nil {
		return err
	}

	s := pipeline.Summarize(reports)
	fmt.Fprintf(out, "%d pages, %d regions, %d dropped, %d diagnostics\n", s.Pages, s.Regions, s.Dropped, s.Diagnostics)
	if s.Failed > 0 {
		return errors.Errorf("%d of %d pages failed", s.Failed, s.Pages)
	}
	return nil
}
