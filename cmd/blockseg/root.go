package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for blockseg.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blockseg",
		Short: "Resolve layout detections into ordered page regions",
		Long: `blockseg post-processes the output of a block segmentation model.

It grows detection boxes over nearby non-text pixels, removes vertical
overlaps, computes a reading order and traces one polygon per region,
clipped to the page frame. Results are written as PAGE XML.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	cmd.AddCommand(NewResolveCmd())
	cmd.AddCommand(NewClassesCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

func getLogFormat(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format, _ = cmd.Root().PersistentFlags().GetString("log-format")
	}
	return format
}

// setupLogger creates the process logger. Region-level messages are logged
// at info, per-pixel details at debug.
func setupLogger(w io.Writer, verbose bool, format string) (*slog.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, errors.Errorf("unknown log format %q (want text or json)", format)
	}
}
