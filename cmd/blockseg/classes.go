package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/nvr-ai/go-blockseg/models"
	"github.com/spf13/cobra"
)

// NewClassesCmd creates the classes command.
func NewClassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "List the block segmentation class table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set := models.BlockSegmentationClasses()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCLASS\tREGION")
			for _, c := range set.Classes {
				region := models.KindOf(c.Name).String()
				if c.Name == models.ClassBackground {
					region = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", c.Index, c.Name, region)
			}
			return w.Flush()
		},
	}
}
