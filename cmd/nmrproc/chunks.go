package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newChunksCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chunks <description.yaml>",
		Short: "Print the detected chunk layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(cmd, opts, args[0])
			if err != nil {
				return err
			}
			set, err := e.ChunkSet()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Chunk\tOffset\tLength\n")
			fmt.Fprintf(tw, "-----\t------\t------\n")
			for i, c := range set {
				fmt.Fprintf(tw, "%d\t%d\t%d\n", i, c.Offset, c.Length)
			}
			return tw.Flush()
		},
	}
}
