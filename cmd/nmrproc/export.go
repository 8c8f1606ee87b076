package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-nmr/nmr"
	"github.com/cwbudde/algo-nmr/nmr/engine"
)

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		typeName string
		step     int
		output   string
	)

	cmd := &cobra.Command{
		Use:   "export <description.yaml>",
		Short: "Export processed data as a text table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dt, err := engine.ParseDataType(typeName)
			if err != nil {
				return err
			}
			e, err := openEngine(cmd, opts, args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, func(w io.Writer) error {
				return e.Export(w, dt, step)
			})
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", engine.Spectrum.String(),
		"data type: "+strings.Join(engine.DataTypes(), ", "))
	cmd.Flags().IntVarP(&step, "step", "s", 0, "step index; ignored by envelopes and evaluation")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newViewCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "view <description.yaml>",
		Short: "Print the effective processing parameters as a view file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(cmd, opts, args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, e.SaveView)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

// writeOutput runs write against path, or against stdout when path is empty.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) (err error) {
	if path == "" {
		return write(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w: %w", nmr.StatusIOOpen, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w: %w", nmr.StatusIOClose, cerr)
		}
	}()
	return write(f)
}
