package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-nmr/nmr/acq"
	"github.com/cwbudde/algo-nmr/nmr/diag"
	"github.com/cwbudde/algo-nmr/nmr/engine"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	verbose  int
	viewPath string
	sets     []string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "nmrproc",
		Short: "Process multi-echo NMR acquisitions",
		Long: `nmrproc detects the echo chunk layout of a raw acquisition, averages
the chunks, transforms them and exports spectra, phase-corrected spectra,
envelopes and per-step evaluations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().CountVarP(&opts.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	root.PersistentFlags().StringVar(&opts.viewPath, "view", "", "view file with processing parameters")
	root.PersistentFlags().StringArrayVar(&opts.sets, "set", nil, "set a parameter, as Name=value (repeatable)")

	root.AddCommand(
		newChunksCmd(opts),
		newExportCmd(opts),
		newViewCmd(opts),
	)
	return root
}

// openEngine builds an engine for the description at path and applies the
// view file and --set overrides.
func openEngine(cmd *cobra.Command, opts *globalOptions, path string) (*engine.Engine, error) {
	logger := diag.NewLogger(cmd.ErrOrStderr(), diag.LevelFromVerbosity(opts.verbose))

	desc, err := acq.LoadDescription(path)
	if err != nil {
		return nil, err
	}

	e, err := engine.New(acq.NewRawFileLoader(desc), diag.NewLogReporter(logger), engine.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	if opts.viewPath != "" {
		f, err := os.Open(opts.viewPath)
		if err != nil {
			return nil, fmt.Errorf("open view: %w", err)
		}
		defer f.Close()
		if err := e.LoadView(f); err != nil {
			return nil, err
		}
	}

	if len(opts.sets) > 0 {
		for _, s := range opts.sets {
			if !strings.Contains(s, "=") {
				return nil, fmt.Errorf("--set %q: want Name=value", s)
			}
		}
		if err := e.LoadView(strings.NewReader(strings.Join(opts.sets, "\n"))); err != nil {
			return nil, err
		}
	}
	return e, nil
}
