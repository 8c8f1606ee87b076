// Command nmrproc runs the NMR processing engine on a raw acquisition.
//
// Usage:
//
//	nmrproc [flags] <command> <description.yaml>
//
// The description names the raw interleaved int32 file and how it splits
// into steps. Processing parameters come from an optional view file and
// from repeated --set flags, applied in that order.
//
// Examples:
//
//	nmrproc chunks fid.yaml
//	nmrproc export fid.yaml --type spectrum --step 3
//	nmrproc -vv export fid.yaml --type evaluation --set FilterWidth=2e4 -o eval.txt
//	nmrproc view fid.yaml --view saved.par
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
