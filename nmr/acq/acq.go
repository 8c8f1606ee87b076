// Package acq holds the acquisition model consumed by the processing engine
// and a loader for raw interleaved int32 files.
package acq

import (
	"fmt"

	"github.com/cwbudde/algo-nmr/nmr"
)

// StepWindow locates one step inside the raw buffer.
type StepWindow struct {
	Offset int     // first sample pair
	Length int     // number of sample pairs
	Value  float64 // independent variable of the step
}

// Acquisition is an immutable raw sample buffer organized into steps.
//
// The engine borrows it read-only.
type Acquisition struct {
	// Raw holds interleaved real/imaginary samples.
	Raw   []int32
	Steps []StepWindow

	SampleRate float64 // Hz
	FilterSkip int     // leading digital filter artifacts, in sample pairs
	TimeOffset float64 // seconds

	// FrequencyStepped marks step values as carrier offsets in Hz.
	FrequencyStepped bool
}

// Loader produces an acquisition.
type Loader interface {
	Load() (*Acquisition, error)
}

// LoaderFunc adapts a function to [Loader].
type LoaderFunc func() (*Acquisition, error)

// Load calls f.
func (f LoaderFunc) Load() (*Acquisition, error) { return f() }

// Pairs returns the number of sample pairs in the raw buffer.
func (a *Acquisition) Pairs() int { return len(a.Raw) / 2 }

// Step returns the interleaved samples of step i, clipped to the buffer.
func (a *Acquisition) Step(i int) []int32 {
	if !nmr.InRange(i, len(a.Steps)) {
		return nil
	}
	w := a.Steps[i]
	start := min(max(w.Offset, 0), a.Pairs())
	end := min(start+max(w.Length, 0), a.Pairs())
	return a.Raw[2*start : 2*end]
}

// MaxStepLen returns the longest step length in sample pairs.
func (a *Acquisition) MaxStepLen() int {
	n := 0
	for i := range a.Steps {
		n = max(n, len(a.Step(i))/2)
	}
	return n
}

// Validate checks that every step window lies inside the raw buffer.
func (a *Acquisition) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("acq: sample rate must be positive, got %v: %w", a.SampleRate, nmr.StatusInvalidParam)
	}
	if a.FilterSkip < 0 {
		return fmt.Errorf("acq: filter skip must be non-negative, got %d: %w", a.FilterSkip, nmr.StatusInvalidParam)
	}

	for i, w := range a.Steps {
		if w.Offset < 0 || w.Length < 0 || w.Offset+w.Length > a.Pairs() {
			return fmt.Errorf("acq: step %d window [%d,%d) outside %d pairs: %w",
				i, w.Offset, w.Offset+w.Length, a.Pairs(), nmr.StatusIOWrongSize)
		}
	}
	return nil
}

// UniformSteps splits pairs sample pairs into consecutive equal steps, one
// per value.
func UniformSteps(pairs int, values []float64) []StepWindow {
	if len(values) == 0 {
		return nil
	}
	n := pairs / len(values)
	out := make([]StepWindow, len(values))
	for i, v := range values {
		out[i] = StepWindow{Offset: i * n, Length: n, Value: v}
	}
	return out
}
