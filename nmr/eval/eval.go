// Package eval reduces per-step processing results to scalar metrics.
package eval

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	timestats "github.com/cwbudde/algo-nmr/stats/time"
)

// ChunkAverage summarizes the chunk-average amplitude over the processing
// window.
type ChunkAverage struct {
	Max      float64
	Integral float64 // amplitude sum times the sample period
}

// Amplitude summarizes the spectral amplitude over the filter range.
type Amplitude struct {
	Max      float64
	MaxIndex int // bin index of Max, -1 for an empty range
	Mean     float64
}

// PhaseReal summarizes the real part of the phase-corrected spectrum over
// the filter range.
type PhaseReal struct {
	Extremum float64 // signed value with the largest magnitude
	Mean     float64
}

// PhaseAmplitude summarizes the phase-corrected amplitude over the filter
// range.
type PhaseAmplitude struct {
	Max  float64
	Mean float64
}

// Summary collects every metric of one step.
type Summary struct {
	ChunkAverage   ChunkAverage
	Amplitude      Amplitude
	PhaseReal      PhaseReal
	PhaseAmplitude PhaseAmplitude
}

// window returns x[lo:hi] with the bounds clipped to x.
func window(x []float64, lo, hi int) []float64 {
	lo = max(lo, 0)
	hi = min(hi, len(x))
	if hi <= lo {
		return nil
	}
	return x[lo:hi]
}

// ChunkAverageOf evaluates the chunk-average amplitude amp over
// [start, end).
func ChunkAverageOf(amp []float64, start, end int, sampleRate float64) ChunkAverage {
	w := window(amp, start, end)
	if len(w) == 0 {
		return ChunkAverage{}
	}

	s := timestats.Calculate(w)
	out := ChunkAverage{Max: s.Max}
	if sampleRate > 0 {
		out.Integral = timestats.Integral(w, 1/sampleRate)
	}
	return out
}

// AmplitudeOf evaluates the spectral amplitude amp over [lo, hi).
func AmplitudeOf(amp []float64, lo, hi int) Amplitude {
	w := window(amp, lo, hi)
	if len(w) == 0 {
		return Amplitude{MaxIndex: -1}
	}

	i := floats.MaxIdx(w)
	return Amplitude{
		Max:      w[i],
		MaxIndex: max(lo, 0) + i,
		Mean:     stat.Mean(w, nil),
	}
}

// PhaseRealOf evaluates the phase-corrected real part re over [lo, hi).
func PhaseRealOf(re []float64, lo, hi int) PhaseReal {
	w := window(re, lo, hi)
	if len(w) == 0 {
		return PhaseReal{}
	}

	s := timestats.Calculate(w)
	return PhaseReal{Extremum: s.Peak, Mean: s.Mean}
}

// PhaseAmplitudeOf evaluates the phase-corrected amplitude over [lo, hi).
func PhaseAmplitudeOf(amp []float64, lo, hi int) PhaseAmplitude {
	w := window(amp, lo, hi)
	if len(w) == 0 {
		return PhaseAmplitude{}
	}
	return PhaseAmplitude{Max: floats.Max(w), Mean: stat.Mean(w, nil)}
}
