// Package phase implements zero- and first-order phase correction and DC
// offset removal of shifted DFT spectra.
//
// A spectrum of n bins is assumed to be shifted so that bin n/2 holds the
// carrier. Bin j then lies at the baseband frequency (j-n/2)·sr/n.
package phase

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-nmr/dsp/core"
	"github.com/cwbudde/algo-nmr/dsp/spectrum"
)

const milliDegPerTurn = 360000

// Baseband returns the frequency offset of bin j of an n-bin shifted
// spectrum in Hz.
func Baseband(j, n int, sampleRate float64) float64 {
	if n <= 0 {
		return 0
	}
	return float64(j-n/2) * sampleRate / float64(n)
}

// Delay returns the first-order delay in seconds.
//
// ns is the stored delay in nanoseconds. With absolute set, the delay is
// measured from the chunk start, so the processing-window start is
// subtracted.
func Delay(ns int64, absolute bool, procStart int, sampleRate float64) float64 {
	tau := float64(ns) * 1e-9
	if absolute && sampleRate > 0 {
		tau -= float64(procStart) / sampleRate
	}
	return tau
}

// Offset returns the complex DC offset contributed by the first time-domain
// sample x0 of an unpadded window of length l, for a 1/l normalized DFT.
// Subtracting it from every bin halves the first sample.
func Offset(x0 complex128, l int) complex128 {
	if l <= 0 {
		return 0
	}
	return x0 / complex(2*float64(l), 0)
}

// VectorSum returns the sum of all bins after de-rotating them by the
// first-order delay tau.
func VectorSum(spec []complex128, sampleRate, tau float64) complex128 {
	if tau == 0 {
		return spectrum.Sum(spec)
	}

	var sum complex128
	n := len(spec)
	for j, x := range spec {
		sum += x * spectrum.Rotor(2*math.Pi*Baseband(j, n, sampleRate)*tau)
	}
	return sum
}

// AutoPhase0 returns the zero-order correction in milli-degrees that turns
// the vector sum real and positive. A zero sum yields 0.
func AutoPhase0(sum complex128) int64 {
	if sum == 0 || cmplx.IsNaN(sum) {
		return 0
	}
	return core.Mod(core.RadToMilliDeg(-cmplx.Phase(sum)), milliDegPerTurn)
}

// Correction describes the rotation applied to one step.
type Correction struct {
	Phase0     int64      // milli-degrees
	Tau        float64    // first-order delay in seconds
	Offset     complex128 // subtracted before rotating
	SampleRate float64
}

// IsIdentity reports whether applying c leaves a spectrum unchanged.
func (c Correction) IsIdentity() bool {
	return core.Mod(c.Phase0, milliDegPerTurn) == 0 && c.Tau == 0 && c.Offset == 0
}

// Apply writes the corrected spectrum of src into dst.
//
// dst and src must have the same length and may alias.
func Apply(dst, src []complex128, c Correction) {
	phi0 := core.MilliDegToRad(c.Phase0)
	n := len(src)

	if c.Tau == 0 {
		r := spectrum.Rotor(phi0)
		for j, x := range src {
			dst[j] = (x - c.Offset) * r
		}
		return
	}

	w := 2 * math.Pi * c.Tau
	for j, x := range src {
		dst[j] = (x - c.Offset) * spectrum.Rotor(phi0+w*Baseband(j, n, c.SampleRate))
	}
}
