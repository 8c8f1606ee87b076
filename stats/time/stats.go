// Package time computes summary statistics of sampled series.
package time

import "math"

// Stats holds single-pass statistics of a series.
type Stats struct {
	Length  int
	Sum     float64 // Kahan-compensated
	Mean    float64
	Max     float64
	MaxPos  int
	Min     float64
	MinPos  int
	Peak    float64 // signed value with the largest magnitude
	PeakPos int
	RMS     float64
}

// Calculate computes all statistics in a single pass.
// An empty series yields a zero Stats with MaxPos, MinPos and PeakPos = -1.
func Calculate(signal []float64) Stats {
	n := len(signal)
	if n == 0 {
		return Stats{MaxPos: -1, MinPos: -1, PeakPos: -1}
	}

	var (
		sum, c  float64
		sumSq   float64
		maxVal  = signal[0]
		maxPos  int
		minVal  = signal[0]
		minPos  int
		peak    = signal[0]
		peakPos int
	)

	for i, x := range signal {
		// Kahan summation.
		y := x - c
		t := sum + y
		c = (t - sum) - y
		sum = t

		sumSq += x * x

		if x > maxVal {
			maxVal = x
			maxPos = i
		}

		if x < minVal {
			minVal = x
			minPos = i
		}

		if math.Abs(x) > math.Abs(peak) {
			peak = x
			peakPos = i
		}
	}

	nf := float64(n)

	return Stats{
		Length:  n,
		Sum:     sum,
		Mean:    sum / nf,
		Max:     maxVal,
		MaxPos:  maxPos,
		Min:     minVal,
		MinPos:  minPos,
		Peak:    peak,
		PeakPos: peakPos,
		RMS:     math.Sqrt(sumSq / nf),
	}
}

// Integral returns the rectangle-rule integral of signal sampled every dt.
func Integral(signal []float64, dt float64) float64 {
	return Calculate(signal).Sum * dt
}
