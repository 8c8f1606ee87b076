// Package envelope builds the upper envelope over the spectra of many
// steps.
//
// Steps of a frequency-stepped experiment sit on shifted frequency grids.
// The envelope keeps every spectral point that no other step exceeds at
// the same frequency, comparing against linearly interpolated neighbours.
package envelope

import (
	"cmp"
	"slices"

	"github.com/cwbudde/algo-nmr/dsp/interp"
)

// Curve is the spectrum of one step.
type Curve struct {
	Grid     interp.Grid
	Lo, Hi   int // valid bin range [Lo, Hi)
	Values   []float64
	Eligible bool
}

// Point is one envelope sample.
type Point struct {
	Freq  float64
	Value float64
}

// Synthesize returns the envelope of the eligible curves sorted by
// frequency. It returns nil when no curve is eligible.
func Synthesize(curves []Curve) []Point {
	var eligible []Curve
	for _, c := range curves {
		if c.Eligible && c.Hi > c.Lo {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	if sharedGrid(eligible) {
		return pointwiseMax(eligible)
	}
	return shifted(eligible)
}

func sharedGrid(curves []Curve) bool {
	ref := curves[0]
	for _, c := range curves[1:] {
		if !c.Grid.Equal(ref.Grid) || c.Lo != ref.Lo || c.Hi != ref.Hi {
			return false
		}
	}
	return true
}

func pointwiseMax(curves []Curve) []Point {
	ref := curves[0]
	out := make([]Point, 0, ref.Hi-ref.Lo)
	for j := ref.Lo; j < ref.Hi; j++ {
		v := ref.Values[j]
		for _, c := range curves[1:] {
			v = max(v, c.Values[j])
		}
		out = append(out, Point{Freq: ref.Grid.At(j), Value: v})
	}
	return out
}

func shifted(curves []Curve) []Point {
	var out []Point
	for i, c := range curves {
		order := Neighbours(i, len(curves))
		for j := c.Lo; j < c.Hi; j++ {
			f, v := c.Grid.At(j), c.Values[j]
			if !exceeded(curves, order, f, v) {
				out = append(out, Point{Freq: f, Value: v})
			}
		}
	}

	slices.SortStableFunc(out, func(a, b Point) int { return cmp.Compare(a.Freq, b.Freq) })
	return out
}

// exceeded reports whether any curve in order is strictly above v at f.
func exceeded(curves []Curve, order []int, f, v float64) bool {
	for _, k := range order {
		n := curves[k]
		if w, ok := n.Grid.Linear(n.Values, n.Lo, n.Hi, f); ok && w > v {
			return true
		}
	}
	return false
}

// Neighbours returns the indices of the other n-1 curves in expanding
// distance from i, starting toward the side with more curves.
func Neighbours(i, n int) []int {
	out := make([]int, 0, max(n-1, 0))
	dir := 1
	if i > n-1-i {
		dir = -1
	}

	for d := 1; len(out) < n-1; d++ {
		for _, k := range [2]int{i + dir*d, i - dir*d} {
			if k >= 0 && k < n {
				out = append(out, k)
			}
		}
	}
	return out
}
