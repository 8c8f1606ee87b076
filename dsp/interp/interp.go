package interp

import "math"

// Linear2 interpolates linearly from x0 to x1 at t in [0,1].
func Linear2(t, x0, x1 float64) float64 {
	return x0 + t*(x1-x0)
}

// Grid describes a uniform axis: sample i lies at Start + i*Step.
type Grid struct {
	Start float64
	Step  float64
	Len   int
}

// At returns the axis value of sample i.
func (g Grid) At(i int) float64 {
	return g.Start + float64(i)*g.Step
}

// Index returns the fractional sample position of x on the grid.
// A zero step yields NaN.
func (g Grid) Index(x float64) float64 {
	if g.Step == 0 {
		return math.NaN()
	}
	return (x - g.Start) / g.Step
}

// Equal reports whether two grids describe the same axis.
func (g Grid) Equal(o Grid) bool {
	return g.Start == o.Start && g.Step == o.Step && g.Len == o.Len
}

// Linear evaluates values (sampled on g) at x by linear interpolation.
//
// Only samples in [lo, hi) are considered valid. ok is false when the two
// interpolation partners of x are not both inside that range.
func (g Grid) Linear(values []float64, lo, hi int, x float64) (v float64, ok bool) {
	pos := g.Index(x)
	if math.IsNaN(pos) {
		return 0, false
	}

	j := int(math.Floor(pos))
	frac := pos - float64(j)
	if frac == 0 {
		if j < lo || j >= hi {
			return 0, false
		}
		return values[j], true
	}

	if j < lo || j+1 >= hi {
		return 0, false
	}

	return Linear2(frac, values[j], values[j+1]), true
}
