package chunk

import "slices"

// Chunk is one repeated window of a step's samples, in sample pairs.
type Chunk struct {
	Offset int
	Length int
}

// End returns the first index after the chunk.
func (c Chunk) End() int { return c.Offset + c.Length }

// Set is the chunk layout shared by all steps.
type Set []Chunk

// MaxLen returns the longest chunk length, or 0 for an empty set.
func (s Set) MaxLen() int {
	n := 0
	for _, c := range s {
		n = max(n, c.Length)
	}
	return n
}

// Equal reports whether both sets hold the same windows.
func (s Set) Equal(o Set) bool { return slices.Equal(s, o) }

// Mask OR-reduces the given steps into one "nonzero" mask.
//
// Each step holds interleaved real/imaginary samples; index i of the mask
// covers sample pair i. The mask spans the longest step. Indices below skip
// are always false, they hold digital filter artifacts.
func Mask(steps [][]int32, skip int) []bool {
	n := 0
	for _, s := range steps {
		n = max(n, len(s)/2)
	}

	mask := make([]bool, n)
	skip = max(skip, 0)
	for _, s := range steps {
		for i := skip; 2*i+1 < len(s); i++ {
			if s[2*i] != 0 || s[2*i+1] != 0 {
				mask[i] = true
			}
		}
	}
	return mask
}

// Edges returns the contiguous runs of true values in mask.
func Edges(mask []bool) Set {
	var out Set
	start := -1
	for i, v := range mask {
		switch {
		case v && start < 0:
			start = i
		case !v && start >= 0:
			out = append(out, Chunk{Offset: start, Length: i - start})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, Chunk{Offset: start, Length: len(mask) - start})
	}
	return out
}
