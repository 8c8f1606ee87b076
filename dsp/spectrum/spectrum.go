package spectrum

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/cwbudde/algo-vecmath"
)

// scratchBuf holds pooled scratch memory for complex-to-real unpacking.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// MagnitudeInto writes |X[k]| into dst, which must be at least len(in) long.
//
// Scratch buffers are pooled internally, so in steady state this does not
// allocate. The SIMD kernels of algo-vecmath are used when available.
func MagnitudeInto(dst []float64, in []complex128) {
	if len(in) == 0 {
		return
	}

	re, im, buf := getScratch(len(in))
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	vecmath.Magnitude(dst[:len(in)], re, im)
	putScratch(buf)
}

// Phase returns arg(X[k]) for each complex spectrum bin in radians.
func Phase(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}
	out := make([]float64, len(in))
	for i, c := range in {
		out[i] = cmplx.Phase(c)
	}
	return out
}

// Shift reorders DFT output in place so that bin 0 holds the most negative
// frequency and bin n/2 holds DC.
//
// For even n this is its own inverse. For odd n the DC bin ends up at
// index n/2 as well.
func Shift(bins []complex128) {
	n := len(bins)
	if n < 2 {
		return
	}

	half := n / 2
	if n%2 == 0 {
		for i := range half {
			bins[i], bins[i+half] = bins[i+half], bins[i]
		}
		return
	}

	// Odd length: rotate right by half.
	reverse(bins)
	reverse(bins[:half])
	reverse(bins[half:])
}

func reverse(s []complex128) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// Rotor returns exp(i*phi).
func Rotor(phi float64) complex128 {
	s, c := math.Sincos(phi)
	return complex(c, s)
}

// Sum returns the complex sum of bins.
func Sum(bins []complex128) complex128 {
	if len(bins) == 0 {
		return 0
	}

	re, im, buf := getScratch(len(bins))
	for i, c := range bins {
		re[i] = real(c)
		im[i] = imag(c)
	}

	s := complex(vecmath.Sum(re), vecmath.Sum(im))
	putScratch(buf)
	return s
}
