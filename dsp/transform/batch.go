package transform

import (
	"errors"
	"fmt"

	algofft "github.com/cwbudde/algo-fft"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cwbudde/algo-nmr/dsp/core"
)

// minPlanLen is the shortest power-of-two length handed to algo-fft.
const minPlanLen = 16

var errBatchLength = errors.New("transform: buffer length is not a multiple of the frame length")

// Batch performs forward DFTs of a fixed frame length.
//
// A Batch is not safe for concurrent use.
type Batch struct {
	n    int
	plan *algofft.Plan[complex128]
	cfft *fourier.CmplxFFT
}

// NewBatch creates a batch transform for frames of length n.
func NewBatch(n int) (*Batch, error) {
	if n <= 0 {
		return nil, fmt.Errorf("transform: frame length must be > 0: %d", n)
	}

	b := &Batch{n: n}
	if n >= minPlanLen && core.IsPowerOf2(n) {
		plan, err := algofft.NewPlan64(n)
		if err != nil {
			return nil, fmt.Errorf("transform: failed to create FFT plan: %w", err)
		}
		b.plan = plan
		return b, nil
	}

	if n > 1 {
		b.cfft = fourier.NewCmplxFFT(n)
	}
	return b, nil
}

// Len returns the frame length.
func (b *Batch) Len() int { return b.n }

// Forward transforms every frame of src into the matching frame of dst.
// len(src) must equal len(dst) and be a multiple of the frame length.
// dst and src must not overlap.
func (b *Batch) Forward(dst, src []complex128) error {
	if len(dst) != len(src) || len(src)%b.n != 0 {
		return fmt.Errorf("%w: dst=%d src=%d n=%d", errBatchLength, len(dst), len(src), b.n)
	}

	for off := 0; off < len(src); off += b.n {
		in := src[off : off+b.n]
		out := dst[off : off+b.n]
		if b.n == 1 {
			out[0] = in[0]
			continue
		}
		if b.plan != nil {
			if err := b.plan.Forward(out, in); err != nil {
				return fmt.Errorf("transform: frame %d: %w", off/b.n, err)
			}
			continue
		}
		b.cfft.Coefficients(out, in)
	}

	return nil
}
