package transform

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-nmr/internal/testutil"
)

func naiveDFT(x []complex128) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for k := range n {
		var acc complex128
		for j := range n {
			phi := -2 * math.Pi * float64(k*j) / float64(n)
			acc += x[j] * complex(math.Cos(phi), math.Sin(phi))
		}
		out[k] = acc
	}
	return out
}

func testFrames(n, frames int) []complex128 {
	src := make([]complex128, n*frames)
	for i := range src {
		src[i] = complex(math.Sin(0.3*float64(i)), math.Cos(0.17*float64(i*i%31)))
	}
	return src
}

func TestBatchMatchesNaiveDFT(t *testing.T) {
	for _, n := range []int{1, 8, 12, 64, 30} {
		b, err := NewBatch(n)
		if err != nil {
			t.Fatalf("NewBatch(%d): %v", n, err)
		}

		src := testFrames(n, 3)
		dst := make([]complex128, len(src))
		if err := b.Forward(dst, src); err != nil {
			t.Fatalf("Forward(n=%d): %v", n, err)
		}

		for f := range 3 {
			want := naiveDFT(src[f*n : (f+1)*n])
			for k := range n {
				if d := cmplx.Abs(dst[f*n+k] - want[k]); d > 1e-9 {
					t.Fatalf("n=%d frame=%d bin=%d: got=%v want=%v", n, f, k, dst[f*n+k], want[k])
				}
			}
		}
	}
}

func TestBatchRejectsBadLength(t *testing.T) {
	b, err := NewBatch(8)
	if err != nil {
		t.Fatal(err)
	}
	err = b.Forward(make([]complex128, 12), make([]complex128, 12))
	if !errors.Is(err, errBatchLength) {
		t.Fatalf("expected errBatchLength, got %v", err)
	}
	if _, err := NewBatch(0); err == nil {
		t.Fatal("expected error for zero frame length")
	}
}

func TestBatchToneLandsInOneBin(t *testing.T) {
	const n, bin = 64, 5
	b, err := NewBatch(n)
	if err != nil {
		t.Fatal(err)
	}

	src := testutil.Tone(bin, n, 1, 0, n)
	dst := make([]complex128, n)
	if err := b.Forward(dst, src); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	got := make([]float64, n)
	want := make([]float64, n)
	for k := range dst {
		got[k] = cmplx.Abs(dst[k])
	}
	want[bin] = n
	d, err := testutil.MaxAbsDiff(got, want)
	if err != nil {
		t.Fatal(err)
	}
	if d > 1e-9 {
		t.Fatalf("max deviation from a single bin=%v", d)
	}
}
