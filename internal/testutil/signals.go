package testutil

import (
	"math"
	"math/cmplx"
	"math/rand"
)

// Echo describes a synthetic multi-echo train.
type Echo struct {
	Samples   int     // total sample pairs
	Offset    int     // start of the first echo
	Period    int     // echo spacing
	Length    int     // echo length
	Count     int     // number of echoes
	Amplitude float64 // peak amplitude in ADC counts
	FreqHz    float64 // baseband frequency of the echo content
	PhaseRad  float64 // phase of the echo content
	Rate      float64 // sample rate in Hz
}

// Train returns the echo train as interleaved real/imaginary int32 pairs.
//
// Every sample inside an echo is nonzero and every sample outside is zero,
// so the layout is recoverable exactly from the nonzero mask.
func (e Echo) Train() []int32 {
	out := make([]int32, 2*e.Samples)
	for k := range e.Count {
		for i := range e.Length {
			idx := e.Offset + k*e.Period + i
			if idx < 0 || idx >= e.Samples {
				continue
			}
			re, im := e.sample(i)
			if re == 0 && im == 0 {
				re = 1
			}
			out[2*idx] = re
			out[2*idx+1] = im
		}
	}
	return out
}

func (e Echo) sample(i int) (int32, int32) {
	t := 0.0
	if e.Rate > 0 {
		t = float64(i) / e.Rate
	}
	// Hann-shaped echo envelope.
	w := 0.5 - 0.5*math.Cos(2*math.Pi*(float64(i)+0.5)/float64(e.Length))
	c := cmplx.Rect(e.Amplitude*w, 2*math.Pi*e.FreqHz*t+e.PhaseRad)
	return int32(math.Round(real(c))), int32(math.Round(imag(c)))
}

// Tone returns n samples of a complex exponential.
func Tone(freqHz, sampleRate, amplitude, phaseRad float64, n int) []complex128 {
	out := make([]complex128, n)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = cmplx.Rect(amplitude, step*float64(i)+phaseRad)
	}
	return out
}

// DeterministicNoise generates complex white noise with a fixed seed.
func DeterministicNoise(seed int64, amplitude float64, length int) []complex128 {
	out := make([]complex128, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		re := (rng.Float64()*2 - 1) * amplitude
		im := (rng.Float64()*2 - 1) * amplitude
		out[i] = complex(re, im)
	}
	return out
}

// DC generates a constant-valued series.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}
