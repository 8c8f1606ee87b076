// Package transform runs forward DFTs over batches of equally sized frames.
//
// Power-of-two lengths use an algo-fft plan; other lengths fall back to the
// mixed-radix transform of gonum's dsp/fourier package. A [Batch] is created
// once per frame length and reused for every call.
package transform
