// Package chunk detects the repeated window layout (the echoes of a
// multi-echo train) in raw acquisition samples.
//
// [Mask] reduces the usable steps to one nonzero mask and [Detect] infers
// an evenly spaced [Set] of windows from it. The same Set is shared by all
// steps of an acquisition.
package chunk
