// Package nmr holds the types shared by the NMR processing packages: the
// composable [Status] error flags and step addressing.
//
// The processing engine itself lives in package engine; the algorithmic
// parts (chunk detection, phase correction, envelope synthesis,
// evaluation) live in their own packages and do not depend on the engine.
package nmr
