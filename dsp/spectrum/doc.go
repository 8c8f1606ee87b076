// Package spectrum provides helpers for complex spectra produced by a DFT.
//
// The package does not implement the transform itself (see package
// transform). It operates on complex bins and provides magnitude
// extraction, phase rotation and centre-frequency reordering.
package spectrum
