// Package interp provides interpolation on uniformly sampled curves.
//
//   - [Linear2]: 2-point linear interpolation
//   - [Grid]:    uniform axis mapping (start + i*step) with fractional lookup
//   - [Grid.Linear]: range-checked linear interpolation of a sampled curve
package interp
