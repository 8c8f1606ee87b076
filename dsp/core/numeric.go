package core

import "math"

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// ClampInt limits value to the inclusive range [min, max].
// When min > max the bounds are swapped.
func ClampInt(value, min, max int) int {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// Finite returns x, or 0 when x is NaN or infinite.
func Finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}

	return x
}

// Mod returns x modulo m in [0, m). m must be positive.
func Mod(x, m int64) int64 {
	r := x % m
	if r < 0 {
		r += m
	}

	return r
}

// NextPowerOf2 returns the smallest power of two >= n. n <= 1 yields 1.
func NextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}

// IsPowerOf2 reports whether n is a positive power of two.
func IsPowerOf2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// MilliDegToRad converts milli-degrees to radians.
func MilliDegToRad(mdeg int64) float64 {
	return float64(mdeg) * math.Pi / 180000
}

// RadToMilliDeg converts radians to the nearest milli-degree.
func RadToMilliDeg(rad float64) int64 {
	return int64(math.Round(Finite(rad) * 180000 / math.Pi))
}
