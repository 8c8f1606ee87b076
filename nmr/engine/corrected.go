package engine

// storeMode tells where the phase-corrected spectra live.
type storeMode uint8

const (
	// borrowed: corrected spectra are the DFT output itself.
	borrowed storeMode = iota
	// owned: corrected spectra live in a separate buffer.
	owned
)

func (m storeMode) String() string {
	if m == owned {
		return "owned"
	}
	return "borrowed"
}

// correctedStore holds the phase-corrected spectra of all steps.
type correctedStore struct {
	mode storeMode
	buf  []complex128 // nil while borrowed
}

// frames returns the buffer holding the corrected frames, given the DFT
// output.
func (c *correctedStore) frames(dft []complex128) []complex128 {
	if c.mode == borrowed {
		return dft
	}
	return c.buf
}

// own switches to a separate buffer of n values. It reports whether the
// buffer was switched or reallocated.
func (c *correctedStore) own(n int) bool {
	if c.mode == owned && len(c.buf) == n {
		return false
	}
	c.mode = owned
	c.buf = make([]complex128, n)
	return true
}

// borrow switches back to aliasing the DFT output. It reports whether the
// mode changed.
func (c *correctedStore) borrow() bool {
	if c.mode == borrowed {
		return false
	}
	c.mode = borrowed
	c.buf = nil
	return true
}
