// SPDX-License-Identifier: MIT
/*
Package bitint provides power-of-2 helpers for FFT sizing. Spectra are
computed over buffers zero-padded to the next power of 2, so these run on
every analysis call.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size. Exact powers of 2 are
// preserved; the size-1 before bits.Len keeps them from doubling.
// Non-positive input maps to 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. Powers of 2 have
// exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
