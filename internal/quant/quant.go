// Package quant maps raw occurrence counts onto the bounded log scale stored
// in every n-gram asset.
package quant

import "math"

// Max is the largest quantized frequency.
const Max = 10000

// Frequency returns min(Max, floor(log10(raw+1) * 1000)).
//
// The mapping is monotonic and lossy. Consumers must not try to recover raw
// counts from it.
func Frequency(raw uint64) uint16 {
	x := float64(raw) + 1

	q := math.Floor(math.Log10(x) * 1000)
	if q >= Max {
		return Max
	}

	// Log10 can land one ulp under an exact decade (log10(100) -> 1.999...).
	if math.Pow(10, (q+1)/1000) <= x {
		q++
	}

	if q < 0 {
		return 0
	}

	return uint16(q)
}
