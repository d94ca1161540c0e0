package sketch

import "math"

// ANIFromContainment estimates average nucleotide identity from a containment
// fraction as c^(1/ksize).
func ANIFromContainment(containment float64, ksize uint32) float64 {
	switch {
	case containment <= 0:
		return 0
	case containment >= 1:
		return 1
	case ksize == 0:
		return 0
	}
	return math.Pow(containment, 1/float64(ksize))
}
