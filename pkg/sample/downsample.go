package sample

// Decimate reduces values to at most maxPoints by picking evenly spaced elements.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// Returns the destination slice and the index step between picked elements
// (1 when no decimation was needed).
func Decimate(dst []float64, values []float64, maxPoints int) ([]float64, float64) {
	if maxPoints <= 0 || len(values) <= maxPoints {
		if cap(dst) >= len(values) {
			dst = dst[:len(values)]
		} else {
			dst = make([]float64, len(values))
		}
		copy(dst, values)
		return dst, 1
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]float64, 0, maxPoints)
	}

	step := float64(len(values)) / float64(maxPoints)
	for i := range maxPoints {
		idx := int(float64(i) * step)
		if idx < len(values) {
			dst = append(dst, values[idx])
		}
	}

	return dst, step
}
