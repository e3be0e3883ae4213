package calculator

import "math"

// Mean returns the arithmetic mean of the non-NaN values, NaN if there are none.
func Mean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// SampleStdDev returns the n-1 standard deviation of the non-NaN values,
// NaN with fewer than two of them.
func SampleStdDev(values []float64) float64 {
	m := Mean(values)
	sq, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		d := v - m
		sq += d * d
		n++
	}
	if n < 2 {
		return math.NaN()
	}
	return math.Sqrt(sq / float64(n-1))
}

// PctChange returns the fractional change between consecutive values.
// Index 0 is NaN.
func PctChange(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i]/values[i-1] - 1
	}
	return out
}
