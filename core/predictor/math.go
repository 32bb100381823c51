package predictor

import "math"

// sigmoid squashes a linear score into (0,1).
func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

// certainty rescales the distance of a probability from 0.5 into [0,1].
func certainty(p float64) float64 {
	return clamp01(math.Abs(p-0.5) * 2)
}
