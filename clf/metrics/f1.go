// Package metrics scores binary and multi-class predictions.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Epsilon keeps precision and recall finite on empty batches.
const Epsilon = 1e-7

// roundedSum is Σ round(clip(x, 0, 1)) with halves rounding to even.
func roundedSum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += math.RoundToEven(math.Min(1, math.Max(0, x)))
	}
	return s
}

func truePositives(yTrue, yPred []float64) float64 {
	prod := make([]float64, len(yTrue))
	floats.MulTo(prod, yTrue, yPred)
	return roundedSum(prod)
}

// Precision is TP / (predicted positives + Epsilon). yTrue and yPred must
// have the same length.
func Precision(yTrue, yPred []float64) float64 {
	return truePositives(yTrue, yPred) / (roundedSum(yPred) + Epsilon)
}

// Recall is TP / (actual positives + Epsilon). yTrue and yPred must have the
// same length.
func Recall(yTrue, yPred []float64) float64 {
	return truePositives(yTrue, yPred) / (roundedSum(yTrue) + Epsilon)
}

// F1Score is the harmonic mean of Precision and Recall over a batch of
// binary targets and scores. The final combination is unguarded: it is NaN
// when both precision and recall are zero.
func F1Score(yTrue, yPred []float64) float64 {
	p := Precision(yTrue, yPred)
	r := Recall(yTrue, yPred)
	return 2 * (p * r) / (p + r)
}
