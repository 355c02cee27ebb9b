package metrics

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestF1Score(t *testing.T) {
	yTrue := []float64{1, 0, 1, 1}
	yPred := []float64{0.9, 0.2, 0.4, 0.6}

	p := Precision(yTrue, yPred)
	r := Recall(yTrue, yPred)
	assert.InDelta(t, 1.0, p, 1e-6)
	assert.InDelta(t, 2.0/3, r, 1e-6)
	assert.InDelta(t, 0.8, F1Score(yTrue, yPred), 1e-6)
}

func TestF1ScoreNaNWithoutPositives(t *testing.T) {
	assert.True(t, math.IsNaN(F1Score([]float64{1, 1}, []float64{0, 0})))
	assert.True(t, math.IsNaN(F1Score([]float64{0, 0}, []float64{0, 0})))
	assert.True(t, math.IsNaN(F1Score(nil, nil)))
}

func TestF1ScoreClipsAndRoundsHalfToEven(t *testing.T) {
	// 0.5 rounds down to 0, so nothing is predicted positive
	assert.Equal(t, 0.0, Precision([]float64{1}, []float64{0.5}))
	// values above 1 and below 0 are clipped before rounding
	assert.InDelta(t, 1.0, Precision([]float64{1, 0}, []float64{1.7, -3}), 1e-6)
	assert.InDelta(t, 1.0, Recall([]float64{2, 0}, []float64{1, 0}), 1e-6)
}

func TestEvaluate(t *testing.T) {
	r, err := Evaluate([]int{0, 0, 1, 1, 1}, []int{0, 1, 1, 1, 0})
	require.NoError(t, err)

	assert.InDelta(t, 0.6, r.Accuracy, 1e-12)
	assert.Equal(t, 5, r.Support)
	require.Len(t, r.Classes, 2)

	assert.Equal(t, ClassScore{Label: 0, Precision: 0.5, Recall: 0.5, F1: 0.5, Support: 2}, r.Classes[0])
	assert.Equal(t, 1, r.Classes[1].Label)
	assert.InDelta(t, 2.0/3, r.Classes[1].Precision, 1e-12)
	assert.InDelta(t, 2.0/3, r.Classes[1].Recall, 1e-12)
	assert.Equal(t, 3, r.Classes[1].Support)

	assert.InDelta(t, 7.0/12, r.Macro.Precision, 1e-12)
	assert.InDelta(t, 0.6, r.Weighted.Precision, 1e-12)
	assert.InDelta(t, 0.6, r.Weighted.Recall, 1e-12)
	assert.InDelta(t, 0.6, r.Weighted.F1, 1e-12)
}

func TestEvaluateUnionOfLabels(t *testing.T) {
	r, err := Evaluate([]int{0, 0}, []int{0, 2})
	require.NoError(t, err)
	require.Len(t, r.Classes, 2)

	assert.Equal(t, ClassScore{Label: 2}, r.Classes[1], "a label only ever predicted scores zero")
	assert.InDelta(t, 1.0, r.Weighted.Precision, 1e-12)
	assert.InDelta(t, 0.5, r.Weighted.Recall, 1e-12)
	assert.InDelta(t, 0.5, r.Macro.Precision, 1e-12)
}

func TestEvaluateErrors(t *testing.T) {
	_, err := Evaluate([]int{1}, []int{1, 0})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = Evaluate(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestPrintStatistics(t *testing.T) {
	var buf bytes.Buffer
	acc, prec, rec, f, err := PrintStatistics(&buf, []int{0, 0, 1, 1, 1}, []int{0, 1, 1, 1, 0})
	require.NoError(t, err)

	assert.InDelta(t, 0.6, acc, 1e-12)
	assert.InDelta(t, 0.6, prec, 1e-12)
	assert.InDelta(t, 0.6, rec, 1e-12)
	assert.InDelta(t, 0.6, f, 1e-12)

	out := buf.String()
	assert.Contains(t, out, "Accuracy: 0.600\nPrecision: 0.600\nRecall: 0.600\nF_score: 0.600\n")
	assert.Contains(t, out, "f1-score")
	assert.Contains(t, out, "macro avg")
	assert.Contains(t, out, "weighted avg")

	_, _, _, _, err = PrintStatistics(&buf, []int{1}, nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}
