package dataset

import (
	"fmt"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ChosenMaxLen is the sequence length MaxLenInfo settles on.
const ChosenMaxLen = 30

// MaxLenInfo logs the mean and maximum length of items and returns
// ChosenMaxLen. The statistics are informational only.
func MaxLenInfo[T any](items [][]T) int {
	if len(items) > 0 {
		lengths := lo.Map(items, func(item []T, _ int) float64 { return float64(len(item)) })
		logger.Info().
			Float64("mean", stat.Mean(lengths, nil)).
			Int("max", int(floats.Max(lengths))).
			Msg("Sequence length statistics")
	}
	logger.Info().Int("chosen", ChosenMaxLen).Msg("Chosen max sequence length")
	return ChosenMaxLen
}

// ClassesRatio returns class-imbalance weights for binary labels:
// [majority/negatives, majority/positives].
func ClassesRatio(labels []int) ([2]float64, error) {
	positive := lo.Sum(labels)
	negative := len(labels) - positive
	if positive == 0 || negative == 0 {
		return [2]float64{}, fmt.Errorf("%w: %d positive, %d negative", ErrSingleClass, positive, negative)
	}

	majority := float64(max(positive, negative))
	ratio := [2]float64{majority / float64(negative), majority / float64(positive)}
	logger.Info().Floats64("ratio", ratio[:]).Msg("Class ratio")
	return ratio, nil
}
