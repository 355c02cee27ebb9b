// Package plot builds the training and feature figures. Builders return the
// figure; the Save helpers write it to disk.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	internal "github.com/ZanzyTHEbar/textclf/clf"
	"github.com/ZanzyTHEbar/textclf/clf/model"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var logger = internal.GetLogger().With().Str("component", "plot").Logger()

var (
	ErrMissingSeries = errors.New("history is missing a series")
	ErrNamesMismatch = errors.New("feature names do not match coefficients")
)

var (
	red   = color.RGBA{R: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	black = color.RGBA{A: 255}
)

// Figure sizes.
var (
	TrainingWidth  = 6.4 * vg.Inch
	TrainingHeight = 4.8 * vg.Inch
	FeatureWidth   = 15 * vg.Inch
	FeatureHeight  = 5 * vg.Inch
)

// LinearClassifier exposes the per-feature coefficients of a fitted model.
type LinearClassifier interface {
	Coef() ([]float64, error)
}

func series(values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	return pts
}

// TrainingStatistics plots the "acc" and "loss" series of h per epoch.
func TrainingStatistics(h model.History) (*plot.Plot, error) {
	acc, ok := h["acc"]
	if !ok {
		return nil, fmt.Errorf("%w: acc", ErrMissingSeries)
	}
	loss, ok := h["loss"]
	if !ok {
		return nil, fmt.Errorf("%w: loss", ErrMissingSeries)
	}

	p := plot.New()
	p.Title.Text = "Model Accuracy and Loss"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Value"

	accLine, err := plotter.NewLine(series(acc))
	if err != nil {
		return nil, fmt.Errorf("accuracy line: %w", err)
	}
	accLine.LineStyle.Color = black
	accLine.LineStyle.Width = vg.Points(1.5)

	lossLine, err := plotter.NewLine(series(loss))
	if err != nil {
		return nil, fmt.Errorf("loss line: %w", err)
	}
	lossLine.LineStyle.Color = red
	lossLine.LineStyle.Width = vg.Points(1.5)
	lossLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}

	p.Add(accLine, lossLine)
	p.Legend.Add("Training Accuracy", accLine)
	p.Legend.Add("Training Loss", lossLine)
	p.Legend.Top = false
	p.Legend.YOffs = TrainingHeight / 3
	return p, nil
}

// TopCoefficients returns the indices of the topN most negative coefficients
// followed by the topN most positive ones, both in ascending order. Ties keep
// feature order. With topN larger than the feature count both halves span
// every feature.
func TopCoefficients(coef []float64, topN int) []int {
	order := make([]int, len(coef))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return coef[order[a]] < coef[order[b]] })

	n := min(topN, len(order))
	top := make([]int, 0, 2*n)
	top = append(top, order[:n]...)
	return append(top, order[len(order)-n:]...)
}

// Coefficients draws one bar per selected feature, red below zero and blue
// otherwise, labelled with its name.
func Coefficients(coef []float64, names []string, topN int) (*plot.Plot, error) {
	if len(names) != len(coef) {
		return nil, fmt.Errorf("%w: %d names for %d coefficients", ErrNamesMismatch, len(names), len(coef))
	}
	if topN < 1 {
		return nil, fmt.Errorf("top features must be positive, got %d", topN)
	}
	if len(coef) == 0 {
		return nil, errors.New("no coefficients to plot")
	}

	p := plot.New()
	p.Title.Text = "Visualising Top Features"
	p.Y.Label.Text = "Coefficient Value"

	top := TopCoefficients(coef, topN)
	labels := make([]string, len(top))
	width := vg.Points(math.Max(4, float64(FeatureWidth)/float64(len(top))*0.6))
	for i, idx := range top {
		bar, err := plotter.NewBarChart(plotter.Values{coef[idx]}, width)
		if err != nil {
			return nil, fmt.Errorf("bar %s: %w", names[idx], err)
		}
		bar.XMin = float64(i)
		bar.LineStyle.Width = 0
		bar.Color = blue
		if coef[idx] < 0 {
			bar.Color = red
		}
		p.Add(bar)
		labels[i] = names[idx]
	}

	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 6
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Add(plotter.NewGrid())
	return p, nil
}

// SaveTrainingStatistics renders TrainingStatistics to path; the extension
// picks the image format.
func SaveTrainingStatistics(h model.History, path string) error {
	p, err := TrainingStatistics(h)
	if err != nil {
		return err
	}
	if err := p.Save(TrainingWidth, TrainingHeight, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	logger.Info().Str("path", path).Int("epochs", h.Epochs()).Msg("Saved training statistics")
	return nil
}

// SaveCoefficients renders the top features of c into dir/plots and returns
// the written path.
func SaveCoefficients(c LinearClassifier, names []string, dir string, topN int) (string, error) {
	coef, err := c.Coef()
	if err != nil {
		return "", fmt.Errorf("failed to read coefficients: %w", err)
	}
	p, err := Coefficients(coef, names, topN)
	if err != nil {
		return "", err
	}

	plotsDir := filepath.Join(dir, internal.DefaultPlotsDir)
	if err := os.MkdirAll(plotsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", plotsDir, err)
	}
	path := filepath.Join(plotsDir, internal.DefaultFeaturePlot)
	if err := p.Save(FeatureWidth, FeatureHeight, path); err != nil {
		return "", fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	logger.Info().Str("path", path).Int("features", len(coef)).Msg("Saved top features")
	return path, nil
}
