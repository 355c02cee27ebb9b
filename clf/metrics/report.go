package metrics

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	internal "github.com/ZanzyTHEbar/textclf/clf"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

var logger = internal.GetLogger().With().Str("component", "metrics").Logger()

var (
	ErrLengthMismatch = errors.New("true and predicted labels differ in length")
	ErrEmptyInput     = errors.New("no labels to evaluate")
)

// ClassScore is the breakdown for one label.
type ClassScore struct {
	Label     int     `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Averages aggregates ClassScore values across labels.
type Averages struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Report is a classification report over one set of predictions.
type Report struct {
	Accuracy float64      `json:"accuracy"`
	Classes  []ClassScore `json:"classes"`
	Macro    Averages     `json:"macro"`
	Weighted Averages     `json:"weighted"`
	Support  int          `json:"support"`
}

// Evaluate scores yPred against yTrue. Labels are the sorted union of both
// slices; a ratio with a zero denominator scores 0.
func Evaluate(yTrue, yPred []int) (*Report, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return nil, ErrEmptyInput
	}

	labels := lo.Uniq(append(slices.Clone(yTrue), yPred...))
	slices.Sort(labels)

	tp := make(map[int]int, len(labels))
	predicted := lo.CountValues(yPred)
	actual := lo.CountValues(yTrue)
	correct := 0
	for i, t := range yTrue {
		if t == yPred[i] {
			tp[t]++
			correct++
		}
	}

	r := &Report{
		Accuracy: float64(correct) / float64(len(yTrue)),
		Support:  len(yTrue),
	}
	precisions := make([]float64, len(labels))
	recalls := make([]float64, len(labels))
	f1s := make([]float64, len(labels))
	weights := make([]float64, len(labels))
	for i, label := range labels {
		p := safeDiv(float64(tp[label]), float64(predicted[label]))
		rec := safeDiv(float64(tp[label]), float64(actual[label]))
		f := safeDiv(2*p*rec, p+rec)
		r.Classes = append(r.Classes, ClassScore{Label: label, Precision: p, Recall: rec, F1: f, Support: actual[label]})
		precisions[i], recalls[i], f1s[i] = p, rec, f
		weights[i] = float64(actual[label])
	}

	r.Macro = Averages{
		Precision: stat.Mean(precisions, nil),
		Recall:    stat.Mean(recalls, nil),
		F1:        stat.Mean(f1s, nil),
	}
	r.Weighted = Averages{
		Precision: stat.Mean(precisions, weights),
		Recall:    stat.Mean(recalls, weights),
		F1:        stat.Mean(f1s, weights),
	}
	return r, nil
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Write prints the summary scores followed by the per-class table.
func (r *Report) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Accuracy: %.3f\nPrecision: %.3f\nRecall: %.3f\nF_score: %.3f\n\n",
		r.Accuracy, r.Weighted.Precision, r.Weighted.Recall, r.Weighted.F1); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "precision", "recall", "f1-score", "support"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)

	f2 := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	support := strconv.Itoa(r.Support)
	for _, c := range r.Classes {
		table.Append([]string{strconv.Itoa(c.Label), f2(c.Precision), f2(c.Recall), f2(c.F1), strconv.Itoa(c.Support)})
	}
	table.Append([]string{"accuracy", "", "", f2(r.Accuracy), support})
	table.Append([]string{"macro avg", f2(r.Macro.Precision), f2(r.Macro.Recall), f2(r.Macro.F1), support})
	table.Append([]string{"weighted avg", f2(r.Weighted.Precision), f2(r.Weighted.Recall), f2(r.Weighted.F1), support})
	table.Render()
	return nil
}

// PrintStatistics evaluates the predictions, writes the report to w and
// returns accuracy with the support-weighted precision, recall and F1.
func PrintStatistics(w io.Writer, yTrue, yPred []int) (accuracy, precision, recall, fScore float64, err error) {
	r, err := Evaluate(yTrue, yPred)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if err := r.Write(w); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to write report: %w", err)
	}
	logger.Info().
		Float64("accuracy", r.Accuracy).
		Float64("precision", r.Weighted.Precision).
		Float64("recall", r.Weighted.Recall).
		Float64("f_score", r.Weighted.F1).
		Msg("Evaluated predictions")
	return r.Accuracy, r.Weighted.Precision, r.Weighted.Recall, r.Weighted.F1, nil
}
