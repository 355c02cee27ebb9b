package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	internal "github.com/ZanzyTHEbar/textclf/clf"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var logger = internal.GetLogger().With().Str("component", "model").Logger()

var (
	ErrShapeMismatch     = errors.New("weights do not match the architecture")
	ErrBadWeightsFile    = errors.New("not a weights file")
	ErrUnknownActivation = errors.New("unknown activation")
	ErrNotLinear         = errors.New("model is not a single-unit linear layer")
	ErrONNXUnavailable   = errors.New("onnx scorer not available: build with -tags onnx")
)

// Activation names the non-linearity applied after a Dense layer.
type Activation string

const (
	Linear  Activation = "linear"
	ReLU    Activation = "relu"
	Sigmoid Activation = "sigmoid"
	Tanh    Activation = "tanh"
	Softmax Activation = "softmax"
)

func (a Activation) valid() bool {
	switch a {
	case Linear, ReLU, Sigmoid, Tanh, Softmax:
		return true
	}
	return false
}

// LayerSpec describes a Dense layer to build.
type LayerSpec struct {
	Units      int
	Activation Activation
}

// Dense is a fully connected layer: Weights is in×units, Bias is 1×units.
type Dense struct {
	Name       string
	Units      int
	Activation Activation
	Weights    *mat.Dense
	Bias       *mat.Dense
}

// Sequential is a stack of Dense layers.
type Sequential struct {
	Name     string
	InputDim int
	Layers   []*Dense
}

// NewSequential builds a model with Glorot-uniform weights drawn from seed
// and zero biases.
func NewSequential(name string, inputDim int, seed int64, specs ...LayerSpec) (*Sequential, error) {
	m, err := newSkeleton(name, inputDim, specs)
	if err != nil {
		return nil, err
	}
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)+1))
	for _, l := range m.Layers {
		in, out := l.Weights.Dims()
		limit := math.Sqrt(6 / float64(in+out))
		data := l.Weights.RawMatrix().Data
		for i := range data {
			data[i] = (2*r.Float64() - 1) * limit
		}
	}
	return m, nil
}

// newSkeleton allocates zeroed layers for specs.
func newSkeleton(name string, inputDim int, specs []LayerSpec) (*Sequential, error) {
	if inputDim <= 0 {
		return nil, fmt.Errorf("input dimension must be positive, got %d", inputDim)
	}
	if len(specs) == 0 {
		return nil, errors.New("a model needs at least one layer")
	}
	m := &Sequential{Name: name, InputDim: inputDim}
	in := inputDim
	for i, s := range specs {
		if s.Units <= 0 {
			return nil, fmt.Errorf("layer %d: units must be positive, got %d", i, s.Units)
		}
		if s.Activation == "" {
			s.Activation = Linear
		}
		if !s.Activation.valid() {
			return nil, fmt.Errorf("layer %d: %w %q", i, ErrUnknownActivation, s.Activation)
		}
		m.Layers = append(m.Layers, &Dense{
			Name:       fmt.Sprintf("dense_%d", i+1),
			Units:      s.Units,
			Activation: s.Activation,
			Weights:    mat.NewDense(in, s.Units, nil),
			Bias:       mat.NewDense(1, s.Units, nil),
		})
		in = s.Units
	}
	return m, nil
}

// OutputDim is the unit count of the last layer.
func (m *Sequential) OutputDim() int { return m.Layers[len(m.Layers)-1].Units }

// Predict runs x (rows are examples) through every layer.
func (m *Sequential) Predict(x mat.Matrix) (*mat.Dense, error) {
	_, c := x.Dims()
	if c != m.InputDim {
		return nil, fmt.Errorf("%w: input has %d columns, model expects %d", ErrShapeMismatch, c, m.InputDim)
	}
	cur := x
	var out *mat.Dense
	for _, l := range m.Layers {
		out = l.forward(cur)
		cur = out
	}
	return out, nil
}

func (l *Dense) forward(x mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(x, l.Weights)
	bias := l.Bias.RawRowView(0)
	r, _ := out.Dims()
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		floats.Add(row, bias)
		activate(l.Activation, row)
	}
	return &out
}

func activate(a Activation, row []float64) {
	switch a {
	case ReLU:
		for i, v := range row {
			row[i] = math.Max(0, v)
		}
	case Sigmoid:
		for i, v := range row {
			row[i] = 1 / (1 + math.Exp(-v))
		}
	case Tanh:
		for i, v := range row {
			row[i] = math.Tanh(v)
		}
	case Softmax:
		maxV := floats.Max(row)
		for i, v := range row {
			row[i] = math.Exp(v - maxV)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
}

// Coef returns the weight vector of a single-layer, single-unit model, the
// coefficients of a linear classifier.
func (m *Sequential) Coef() ([]float64, error) {
	if len(m.Layers) != 1 || m.Layers[0].Units != 1 {
		return nil, ErrNotLinear
	}
	return mat.Col(nil, 0, m.Layers[0].Weights), nil
}

// Classes thresholds a single-unit output at 0.5, or takes the argmax of a
// multi-unit output.
func Classes(scores mat.Matrix) []int {
	r, c := scores.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		if c == 1 {
			if scores.At(i, 0) >= 0.5 {
				out[i] = 1
			}
			continue
		}
		out[i] = floats.MaxIdx(mat.Row(nil, i, scores))
	}
	return out
}

// History holds per-epoch values keyed by metric name ("acc", "loss", ...).
type History map[string][]float64

// Append records value as the next epoch of metric.
func (h History) Append(metric string, value float64) {
	h[metric] = append(h[metric], value)
}

// Epochs is the length of the longest series.
func (h History) Epochs() int {
	n := 0
	for _, v := range h {
		n = max(n, len(v))
	}
	return n
}
