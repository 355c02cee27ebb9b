//go:build onnx
// +build onnx

package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gonum.org/v1/gonum/mat"
)

// ONNXScorer runs an exported classifier that takes one float input of shape
// [batch, features] and yields one float output of shape [batch, classes].
type ONNXScorer struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
}

// NewONNXScorer opens modelPath, picking its first float input and output.
func NewONNXScorer(modelPath string) (*ONNXScorer, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("onnx model path is required")
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnx runtime: %w", err)
		}
	}
	ins, outs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("get IO info: %w", err)
	}

	s := &ONNXScorer{}
	for _, ii := range ins {
		if ii.DataType == ort.TensorElementDataTypeFloat {
			s.inputName = ii.Name
			break
		}
	}
	for _, oi := range outs {
		if oi.DataType == ort.TensorElementDataTypeFloat {
			s.outputName = oi.Name
			break
		}
	}
	if s.inputName == "" || s.outputName == "" {
		return nil, fmt.Errorf("could not determine ONNX float input/output in %s", modelPath)
	}

	s.session, err = ort.NewDynamicAdvancedSession(modelPath, []string{s.inputName}, []string{s.outputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	logger.Debug().Str("model", modelPath).Str("input", s.inputName).Str("output", s.outputName).Msg("Opened ONNX scorer")
	return s, nil
}

// Score runs x through the session and returns the raw output scores.
func (s *ONNXScorer) Score(x *mat.Dense) (*mat.Dense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, cols := x.Dims()
	flat := make([]float32, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for _, v := range x.RawRowView(i) {
			flat = append(flat, float32(v))
		}
	}
	in, err := ort.NewTensor(ort.NewShape(int64(rows), int64(cols)), flat)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer in.Destroy()

	outs := make([]ort.Value, 1)
	if err := s.session.Run([]ort.Value{in}, outs); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	defer func() {
		if outs[0] != nil {
			outs[0].Destroy()
		}
	}()

	t, ok := outs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type")
	}
	shape := t.GetShape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("unexpected output rank %d", len(shape))
	}
	data := t.GetData()
	out := mat.NewDense(int(shape[0]), int(shape[1]), nil)
	raw := out.RawMatrix().Data
	for i, v := range data {
		raw[i] = float64(v)
	}
	return out, nil
}

// Close releases the session.
func (s *ONNXScorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}
