//go:build !onnx
// +build !onnx

package model

import "gonum.org/v1/gonum/mat"

// ONNXScorer is a stub used when built without the "onnx" build tag.
type ONNXScorer struct{}

func NewONNXScorer(modelPath string) (*ONNXScorer, error) { return nil, ErrONNXUnavailable }

func (s *ONNXScorer) Score(x *mat.Dense) (*mat.Dense, error) { return nil, ErrONNXUnavailable }

func (s *ONNXScorer) Close() error { return nil }
