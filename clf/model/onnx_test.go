//go:build onnx
// +build onnx

package model

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// TEXTCLF_ONNX_MODEL names an exported classifier taking [batch, features]
// float input; TEXTCLF_ONNX_FEATURES is its feature count.
func TestONNXScorer(t *testing.T) {
	path := os.Getenv("TEXTCLF_ONNX_MODEL")
	if path == "" {
		t.Skip("TEXTCLF_ONNX_MODEL not set")
	}
	s, err := NewONNXScorer(path)
	if err != nil {
		t.Skipf("onnx runtime unavailable: %v", err)
	}
	defer s.Close()

	features := 1
	if v := os.Getenv("TEXTCLF_ONNX_FEATURES"); v != "" {
		features, err = strconv.Atoi(v)
		require.NoError(t, err)
	}
	x := mat.NewDense(2, features, nil)
	scores, err := s.Score(x)
	require.NoError(t, err)
	rows, _ := scores.Dims()
	assert.Equal(t, 2, rows)
	assert.Len(t, Classes(scores), 2)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")
}

func TestONNXScorerMissingFile(t *testing.T) {
	_, err := NewONNXScorer("does-not-exist.onnx")
	assert.Error(t, err)
}
