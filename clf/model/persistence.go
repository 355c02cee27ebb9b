package model

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"
)

const (
	weightsMagic   = "CLFW"
	weightsVersion = uint32(1)
)

type architectureJSON struct {
	ClassName string      `json:"class_name"`
	Name      string      `json:"name"`
	InputDim  int         `json:"input_dim"`
	Layers    []layerJSON `json:"layers"`
}

type layerJSON struct {
	ClassName  string     `json:"class_name"`
	Name       string     `json:"name"`
	Units      int        `json:"units"`
	Activation Activation `json:"activation"`
}

// MarshalJSON encodes the architecture only; weights live in a separate file.
func (m *Sequential) MarshalJSON() ([]byte, error) {
	arch := architectureJSON{ClassName: "Sequential", Name: m.Name, InputDim: m.InputDim}
	for _, l := range m.Layers {
		arch.Layers = append(arch.Layers, layerJSON{
			ClassName:  "Dense",
			Name:       l.Name,
			Units:      l.Units,
			Activation: l.Activation,
		})
	}
	return json.MarshalIndent(arch, "", "  ")
}

// UnmarshalJSON rebuilds the layer stack with zeroed weights.
func (m *Sequential) UnmarshalJSON(data []byte) error {
	var arch architectureJSON
	if err := json.Unmarshal(data, &arch); err != nil {
		return fmt.Errorf("error unmarshalling architecture: %w", err)
	}
	if arch.ClassName != "Sequential" {
		return fmt.Errorf("unsupported model class %q", arch.ClassName)
	}
	specs := make([]LayerSpec, len(arch.Layers))
	for i, l := range arch.Layers {
		if l.ClassName != "Dense" {
			return fmt.Errorf("layer %d: unsupported layer class %q", i, l.ClassName)
		}
		specs[i] = LayerSpec{Units: l.Units, Activation: l.Activation}
	}
	built, err := newSkeleton(arch.Name, arch.InputDim, specs)
	if err != nil {
		return err
	}
	for i, l := range arch.Layers {
		if l.Name != "" {
			built.Layers[i].Name = l.Name
		}
	}
	*m = *built
	return nil
}

// SaveModel writes the architecture to archPath and the weights to
// weightsPath. The two writes are independent: a failure between them
// leaves a new architecture next to old or missing weights.
func SaveModel(m *Sequential, archPath, weightsPath string) error {
	arch, err := m.MarshalJSON()
	if err != nil {
		return fmt.Errorf("error marshalling architecture: %w", err)
	}
	if err := os.WriteFile(archPath, arch, 0o644); err != nil {
		return fmt.Errorf("failed to write architecture %s: %w", archPath, err)
	}

	f, err := os.Create(weightsPath)
	if err != nil {
		return fmt.Errorf("failed to create weights file %s: %w", weightsPath, err)
	}
	if err := writeWeightsFile(f, m); err != nil {
		return fmt.Errorf("failed to write weights %s: %w", weightsPath, err)
	}

	logger.Info().Str("architecture", archPath).Str("weights", weightsPath).Msg("Saved model")
	return nil
}

// writeWeightsFile writes m through a buffer and always closes f. A close
// error is reported like a write error.
func writeWeightsFile(f io.WriteCloser, m *Sequential) error {
	w := bufio.NewWriter(f)
	if err := writeWeights(w, m); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Weights file layout: "CLFW", uint32 version, uint32 tensor count (little
// endian), then each layer's weights and bias in gonum's binary matrix format.
func writeWeights(w io.Writer, m *Sequential) error {
	if _, err := io.WriteString(w, weightsMagic); err != nil {
		return err
	}
	header := []uint32{weightsVersion, uint32(2 * len(m.Layers))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	for _, l := range m.Layers {
		if _, err := l.Weights.MarshalBinaryTo(w); err != nil {
			return fmt.Errorf("layer %s weights: %w", l.Name, err)
		}
		if _, err := l.Bias.MarshalBinaryTo(w); err != nil {
			return fmt.Errorf("layer %s bias: %w", l.Name, err)
		}
	}
	return nil
}

// LoadModel rebuilds the architecture from archPath and fills it with the
// weights stored in weightsPath.
func LoadModel(archPath, weightsPath string) (*Sequential, error) {
	arch, err := os.ReadFile(archPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read architecture %s: %w", archPath, err)
	}
	m := &Sequential{}
	if err := m.UnmarshalJSON(arch); err != nil {
		return nil, fmt.Errorf("invalid architecture %s: %w", archPath, err)
	}

	f, err := os.Open(weightsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open weights %s: %w", weightsPath, err)
	}
	defer f.Close()

	if err := readWeights(bufio.NewReader(f), m); err != nil {
		return nil, fmt.Errorf("failed to load weights %s: %w", weightsPath, err)
	}

	logger.Debug().Str("architecture", archPath).Str("weights", weightsPath).Msg("Loaded model")
	return m, nil
}

func readWeights(r io.Reader, m *Sequential) error {
	magic := make([]byte, len(weightsMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != weightsMagic {
		return ErrBadWeightsFile
	}
	var header [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("%w: truncated header", ErrBadWeightsFile)
	}
	if header[0] != weightsVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrBadWeightsFile, header[0])
	}
	if want := uint32(2 * len(m.Layers)); header[1] != want {
		return fmt.Errorf("%w: file holds %d tensors, architecture needs %d", ErrShapeMismatch, header[1], want)
	}

	for _, l := range m.Layers {
		w, err := readTensor(r, l.Weights)
		if err != nil {
			return fmt.Errorf("layer %s weights: %w", l.Name, err)
		}
		b, err := readTensor(r, l.Bias)
		if err != nil {
			return fmt.Errorf("layer %s bias: %w", l.Name, err)
		}
		l.Weights, l.Bias = w, b
	}
	return nil
}

// readTensor decodes the next matrix and checks it against like's shape.
func readTensor(r io.Reader, like *mat.Dense) (*mat.Dense, error) {
	var t mat.Dense
	if _, err := t.UnmarshalBinaryFrom(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadWeightsFile, err)
	}
	gr, gc := t.Dims()
	wr, wc := like.Dims()
	if gr != wr || gc != wc {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", ErrShapeMismatch, gr, gc, wr, wc)
	}
	return &t, nil
}
