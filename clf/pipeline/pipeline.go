// Package pipeline runs the configured preparation, persistence, evaluation
// and plotting steps end to end.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	internal "github.com/ZanzyTHEbar/textclf/clf"
	"github.com/ZanzyTHEbar/textclf/clf/config"
	"github.com/ZanzyTHEbar/textclf/clf/dataset"
	"github.com/ZanzyTHEbar/textclf/clf/encoding"
	"github.com/ZanzyTHEbar/textclf/clf/encoding/tokenizer"
	"github.com/ZanzyTHEbar/textclf/clf/metrics"
	"github.com/ZanzyTHEbar/textclf/clf/model"
	"github.com/ZanzyTHEbar/textclf/clf/plot"
	"github.com/ZanzyTHEbar/textclf/clf/registry"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
)

var logger = internal.GetLogger().With().Str("component", "pipeline").Logger()

// Encoding kinds accepted in encoding.kind.
const (
	KindMatrix    = "matrix"
	KindIndexes   = "indexes"
	KindOneHot    = "onehot"
	KindWordPiece = "wordpiece"
)

// Prepared holds both corpora and their encoded form.
type Prepared struct {
	Train, Test *dataset.Corpus
	// ClassRatio is zero when the training labels hold a single class.
	ClassRatio [2]float64
	Kind       string

	// XTrain and XTest are the matrix encoding, or the padded index
	// sequences for the indexes and onehot kinds.
	XTrain, XTest *mat.Dense
	// SeqTrain and SeqTest are the unpadded index sequences.
	SeqTrain, SeqTest [][]int
	// IDsTrain and IDsTest are WordPiece ids padded to MaxLen.
	IDsTrain, IDsTest [][]int64

	VocabSize int
	// MaxLen is the padded sequence length. Zero in the config falls back to
	// the length MaxLenInfo settles on.
	MaxLen int
	// FeatureNames labels matrix columns, FeatureNames[j] for column j.
	FeatureNames []string
	// VocabPath is where the word index was written, empty for wordpiece.
	VocabPath string
}

// Pipeline is safe to reuse across runs; it holds no per-run state.
type Pipeline struct {
	cfg   *config.Config
	store registry.Store
}

// New builds a pipeline. A nil store skips registration.
func New(cfg *config.Config, store registry.Store) *Pipeline {
	return &Pipeline{cfg: cfg, store: store}
}

// Open builds a pipeline backed by the registry at cfg.Registry.DSN.
func Open(cfg *config.Config) (*Pipeline, error) {
	reg, err := registry.Open(cfg.Registry.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	return New(cfg, reg), nil
}

// Close releases the store, if any.
func (p *Pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// Split loads src, shuffles it with the configured seed and writes the
// first fraction to the train path and the rest to the test path.
func (p *Pipeline) Split(src string, fraction float64) error {
	corpus, err := dataset.LoadData(src, true, p.cfg.Dataset.Seed)
	if err != nil {
		return err
	}
	train, test, err := corpus.Split(fraction)
	if err != nil {
		return err
	}
	if err := dataset.SaveAsDataset(lo.ToSlicePtr(train.Texts), train.Labels, p.cfg.Dataset.TrainPath); err != nil {
		return fmt.Errorf("failed to write train split: %w", err)
	}
	if err := dataset.SaveAsDataset(lo.ToSlicePtr(test.Texts), test.Labels, p.cfg.Dataset.TestPath); err != nil {
		return fmt.Errorf("failed to write test split: %w", err)
	}
	logger.Info().Int("train", train.Len()).Int("test", test.Len()).Msg("Split dataset")
	return nil
}

// Prepare loads the configured corpora and encodes them.
func (p *Pipeline) Prepare() (*Prepared, error) {
	ds := p.cfg.Dataset
	train, err := dataset.LoadData(ds.TrainPath, ds.Shuffle, ds.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to load train set: %w", err)
	}
	test, err := dataset.LoadData(ds.TestPath, ds.Shuffle, ds.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to load test set: %w", err)
	}

	prep := &Prepared{Train: train, Test: test, Kind: p.cfg.Encoding.Kind, MaxLen: p.cfg.Encoding.MaxLen}
	prep.ClassRatio, err = dataset.ClassesRatio(train.Labels)
	if errors.Is(err, dataset.ErrSingleClass) {
		logger.Warn().Err(err).Msg("Training labels hold a single class")
	} else if err != nil {
		return nil, err
	}

	switch prep.Kind {
	case KindMatrix:
		err = p.encodeMatrix(prep)
	case KindIndexes, KindOneHot:
		err = p.encodeSequences(prep)
	case KindWordPiece:
		err = p.encodeWordPiece(prep)
	default:
		err = fmt.Errorf("unknown encoding kind %q", prep.Kind)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().Str("kind", prep.Kind).Int("vocab", prep.VocabSize).Msg("Prepared corpora")
	return prep, nil
}

func (p *Pipeline) encodeMatrix(prep *Prepared) error {
	mode, err := encoding.ParseMode(p.cfg.Encoding.Mode)
	if err != nil {
		return err
	}
	var tok *tokenizer.Tokenizer
	prep.XTrain, prep.XTest, tok, err = encoding.EncodeAsMatrixWithTokenizer(prep.Train.Texts, prep.Test.Texts, mode)
	if err != nil {
		return err
	}
	prep.VocabSize = tok.VocabSize()
	prep.FeatureNames = tok.FeatureNames()
	return p.saveVocabulary(prep, tok.WordIndex())
}

func (p *Pipeline) encodeSequences(prep *Prepared) error {
	var (
		tok   *tokenizer.Tokenizer
		index map[string]int
		err   error
	)
	if prep.Kind == KindOneHot {
		prep.SeqTrain, prep.SeqTest, tok, err = encoding.EncodeAsOneHotWithTokenizer(prep.Train.Texts, prep.Test.Texts)
		if err != nil {
			return err
		}
		// The model sees bucket ids, so the saved index maps words to buckets.
		if index, err = encoding.BucketIndex(tok); err != nil {
			return err
		}
	} else {
		prep.SeqTrain, prep.SeqTest, tok = encoding.EncodeAsWordIndexesWithTokenizer(prep.Train.Texts, prep.Test.Texts)
		if tok.VocabSize() == 0 {
			return encoding.ErrEmptyVocabulary
		}
		index = tok.WordIndex()
	}
	prep.VocabSize = tok.VocabSize()
	prep.FeatureNames = tok.FeatureNames()

	chosen := dataset.MaxLenInfo(prep.SeqTrain)
	if prep.MaxLen <= 0 {
		prep.MaxLen = chosen
	}
	prep.XTrain = encoding.SequencesToMatrix(encoding.PadSequences(prep.SeqTrain, prep.MaxLen))
	prep.XTest = encoding.SequencesToMatrix(encoding.PadSequences(prep.SeqTest, prep.MaxLen))
	return p.saveVocabulary(prep, index)
}

func (p *Pipeline) encodeWordPiece(prep *Prepared) error {
	if prep.MaxLen <= 0 {
		prep.MaxLen = dataset.ChosenMaxLen
	}
	wp, err := tokenizer.NewWordPiece(p.cfg.Encoding.WordPieceVocab, prep.MaxLen)
	if err != nil {
		return fmt.Errorf("failed to load wordpiece vocabulary: %w", err)
	}
	prep.IDsTrain, prep.IDsTest, err = encoding.EncodeAsWordPiece(wp, prep.Train.Texts, prep.Test.Texts)
	return err
}

// saveVocabulary writes the word index next to the model artifacts.
func (p *Pipeline) saveVocabulary(prep *Prepared, wordIndex map[string]int) error {
	if err := os.MkdirAll(p.cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	index := lo.MapValues(wordIndex, func(v int, _ string) any { return v })
	prep.VocabPath = filepath.Join(p.cfg.Output.Dir, internal.DefaultVocabFile)
	if err := dataset.SaveDictionary(index, prep.VocabPath); err != nil {
		return fmt.Errorf("failed to save vocabulary: %w", err)
	}
	return nil
}

// Persist saves m to the configured artifact paths and registers it.
func (p *Pipeline) Persist(name string, m *model.Sequential) (*registry.ModelRecord, error) {
	if err := os.MkdirAll(p.cfg.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	arch, weights := p.cfg.ArchPath(), p.cfg.WeightsPath()
	if err := model.SaveModel(m, arch, weights); err != nil {
		return nil, err
	}
	if p.store == nil {
		return &registry.ModelRecord{Name: name, ArchPath: arch, WeightsPath: weights}, nil
	}
	return p.store.AddModel(name, arch, weights)
}

// Load reads the model at the configured artifact paths.
func (p *Pipeline) Load() (*model.Sequential, error) {
	return model.LoadModel(p.cfg.ArchPath(), p.cfg.WeightsPath())
}

// ErrNoONNXModel is returned by ScoreONNX when output.onnxFile is unset.
var ErrNoONNXModel = errors.New("no onnx model configured")

// ScoreONNX runs x through the configured exported classifier and returns
// the predicted classes.
func (p *Pipeline) ScoreONNX(x *mat.Dense) ([]int, error) {
	path := p.cfg.ONNXPath()
	if path == "" {
		return nil, ErrNoONNXModel
	}
	s, err := model.NewONNXScorer(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	scores, err := s.Score(x)
	if err != nil {
		return nil, err
	}
	return model.Classes(scores), nil
}

// Evaluate scores yPred against yTrue, prints the report to w when w is not
// nil and records it against modelID when a store is set.
func (p *Pipeline) Evaluate(w io.Writer, modelID uuid.UUID, yTrue, yPred []int) (*metrics.Report, error) {
	report, err := metrics.Evaluate(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if w != nil {
		if err := report.Write(w); err != nil {
			return nil, fmt.Errorf("failed to write report: %w", err)
		}
	}
	if p.store != nil && modelID != uuid.Nil {
		if _, err := p.store.RecordEvaluation(modelID, report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// Plots writes the training curve and the top-feature chart under the
// output directory. A nil history or classifier skips its figure.
func (p *Pipeline) Plots(h model.History, c plot.LinearClassifier, names []string) ([]string, error) {
	var written []string
	if h != nil {
		dir := filepath.Join(p.cfg.Output.Dir, internal.DefaultPlotsDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
		path := filepath.Join(dir, internal.DefaultTrainingPlot)
		if err := plot.SaveTrainingStatistics(h, path); err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	if c != nil {
		path, err := plot.SaveCoefficients(c, names, p.cfg.Output.Dir, p.cfg.Plot.TopFeatures)
		if err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}
