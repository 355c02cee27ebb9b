// Package encoding turns train and test corpora into numeric form. Every
// encoder fits its vocabulary on the training corpus only and applies that
// frozen vocabulary to both corpora.
package encoding

import (
	"errors"
	"fmt"
	"math"

	"github.com/ZanzyTHEbar/textclf/clf/encoding/tokenizer"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
)

// Mode is the cell scoring of EncodeAsMatrix.
type Mode = tokenizer.Mode

const (
	ModeBinary = tokenizer.ModeBinary
	ModeCount  = tokenizer.ModeCount
	ModeFreq   = tokenizer.ModeFreq
	ModeTFIDF  = tokenizer.ModeTFIDF
)

// OneHotBucketFactor scales the vocabulary size into the hashing bucket space.
const OneHotBucketFactor = 1.5

var (
	ErrEmptyVocabulary = errors.New("training corpus produced an empty vocabulary")
	ErrUnknownMode     = tokenizer.ErrUnknownMode
)

// ParseMode maps "binary", "count", "freq" or "tfidf" to a Mode.
func ParseMode(name string) (Mode, error) { return tokenizer.ParseMode(name) }

// MatrixTokenizer strips punctuation, lowercases and splits on spaces.
func MatrixTokenizer() *tokenizer.Tokenizer {
	return tokenizer.New(tokenizer.Options{Filters: tokenizer.DefaultFilters, Lower: true, Split: " "})
}

// SequenceTokenizer keeps punctuation and case and splits on spaces.
func SequenceTokenizer() *tokenizer.Tokenizer {
	return tokenizer.New(tokenizer.Options{Split: " "})
}

// EncodeAsMatrix scores each text against the training vocabulary, one
// column per token.
func EncodeAsMatrix(train, test []string, mode Mode) (*mat.Dense, *mat.Dense, error) {
	xTrain, xTest, _, err := EncodeAsMatrixWithTokenizer(train, test, mode)
	return xTrain, xTest, err
}

// EncodeAsMatrixWithTokenizer is EncodeAsMatrix that also returns the fitted
// tokenizer, whose FeatureNames label the matrix columns.
func EncodeAsMatrixWithTokenizer(train, test []string, mode Mode) (*mat.Dense, *mat.Dense, *tokenizer.Tokenizer, error) {
	tok := MatrixTokenizer()
	tok.FitOnTexts(train)
	if tok.VocabSize() == 0 {
		return nil, nil, nil, ErrEmptyVocabulary
	}

	xTrain, err := tok.TextsToMatrix(train, mode)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode train matrix: %w", err)
	}
	xTest, err := tok.TextsToMatrix(test, mode)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode test matrix: %w", err)
	}
	return xTrain, xTest, tok, nil
}

// EncodeAsWordIndexes turns each text into its sequence of word indices and
// returns the training vocabulary size.
func EncodeAsWordIndexes(train, test []string) ([][]int, [][]int, int) {
	xTrain, xTest, tok := EncodeAsWordIndexesWithTokenizer(train, test)
	return xTrain, xTest, tok.VocabSize()
}

// EncodeAsWordIndexesWithTokenizer is EncodeAsWordIndexes that returns the
// fitted tokenizer in place of its vocabulary size.
func EncodeAsWordIndexesWithTokenizer(train, test []string) ([][]int, [][]int, *tokenizer.Tokenizer) {
	tok := SequenceTokenizer()
	tok.FitOnTexts(train)
	return tok.TextsToSequences(train), tok.TextsToSequences(test), tok
}

// BucketSpace is round(vocabSize * 1.5), halves rounding to even.
func BucketSpace(vocabSize int) int {
	return int(math.RoundToEven(float64(vocabSize) * OneHotBucketFactor))
}

// EncodeAsOneHot hashes every token into BucketSpace(vocabSize) buckets.
// Collisions are expected and left unresolved.
func EncodeAsOneHot(train, test []string) ([][]int, [][]int, int, error) {
	xTrain, xTest, tok, err := EncodeAsOneHotWithTokenizer(train, test)
	if err != nil {
		return nil, nil, 0, err
	}
	return xTrain, xTest, tok.VocabSize(), nil
}

// EncodeAsOneHotWithTokenizer is EncodeAsOneHot that returns the fitted
// tokenizer in place of its vocabulary size.
func EncodeAsOneHotWithTokenizer(train, test []string) ([][]int, [][]int, *tokenizer.Tokenizer, error) {
	tok := SequenceTokenizer()
	tok.FitOnTexts(train)
	vocabSize := tok.VocabSize()
	if vocabSize == 0 {
		return nil, nil, nil, ErrEmptyVocabulary
	}
	n := BucketSpace(vocabSize)

	hash := func(texts []string) ([][]int, error) {
		out := make([][]int, len(texts))
		for i, text := range texts {
			seq, err := tok.OneHot(text, n)
			if err != nil {
				return nil, err
			}
			out[i] = seq
		}
		return out, nil
	}

	xTrain, err := hash(train)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("hash train corpus: %w", err)
	}
	xTest, err := hash(test)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("hash test corpus: %w", err)
	}
	return xTrain, xTest, tok, nil
}

// BucketIndex maps every training word to the bucket EncodeAsOneHot hashes
// it into.
func BucketIndex(tok *tokenizer.Tokenizer) (map[string]int, error) {
	n := BucketSpace(tok.VocabSize())
	index := make(map[string]int, tok.VocabSize())
	for word := range tok.WordIndex() {
		bucket, err := tok.OneHot(word, n)
		if err != nil {
			return nil, err
		}
		if len(bucket) == 1 {
			index[word] = bucket[0]
		}
	}
	return index, nil
}

// EncodeAsWordPiece runs a pretrained subword encoder over both corpora.
func EncodeAsWordPiece(enc tokenizer.SequenceEncoder, train, test []string) ([][]int64, [][]int64, error) {
	xTrain, _, err := enc.Tokenize(train)
	if err != nil {
		return nil, nil, fmt.Errorf("encode train corpus: %w", err)
	}
	xTest, _, err := enc.Tokenize(test)
	if err != nil {
		return nil, nil, fmt.Errorf("encode test corpus: %w", err)
	}
	return xTrain, xTest, nil
}

// PadSequences left-pads with zeros, or keeps the last maxLen entries, so
// every row has length maxLen.
func PadSequences(seqs [][]int, maxLen int) [][]int {
	return lo.Map(seqs, func(seq []int, _ int) []int {
		row := make([]int, maxLen)
		if len(seq) >= maxLen {
			copy(row, seq[len(seq)-maxLen:])
		} else {
			copy(row[maxLen-len(seq):], seq)
		}
		return row
	})
}

// SequencesToMatrix stacks equal-length rows into a dense matrix.
func SequencesToMatrix(seqs [][]int) *mat.Dense {
	if len(seqs) == 0 || len(seqs[0]) == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(len(seqs), len(seqs[0]), nil)
	for i, seq := range seqs {
		for j, v := range seq {
			m.Set(i, j, float64(v))
		}
	}
	return m
}
