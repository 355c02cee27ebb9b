package tokenizer

import (
	"errors"
	"fmt"
)

// SequenceEncoder converts raw text to fixed-length token IDs and attention masks
type SequenceEncoder interface {
	Tokenize(texts []string) (inputIDs [][]int64, attentionMasks [][]int64, err error)
}

// DefaultFilters are the characters stripped before splitting: punctuation plus tab and newline.
const DefaultFilters = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~\t\n"

// Mode selects the cell value of TextsToMatrix.
type Mode string

const (
	ModeBinary Mode = "binary"
	ModeCount  Mode = "count"
	ModeFreq   Mode = "freq"
	ModeTFIDF  Mode = "tfidf"
)

var (
	// ErrUnsupported indicates the tokenizer could not be initialized
	ErrUnsupported = errors.New("unsupported tokenizer configuration")
	ErrNotFitted   = errors.New("tokenizer has no vocabulary; fit it on some texts first")
	ErrBucketSpace = errors.New("hash bucket space must be greater than 1")
	ErrUnknownMode = errors.New("unknown matrix mode")
)

// ParseMode maps a mode name to a Mode. "tf-idf" is accepted as an alias.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "binary":
		return ModeBinary, nil
	case "count":
		return ModeCount, nil
	case "freq":
		return ModeFreq, nil
	case "tfidf", "tf-idf":
		return ModeTFIDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
}
