package tokenizer

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
	"github.com/sugarme/tokenizer/processor"
)

const (
	clsToken = "[CLS]"
	sepToken = "[SEP]"
	unkToken = "[UNK]"
)

// WordPiece wraps a sugarme BERT WordPiece tokenizer built from a pretrained
// vocab.txt. Output rows are padded or truncated to maxSeqLen.
type WordPiece struct {
	t         *tk.Tokenizer
	maxSeqLen int
	clsID     int
	sepID     int
}

// NewWordPiece loads vocabPath (a vocab.txt, or a directory holding one).
func NewWordPiece(vocabPath string, maxSeqLen int) (*WordPiece, error) {
	if maxSeqLen < 2 {
		return nil, fmt.Errorf("%w: max sequence length %d leaves no room for [CLS] and [SEP]", ErrUnsupported, maxSeqLen)
	}
	if fi, err := os.Stat(vocabPath); err == nil && fi.IsDir() {
		vocabPath = filepath.Join(vocabPath, "vocab.txt")
	}

	clsID, sepID, err := specialTokenIDs(vocabPath)
	if err != nil {
		return nil, err
	}

	wp, err := wordpiece.NewWordPieceFromFile(vocabPath, unkToken)
	if err != nil {
		return nil, fmt.Errorf("failed to build wordpiece model from %s: %w", vocabPath, err)
	}

	t := tk.NewTokenizer(wp)
	t.WithNormalizer(normalizer.NewBertNormalizer(true, true, true, true))
	t.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())
	t.WithPostProcessor(processor.NewBertProcessing(
		processor.PostToken{Value: sepToken, Id: sepID},
		processor.PostToken{Value: clsToken, Id: clsID},
	))
	t.WithTruncation(&tk.TruncationParams{MaxLength: maxSeqLen})

	return &WordPiece{t: t, maxSeqLen: maxSeqLen, clsID: clsID, sepID: sepID}, nil
}

// specialTokenIDs finds [CLS] and [SEP] by line number in vocab.txt.
func specialTokenIDs(vocabPath string) (int, int, error) {
	f, err := os.Open(vocabPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open vocab %s: %w", vocabPath, err)
	}
	defer f.Close()

	clsID, sepID := -1, -1
	idx := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case clsToken:
			clsID = idx
		case sepToken:
			sepID = idx
		}
		idx++
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, err
	}
	if clsID < 0 || sepID < 0 {
		return 0, 0, fmt.Errorf("%w: vocab %s lacks %s or %s", ErrUnsupported, vocabPath, clsToken, sepToken)
	}
	return clsID, sepID, nil
}

// MaxSeqLen is the fixed row width of Tokenize.
func (w *WordPiece) MaxSeqLen() int { return w.maxSeqLen }

// Tokenize implements SequenceEncoder.
func (w *WordPiece) Tokenize(texts []string) ([][]int64, [][]int64, error) {
	ids := make([][]int64, len(texts))
	masks := make([][]int64, len(texts))
	for i, txt := range texts {
		enc, err := w.t.Encode(tk.NewSingleEncodeInput(tk.NewInputSequence(txt)), true)
		if err != nil {
			return nil, nil, fmt.Errorf("wordpiece encode text %d: %w", i, err)
		}
		uids := enc.GetIds()
		umask := enc.GetAttentionMask()

		rowIDs := make([]int64, w.maxSeqLen)
		rowMask := make([]int64, w.maxSeqLen)
		n := min(len(uids), w.maxSeqLen)
		for j := 0; j < n; j++ {
			rowIDs[j] = int64(uids[j])
			if j < len(umask) {
				rowMask[j] = int64(umask[j])
			} else {
				rowMask[j] = 1
			}
		}
		ids[i] = rowIDs
		masks[i] = rowMask
	}
	return ids, masks, nil
}
