package encoding

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/textclf/clf/encoding/tokenizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	trainTweets = []string{
		"I love this phone!!",
		"This phone is terrible, I hate it.",
		"Love love LOVE the battery",
		"@support the screen broke #fail",
	}
	testTweets = []string{
		"I hate the battery",
		"completely unseen words",
	}
)

func TestEncodeAsMatrix(t *testing.T) {
	t.Run("binary entries are 0 or 1", func(t *testing.T) {
		xTrain, xTest, err := EncodeAsMatrix(trainTweets, testTweets, ModeBinary)
		require.NoError(t, err)

		_, trainCols := xTrain.Dims()
		testRows, testCols := xTest.Dims()
		assert.Equal(t, trainCols, testCols, "test must reuse the training vocabulary")
		assert.Equal(t, len(testTweets), testRows)

		for _, m := range [][]float64{xTrain.RawMatrix().Data, xTest.RawMatrix().Data} {
			for _, v := range m {
				assert.Contains(t, []float64{0, 1}, v)
			}
		}
		// nothing of the second test tweet is in the training vocabulary
		assert.Equal(t, make([]float64, testCols), xTest.RawRowView(1))
	})

	t.Run("vocabulary comes from train only", func(t *testing.T) {
		xTrain, _, err := EncodeAsMatrix(trainTweets, append(testTweets, "brand new tokens everywhere"), ModeCount)
		require.NoError(t, err)
		_, cols := xTrain.Dims()
		tok := MatrixTokenizer()
		tok.FitOnTexts(trainTweets)
		assert.Equal(t, tok.VocabSize(), cols)
	})

	t.Run("lowercases and strips punctuation", func(t *testing.T) {
		xTrain, _, err := EncodeAsMatrix([]string{"Love, LOVE love!"}, nil, ModeCount)
		require.NoError(t, err)
		r, c := xTrain.Dims()
		assert.Equal(t, 1, r)
		assert.Equal(t, 1, c)
		assert.Equal(t, 3.0, xTrain.At(0, 0))
	})

	t.Run("empty vocabulary", func(t *testing.T) {
		_, _, err := EncodeAsMatrix([]string{"!!!", ""}, testTweets, ModeBinary)
		assert.ErrorIs(t, err, ErrEmptyVocabulary)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, _, err := EncodeAsMatrix(trainTweets, testTweets, Mode("nope"))
		assert.ErrorIs(t, err, ErrUnknownMode)
	})
}

func TestEncodeAsWordIndexes(t *testing.T) {
	xTrain, xTest, vocab := EncodeAsWordIndexes(trainTweets, testTweets)
	xTrain2, xTest2, vocab2 := EncodeAsWordIndexes(trainTweets, testTweets)

	assert.Equal(t, xTrain, xTrain2)
	assert.Equal(t, xTest, xTest2)
	assert.Equal(t, vocab, vocab2)

	require.Len(t, xTrain, len(trainTweets))
	// case and punctuation are preserved: "phone!!" and "phone" are distinct
	tok := SequenceTokenizer()
	tok.FitOnTexts(trainTweets)
	assert.Equal(t, tok.VocabSize(), vocab)
	assert.Contains(t, tok.WordIndex(), "phone!!")
	assert.Contains(t, tok.WordIndex(), "phone")
	assert.Contains(t, tok.WordIndex(), "LOVE")

	for _, seq := range append(xTrain, xTest...) {
		for _, idx := range seq {
			assert.GreaterOrEqual(t, idx, 1)
			assert.LessOrEqual(t, idx, vocab)
		}
	}
	assert.Empty(t, xTest[1])
}

func TestEncodeAsOneHot(t *testing.T) {
	xTrain, xTest, vocab, err := EncodeAsOneHot(trainTweets, testTweets)
	require.NoError(t, err)

	n := BucketSpace(vocab)
	require.Len(t, xTrain, len(trainTweets))
	require.Len(t, xTest, len(testTweets))

	tok := SequenceTokenizer()
	for i, text := range trainTweets {
		assert.Len(t, xTrain[i], len(tok.Words(text)))
	}
	// unknown words are hashed too
	assert.Len(t, xTest[1], 3)
	for _, seq := range append(xTrain, xTest...) {
		for _, idx := range seq {
			assert.GreaterOrEqual(t, idx, 1)
			assert.Less(t, idx, n)
		}
	}

	_, _, _, err = EncodeAsOneHot(nil, testTweets)
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestEncodersReturnFittedTokenizer(t *testing.T) {
	xTrain, _, tok, err := EncodeAsMatrixWithTokenizer(trainTweets, testTweets, ModeCount)
	require.NoError(t, err)
	_, cols := xTrain.Dims()
	names := tok.FeatureNames()
	require.Len(t, names, cols)
	love := tok.WordIndex()["love"]
	assert.Equal(t, "love", names[love-1])
	assert.Equal(t, 3.0, xTrain.At(2, love-1))

	seqs, _, seqTok := EncodeAsWordIndexesWithTokenizer(trainTweets, testTweets)
	phone := seqTok.WordIndex()["phone"]
	assert.Contains(t, seqs[1], phone)

	_, _, _, err = EncodeAsOneHotWithTokenizer(nil, testTweets)
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestBucketIndex(t *testing.T) {
	xTrain, _, tok, err := EncodeAsOneHotWithTokenizer(trainTweets, testTweets)
	require.NoError(t, err)
	index, err := BucketIndex(tok)
	require.NoError(t, err)
	require.Len(t, index, tok.VocabSize())

	for i, text := range trainTweets {
		for j, word := range tok.Words(text) {
			assert.Equal(t, index[word], xTrain[i][j], word)
		}
	}
}

func TestBucketSpace(t *testing.T) {
	assert.Equal(t, 15, BucketSpace(10))
	assert.Equal(t, 2, BucketSpace(1))
	assert.Equal(t, 4, BucketSpace(3), "4.5 rounds half to even")
	assert.Equal(t, 8, BucketSpace(5), "7.5 rounds half to even")
}

func TestPadSequences(t *testing.T) {
	got := PadSequences([][]int{{1, 2}, {1, 2, 3, 4, 5}, {}}, 3)
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4, 5}, {0, 0, 0}}, got)

	m := SequencesToMatrix(got)
	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 5.0, m.At(1, 2))
	assert.True(t, SequencesToMatrix(nil).IsEmpty())
}

func TestEncodeAsWordPiece(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte("[PAD]\n[UNK]\n[CLS]\n[SEP]\ni\nlove\nhate\n"), 0o644))

	wp, err := tokenizer.NewWordPiece(path, 6)
	require.NoError(t, err)

	xTrain, xTest, err := EncodeAsWordPiece(wp, []string{"I love", "I hate"}, []string{"I"})
	require.NoError(t, err)
	require.Len(t, xTrain, 2)
	require.Len(t, xTest, 1)
	for _, row := range append(xTrain, xTest...) {
		assert.Len(t, row, 6)
		assert.Equal(t, int64(2), row[0])
	}
}
