package tokenizer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/armon/go-radix"
	"github.com/cespare/xxhash/v2"
	"github.com/sourcegraph/conc/iter"
	"gonum.org/v1/gonum/mat"
)

// Options controls how a text is cut into tokens.
type Options struct {
	// Filters lists characters replaced by Split before splitting.
	Filters string
	// Lower case-folds the text first.
	Lower bool
	// Split is the token separator. Empty means a single space.
	Split string
}

// Tokenizer builds a word vocabulary from a training corpus and turns texts
// into index sequences, scored matrices or hashed indices.
type Tokenizer struct {
	opts     Options
	replacer *strings.Replacer

	wordCounts    map[string]int
	firstSeen     []string // tokens in order of first appearance
	wordIndex     map[string]int
	indexWord     []string // indexWord[i-1] is the token with index i
	wordDocs      map[string]*roaring.Bitmap
	documentCount int
	prefixes      *radix.Tree
}

// New returns an unfitted Tokenizer.
func New(opts Options) *Tokenizer {
	if opts.Split == "" {
		opts.Split = " "
	}
	var pairs []string
	for _, r := range opts.Filters {
		pairs = append(pairs, string(r), opts.Split)
	}
	t := &Tokenizer{
		opts:       opts,
		wordCounts: make(map[string]int),
		wordIndex:  make(map[string]int),
		wordDocs:   make(map[string]*roaring.Bitmap),
		prefixes:   radix.New(),
	}
	if len(pairs) > 0 {
		t.replacer = strings.NewReplacer(pairs...)
	}
	return t
}

// Words splits text into tokens following the tokenizer options.
func (t *Tokenizer) Words(text string) []string {
	if t.opts.Lower {
		text = strings.ToLower(text)
	}
	if t.replacer != nil {
		text = t.replacer.Replace(text)
	}
	parts := strings.Split(text, t.opts.Split)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FitOnTexts updates the vocabulary from texts. Indices are reassigned by
// descending count, ties keeping first-appearance order, starting at 1.
func (t *Tokenizer) FitOnTexts(texts []string) {
	for _, text := range texts {
		doc := uint32(t.documentCount)
		t.documentCount++
		for _, w := range t.Words(text) {
			if _, ok := t.wordCounts[w]; !ok {
				t.firstSeen = append(t.firstSeen, w)
				t.wordDocs[w] = roaring.New()
			}
			t.wordCounts[w]++
			t.wordDocs[w].Add(doc)
		}
	}
	t.reindex()
}

func (t *Tokenizer) reindex() {
	sorted := append([]string(nil), t.firstSeen...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return t.wordCounts[sorted[i]] > t.wordCounts[sorted[j]]
	})

	t.indexWord = sorted
	t.wordIndex = make(map[string]int, len(sorted))
	t.prefixes = radix.New()
	for i, w := range sorted {
		t.wordIndex[w] = i + 1
		t.prefixes.Insert(w, i+1)
	}
}

// VocabSize is the number of distinct fitted tokens.
func (t *Tokenizer) VocabSize() int { return len(t.wordCounts) }

// DocumentCount is the number of texts seen by FitOnTexts.
func (t *Tokenizer) DocumentCount() int { return t.documentCount }

// DocumentFrequency is the number of fitted texts containing token.
func (t *Tokenizer) DocumentFrequency(token string) int {
	bm, ok := t.wordDocs[token]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// WordCounts returns a copy of the token occurrence counts.
func (t *Tokenizer) WordCounts() map[string]int {
	out := make(map[string]int, len(t.wordCounts))
	for k, v := range t.wordCounts {
		out[k] = v
	}
	return out
}

// WordIndex returns a copy of the token to index mapping.
func (t *Tokenizer) WordIndex() map[string]int {
	out := make(map[string]int, len(t.wordIndex))
	for k, v := range t.wordIndex {
		out[k] = v
	}
	return out
}

// FeatureNames lists tokens ordered by index, i.e. matrix column order.
func (t *Tokenizer) FeatureNames() []string {
	return append([]string(nil), t.indexWord...)
}

// WithPrefix lists fitted tokens starting with prefix in lexical order,
// e.g. "#" for hashtags or "@" for mentions.
func (t *Tokenizer) WithPrefix(prefix string) []string {
	var out []string
	t.prefixes.WalkPrefix(prefix, func(s string, _ interface{}) bool {
		out = append(out, s)
		return false
	})
	return out
}

// TextsToSequences maps every text to the indices of its known tokens.
func (t *Tokenizer) TextsToSequences(texts []string) [][]int {
	return iter.Map(texts, func(text *string) []int {
		return t.textToSequence(*text)
	})
}

func (t *Tokenizer) textToSequence(text string) []int {
	words := t.Words(text)
	seq := make([]int, 0, len(words))
	for _, w := range words {
		if i, ok := t.wordIndex[w]; ok {
			seq = append(seq, i)
		}
	}
	return seq
}

// TextsToMatrix scores every text against the vocabulary: one row per text,
// one column per token (column i-1 for index i).
func (t *Tokenizer) TextsToMatrix(texts []string, mode Mode) (*mat.Dense, error) {
	switch mode {
	case ModeBinary, ModeCount, ModeFreq, ModeTFIDF:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	width := t.VocabSize()
	if width == 0 {
		return nil, ErrNotFitted
	}
	if len(texts) == 0 {
		return &mat.Dense{}, nil
	}

	m := mat.NewDense(len(texts), width, nil)
	for i, seq := range t.TextsToSequences(texts) {
		if len(seq) == 0 {
			continue
		}
		counts := make(map[int]int, len(seq))
		for _, j := range seq {
			counts[j]++
		}
		for j, c := range counts {
			m.Set(i, j-1, t.score(mode, j, c, len(seq)))
		}
	}
	return m, nil
}

func (t *Tokenizer) score(mode Mode, index, count, seqLen int) float64 {
	switch mode {
	case ModeCount:
		return float64(count)
	case ModeFreq:
		return float64(count) / float64(seqLen)
	case ModeTFIDF:
		tf := 1 + math.Log(float64(count))
		df := t.DocumentFrequency(t.indexWord[index-1])
		idf := math.Log(1 + float64(t.documentCount)/float64(1+df))
		return tf * idf
	default:
		return 1
	}
}

// OneHot hashes every token of text into [1, n-1]. Distinct tokens may
// collide; unknown tokens are hashed like any other.
func (t *Tokenizer) OneHot(text string, n int) ([]int, error) {
	if n <= 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBucketSpace, n)
	}
	words := t.Words(text)
	out := make([]int, len(words))
	for i, w := range words {
		out[i] = int(xxhash.Sum64String(w)%uint64(n-1)) + 1
	}
	return out, nil
}
