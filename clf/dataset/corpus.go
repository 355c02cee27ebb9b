package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"

	internal "github.com/ZanzyTHEbar/textclf/clf"
)

var logger = internal.GetLogger().With().Str("component", "dataset").Logger()

var (
	ErrColumnCount    = errors.New("dataset row must have exactly 3 tab-separated columns")
	ErrLengthMismatch = errors.New("texts and labels differ in length")
	ErrMalformedLine  = errors.New("dictionary line must hold exactly one tab")
	ErrSingleClass    = errors.New("labels must contain both classes")
)

// Corpus is an ordered sequence of texts with a parallel sequence of labels.
type Corpus struct {
	Texts  []string
	Labels []int
}

// Len returns the number of examples.
func (c *Corpus) Len() int { return len(c.Texts) }

// Validate checks the texts/labels pairing.
func (c *Corpus) Validate() error {
	if len(c.Texts) != len(c.Labels) {
		return fmt.Errorf("%w: %d texts, %d labels", ErrLengthMismatch, len(c.Texts), len(c.Labels))
	}
	return nil
}

// Shuffle permutes texts and labels with the same permutation. The
// permutation depends only on seed and the corpus length.
func (c *Corpus) Shuffle(seed int64) {
	perm := Permutation(len(c.Texts), seed)
	texts := make([]string, len(c.Texts))
	labels := make([]int, len(c.Labels))
	for i, j := range perm {
		texts[i] = c.Texts[j]
		labels[i] = c.Labels[j]
	}
	c.Texts, c.Labels = texts, labels
}

// Permutation returns a deterministic permutation of [0, n) for seed.
func Permutation(n int, seed int64) []int {
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	return r.Perm(n)
}

// Split cuts the corpus in two: the first fraction of examples and the rest.
// Shuffle first if the source order is not already random.
func (c *Corpus) Split(fraction float64) (*Corpus, *Corpus, error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("split fraction must be in (0, 1), got %v", fraction)
	}
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	cut := int(float64(c.Len()) * fraction)
	head := &Corpus{
		Texts:  append([]string(nil), c.Texts[:cut]...),
		Labels: append([]int(nil), c.Labels[:cut]...),
	}
	tail := &Corpus{
		Texts:  append([]string(nil), c.Texts[cut:]...),
		Labels: append([]int(nil), c.Labels[cut:]...),
	}
	return head, tail, nil
}
