package dataset

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

const (
	trainSetTag = "TrainSet"
	testSetTag  = "TestSet"
)

// columnSep collapses tab runs but keeps leading and trailing empty fields.
var columnSep = regexp.MustCompile("\t+")

// LoadFile reads the entire file as a string.
func LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// SaveFile joins lines with newlines and overwrites path with the result.
func SaveFile(lines []string, path string) error {
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// LoadData parses a headerless Set<TAB>Label<TAB>Text file. Runs of tabs
// count as a single separator, a trailing tab leaves an empty text and blank
// lines are skipped. With shuffle set, texts and labels are permuted together
// using seed.
func LoadData(path string, shuffle bool, seed int64) (*Corpus, error) {
	logger.Info().Str("path", path).Msg("Reading data from file")

	content, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	corpus := &Corpus{}
	for n, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := columnSep.Split(line, -1)
		if len(cols) != 3 {
			return nil, fmt.Errorf("%s:%d: %w (got %d)", path, n+1, ErrColumnCount, len(cols))
		}
		label, err := strconv.Atoi(strings.TrimSpace(cols[1]))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid label %q: %w", path, n+1, cols[1], err)
		}
		corpus.Texts = append(corpus.Texts, cols[2])
		corpus.Labels = append(corpus.Labels, label)
	}

	logger.Info().Int("rows", corpus.Len()).Int("columns", 3).Msg("The shape of this data set")

	if shuffle {
		corpus.Shuffle(seed)
	}
	return corpus, nil
}

// SaveAsDataset writes texts and labels in the LoadData format. The set tag
// is TrainSet when path mentions "train", TestSet otherwise. Nil texts are
// skipped.
func SaveAsDataset(texts []*string, labels []int, path string) error {
	if len(texts) < len(labels) {
		return fmt.Errorf("%w: %d texts, %d labels", ErrLengthMismatch, len(texts), len(labels))
	}

	tag := testSetTag
	if strings.Contains(path, "train") {
		tag = trainSetTag
	}

	lines := make([]string, 0, len(labels))
	for i, label := range labels {
		if texts[i] == nil {
			continue
		}
		lines = append(lines, tag+"\t"+cast.ToString(label)+"\t"+*texts[i])
	}
	return SaveFile(lines, path)
}
