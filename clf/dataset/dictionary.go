package dataset

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// SaveDictionary writes one key<TAB>value line per entry, keys sorted.
// Values are stringified; embedded tabs or newlines are not escaped.
func SaveDictionary(dictionary map[string]any, path string) error {
	keys := lo.Keys(dictionary)
	slices.Sort(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		v, err := cast.ToStringE(dictionary[k])
		if err != nil {
			return fmt.Errorf("dictionary value for %q: %w", k, err)
		}
		lines = append(lines, k+"\t"+v)
	}
	return SaveFile(lines, path)
}

// LoadDictionary reads a file written by SaveDictionary. Every line,
// including an empty trailing one, must split into exactly key and value.
func LoadDictionary(path string) (map[string]string, error) {
	content, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	dictionary := make(map[string]string)
	for n, line := range strings.Split(content, "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			return nil, fmt.Errorf("%s:%d: %w", path, n+1, ErrMalformedLine)
		}
		dictionary[parts[0]] = parts[1]
	}
	return dictionary, nil
}
