package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
)

// KeywordFile is the on-disk shape of the keyword seed file:
//
//	keywords:
//	  - keyword: minecraft builds
//	    niche: gaming
//	    priority: 5
type KeywordFile struct {
	Keywords []model.Keyword `yaml:"keywords"`
}

// LoadKeywords reads and validates a keyword seed file. Duplicate
// (keyword, niche) pairs keep the last entry.
func LoadKeywords(path string) ([]model.Keyword, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords file: %w", err)
	}
	return ParseKeywords(data)
}

func ParseKeywords(data []byte) ([]model.Keyword, error) {
	var f KeywordFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse keywords YAML: %w", err)
	}

	index := make(map[string]int)
	var out []model.Keyword
	for i, k := range f.Keywords {
		k.Keyword = strings.TrimSpace(k.Keyword)
		k.Niche = strings.TrimSpace(k.Niche)
		if k.Keyword == "" {
			return nil, fmt.Errorf("keyword entry %d: keyword is required", i+1)
		}
		key := strings.ToLower(k.Keyword) + "\x00" + strings.ToLower(k.Niche)
		if pos, ok := index[key]; ok {
			out[pos] = k
			continue
		}
		index[key] = len(out)
		out = append(out, k)
	}
	return out, nil
}
