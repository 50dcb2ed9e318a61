package retriever

import (
	"strings"

	"paperqa/internal/domain"
)

// KeywordFilter keeps chunks whose excerpt mentions any keyword,
// case-insensitively. When nothing matches, or no keywords are set, the
// input is returned unchanged so a narrow filter never empties the context.
type KeywordFilter struct {
	keywords []string
}

func NewKeywordFilter(keywords []string) *KeywordFilter {
	kws := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kws = append(kws, k)
		}
	}
	return &KeywordFilter{keywords: kws}
}

func (f *KeywordFilter) Filter(chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	if len(f.keywords) == 0 {
		return chunks
	}

	var kept []domain.RetrievedChunk
	for _, c := range chunks {
		if f.matches(c.Excerpt()) {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return chunks
	}
	return kept
}

func (f *KeywordFilter) matches(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range f.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
