package chunker

import (
	"strings"

	"paperqa/internal/domain"
	"paperqa/internal/port"
)

const (
	DefaultMaxTokens = 500
	DefaultOverlap   = 50
)

// Span is a half-open range [Start, End) of token offsets.
type Span struct {
	Start int
	End   int
}

// TokenChunker splits page text into overlapping token windows.
type TokenChunker struct {
	maxTokens int
	overlap   int
	codec     port.TokenCodec
}

// NewTokenChunker creates a chunker emitting windows of at most maxTokens
// tokens that share overlap tokens with their predecessor.
func NewTokenChunker(maxTokens, overlap int, codec port.TokenCodec) *TokenChunker {
	return &TokenChunker{
		maxTokens: maxTokens,
		overlap:   overlap,
		codec:     codec,
	}
}

// ChunkPage collapses whitespace runs in raw page text to single spaces,
// then chunks the result.
func (c *TokenChunker) ChunkPage(text string, pageNum int) []domain.Chunk {
	return c.ChunkText(NormalizeWhitespace(text), pageNum)
}

// ChunkText splits text into chunks. Text with no tokens yields no chunks.
func (c *TokenChunker) ChunkText(text string, pageNum int) []domain.Chunk {
	tokens := c.codec.Encode(text)
	spans := Windows(len(tokens), c.maxTokens, c.overlap)
	if len(spans) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		slice := tokens[s.Start:s.End]
		chunks = append(chunks, domain.Chunk{
			Text:     c.codec.Decode(slice),
			PageNum:  pageNum,
			ChunkIdx: i,
			Tokens:   len(slice),
		})
	}
	return chunks
}

// Windows computes the token windows for a sequence of n tokens. Each
// window holds at most maxTokens tokens and the next one starts overlap
// tokens before the previous end. The last window ends at n.
func Windows(n, maxTokens, overlap int) []Span {
	if n <= 0 {
		return nil
	}
	if maxTokens < 1 {
		maxTokens = 1
	}
	overlap = ClampOverlap(maxTokens, overlap)

	var spans []Span
	start := 0
	for start < n {
		end := start + maxTokens
		if end > n {
			end = n
		}
		spans = append(spans, Span{Start: start, End: end})
		if end == n {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// ClampOverlap bounds overlap to [0, maxTokens/2] so every window advances.
func ClampOverlap(maxTokens, overlap int) int {
	if overlap < 0 {
		return 0
	}
	if half := maxTokens / 2; overlap > half {
		return half
	}
	return overlap
}

// NormalizeWhitespace replaces every whitespace run, newlines included,
// with a single space and trims the ends.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
