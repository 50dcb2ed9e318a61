package usecase

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"paperqa/internal/domain"
)

// wordCodec treats each whitespace-separated word as one token.
type wordCodec struct {
	mu    sync.Mutex
	ids   map[string]int
	words []string
}

func newWordCodec() *wordCodec {
	return &wordCodec{ids: make(map[string]int)}
}

func (c *wordCodec) Encode(text string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []int
	for _, w := range strings.Fields(text) {
		id, ok := c.ids[w]
		if !ok {
			id = len(c.words)
			c.ids[w] = id
			c.words = append(c.words, w)
		}
		out = append(out, id)
	}
	return out
}

func (c *wordCodec) Decode(tokens []int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = c.words[t]
	}
	return strings.Join(words, " ")
}

// failingEmbedder fails from the failAt-th call on.
type failingEmbedder struct {
	inner  interface {
		Embed(ctx context.Context, text string) ([]float32, error)
		Dimension() int
	}
	failAt int
	calls  int
}

func (e *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.calls >= e.failAt {
		return nil, domain.ErrServiceUnavailable
	}
	return e.inner.Embed(ctx, text)
}

func (e *failingEmbedder) Dimension() int    { return e.inner.Dimension() }
func (e *failingEmbedder) ModelName() string { return "failing" }

// textExtractor reads a file as a single page of plain text.
type textExtractor struct{}

func (textExtractor) ExtractPages(ctx context.Context, path string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(string(data), "broken") {
		return nil, errors.Join(domain.ErrMalformedSource, errors.New("bad xref"))
	}
	return []domain.Page{{Number: 1, Text: string(data)}}, nil
}
