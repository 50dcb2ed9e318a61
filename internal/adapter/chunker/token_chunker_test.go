package chunker

import (
	"fmt"
	"strings"
	"testing"

	"paperqa/internal/adapter/analyzer"
)

// wordCodec treats every whitespace-separated word as one token.
type wordCodec struct {
	vocab map[string]int
	words []string
}

func newWordCodec() *wordCodec {
	return &wordCodec{vocab: make(map[string]int)}
}

func (c *wordCodec) Encode(text string) []int {
	fields := strings.Fields(text)
	ids := make([]int, len(fields))
	for i, w := range fields {
		id, ok := c.vocab[w]
		if !ok {
			id = len(c.words)
			c.vocab[w] = id
			c.words = append(c.words, w)
		}
		ids[i] = id
	}
	return ids
}

func (c *wordCodec) Decode(ids []int) string {
	words := make([]string, len(ids))
	for i, id := range ids {
		words[i] = c.words[id]
	}
	return strings.Join(words, " ")
}

func numberedWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func TestChunkTextEmpty(t *testing.T) {
	c := NewTokenChunker(DefaultMaxTokens, DefaultOverlap, newWordCodec())

	if chunks := c.ChunkText("", 1); len(chunks) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
	if chunks := c.ChunkPage(" \n\t  ", 1); len(chunks) != 0 {
		t.Errorf("expected no chunks for blank page, got %d", len(chunks))
	}
}

func TestChunkTextSingleWindow(t *testing.T) {
	c := NewTokenChunker(10, 2, newWordCodec())

	chunks := c.ChunkText("a short page", 3)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "a short page" {
		t.Errorf("unexpected text %q", chunks[0].Text)
	}
	if chunks[0].PageNum != 3 || chunks[0].ChunkIdx != 0 || chunks[0].Tokens != 3 {
		t.Errorf("unexpected chunk fields: %+v", chunks[0])
	}
}

func TestChunkTextOverlap(t *testing.T) {
	c := NewTokenChunker(4, 1, newWordCodec())

	chunks := c.ChunkText(numberedWords(10), 1)
	want := []string{
		"w0 w1 w2 w3",
		"w3 w4 w5 w6",
		"w6 w7 w8 w9",
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Text != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], chunk.Text)
		}
		if chunk.ChunkIdx != i {
			t.Errorf("chunk %d has ChunkIdx %d", i, chunk.ChunkIdx)
		}
		if chunk.Tokens != 4 {
			t.Errorf("chunk %d: expected 4 tokens, got %d", i, chunk.Tokens)
		}
	}
}

func TestChunkPageCollapsesWhitespace(t *testing.T) {
	c := NewTokenChunker(50, 5, newWordCodec())

	chunks := c.ChunkPage("Deep\n\nresidual   learning\tfor\r\nimage recognition ", 2)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "Deep residual learning for image recognition" {
		t.Errorf("whitespace not normalized: %q", chunks[0].Text)
	}
}

func TestWindowsCoverage(t *testing.T) {
	for _, n := range []int{1, 2, 7, 50, 499, 500, 501, 1234} {
		for _, maxTokens := range []int{1, 2, 3, 10, 500} {
			for _, overlap := range []int{0, 1, 5, 50, 1000} {
				spans := Windows(n, maxTokens, overlap)

				covered := 0
				for i, s := range spans {
					if s.End-s.Start < 1 || s.End-s.Start > maxTokens {
						t.Fatalf("n=%d max=%d overlap=%d: bad span %+v", n, maxTokens, overlap, s)
					}
					if s.Start > covered {
						t.Fatalf("n=%d max=%d overlap=%d: gap before span %d", n, maxTokens, overlap, i)
					}
					if i > 0 && s.Start <= spans[i-1].Start {
						t.Fatalf("n=%d max=%d overlap=%d: span %d does not advance", n, maxTokens, overlap, i)
					}
					if s.End > covered {
						covered = s.End
					}
				}
				if covered != n {
					t.Fatalf("n=%d max=%d overlap=%d: covered %d tokens", n, maxTokens, overlap, covered)
				}

				step := maxTokens - ClampOverlap(maxTokens, overlap)
				if step < 1 {
					step = 1
				}
				if bound := ceilDiv(n, step); len(spans) > bound {
					t.Errorf("n=%d max=%d overlap=%d: %d spans exceeds bound %d", n, maxTokens, overlap, len(spans), bound)
				}
			}
		}
	}
}

func TestWindowsDegenerateParameters(t *testing.T) {
	if spans := Windows(0, 10, 2); spans != nil {
		t.Errorf("expected nil spans for empty input, got %v", spans)
	}

	spans := Windows(5, 0, 3)
	if len(spans) != 5 {
		t.Errorf("expected maxTokens<1 to behave as 1, got %d spans", len(spans))
	}

	spans = Windows(10, 4, -3)
	if len(spans) != 3 || spans[1].Start != 4 {
		t.Errorf("expected negative overlap to behave as 0, got %v", spans)
	}
}

func TestClampOverlap(t *testing.T) {
	cases := []struct{ max, overlap, want int }{
		{500, 50, 50},
		{500, 400, 250},
		{1, 1, 0},
		{3, 2, 1},
		{10, -1, 0},
	}
	for _, tc := range cases {
		if got := ClampOverlap(tc.max, tc.overlap); got != tc.want {
			t.Errorf("ClampOverlap(%d, %d) = %d, want %d", tc.max, tc.overlap, got, tc.want)
		}
	}
}

func TestChunkTextDeterministic(t *testing.T) {
	codec := newWordCodec()
	c := NewTokenChunker(7, 3, codec)
	text := numberedWords(40)

	first := c.ChunkText(text, 1)
	second := c.ChunkText(text, 1)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkTextWithBPE(t *testing.T) {
	tok, err := analyzer.NewTokenizer(analyzer.DefaultEncoding)
	if err != nil {
		t.Fatal(err)
	}
	c := NewTokenChunker(32, 8, tok)

	text := strings.Repeat("We minimize the cross-entropy loss with Adam and a cosine schedule. ", 20)
	chunks := c.ChunkPage(text, 4)
	n := len(tok.Encode(NormalizeWhitespace(text)))

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if bound := ceilDiv(n, 32-8); len(chunks) > bound {
		t.Errorf("%d chunks exceeds bound %d", len(chunks), bound)
	}
	for i, chunk := range chunks {
		if chunk.Tokens < 1 || chunk.Tokens > 32 {
			t.Errorf("chunk %d has %d tokens", i, chunk.Tokens)
		}
		if chunk.PageNum != 4 {
			t.Errorf("chunk %d has page %d", i, chunk.PageNum)
		}
	}
}
