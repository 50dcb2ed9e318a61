package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"paperqa/internal/domain"
)

func chunkAt(id, page int, text string, score float64) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		IndexedChunk: domain.IndexedChunk{
			Chunk:   domain.Chunk{Text: text, PageNum: page, Tokens: len(strings.Fields(text))},
			ID:      id,
			PDFName: "paper.pdf",
		},
		Score: score,
	}
}

func TestBuildPromptRendersExcerpts(t *testing.T) {
	chunks := []domain.RetrievedChunk{
		chunkAt(3, 4, "  Triplet loss separates anchors.  ", 0.9),
		chunkAt(0, 1, "Abstract text.", 0.5),
	}
	chunks[1].CleanText = "Cleaned abstract."

	p := BuildPrompt(chunks, "  What loss is used? ")

	assert.Contains(t, p.System, "Answer strictly from the provided excerpts")
	assert.Contains(t, p.User, ">>> Page 4\nTriplet loss separates anchors.\n\n>>> Page 1\nCleaned abstract.")
	assert.NotContains(t, p.User, "Abstract text.")
	assert.Contains(t, p.User, "Question: What loss is used?")
	assert.Contains(t, p.User, "reply exactly: I don't know.")
	assert.Contains(t, p.User, "at most 2 sentences")
	assert.Less(t, strings.Index(p.User, ">>> Page 4"), strings.Index(p.User, ">>> Page 1"))
}

func TestBuildPromptWithoutChunks(t *testing.T) {
	p := BuildPrompt(nil, "Anything?")

	assert.Contains(t, p.User, UnknownAnswer)
	assert.NotContains(t, p.User, ">>> Page")
	assert.Contains(t, p.User, "Question: Anything?")
}

func TestBuildPromptDeterministic(t *testing.T) {
	chunks := []domain.RetrievedChunk{chunkAt(0, 2, "x", 1)}
	assert.Equal(t, BuildPrompt(chunks, "q"), BuildPrompt(chunks, "q"))
}
