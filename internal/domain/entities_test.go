package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "2504.13079v1", DocumentID("2504.13079v1.pdf"))
	assert.Equal(t, "paper", DocumentID("paper.PDF"))
	assert.Equal(t, "notes.txt", DocumentID("notes.txt"))
}

func TestExcerptPrefersCleanText(t *testing.T) {
	c := IndexedChunk{Chunk: Chunk{Text: "raw"}}
	assert.Equal(t, "raw", c.Excerpt())

	c.CleanText = "clean"
	assert.Equal(t, "clean", c.Excerpt())
}
