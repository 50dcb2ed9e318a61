package domain

import "strings"

// Chunk is a token-bounded span of one page's text.
type Chunk struct {
	Text     string `json:"text"`
	PageNum  int    `json:"page_num"`
	ChunkIdx int    `json:"chunk_idx"`
	Tokens   int    `json:"tokens"`
}

// IndexedChunk is a Chunk placed into a document index. ID is the row of the
// chunk's vector in the index and its position in the metadata list.
type IndexedChunk struct {
	Chunk
	ID        int    `json:"id"`
	PDFName   string `json:"pdf_name"`
	CleanText string `json:"clean_text,omitempty"`
}

// Excerpt returns the text shown to the model and used for citations.
func (c IndexedChunk) Excerpt() string {
	if c.CleanText != "" {
		return c.CleanText
	}
	return c.Text
}

// RetrievedChunk is an IndexedChunk scored against a query.
type RetrievedChunk struct {
	IndexedChunk
	Score float64 `json:"score"`
}

// Page is the extracted text of one PDF page. Number is 1-indexed.
type Page struct {
	Number int
	Text   string
}

// Prompt is a two-part chat instruction.
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// Citation points an answer back to a page of the source document.
type Citation struct {
	Page        int    `json:"page"`
	TextSnippet string `json:"textSnippet"`
}

// Answer is a grounded response with its supporting citations.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// DocumentID derives the document identifier from a PDF file name by
// dropping the ".pdf" extension. Dots elsewhere in the name are kept, so
// "2504.13079v1.pdf" becomes "2504.13079v1".
func DocumentID(fileName string) string {
	if strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
		return fileName[:len(fileName)-len(".pdf")]
	}
	return fileName
}
