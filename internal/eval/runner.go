package eval

import (
	"context"
	"fmt"

	"paperqa/internal/domain"
)

// Retriever is the retrieval step under evaluation.
type Retriever interface {
	Retrieve(ctx context.Context, docID, query string, topK int) ([]domain.RetrievedChunk, error)
}

// CaseResult holds the metrics for one question.
type CaseResult struct {
	Question  string
	Retrieved []int
	Precision float64
	Recall    float64
	RR        float64
	NDCG      float64
	TopScore  float64
}

// Report aggregates a run over a golden set.
type Report struct {
	PaperID       string
	TopK          int
	Cases         []CaseResult
	MeanPrecision float64
	MeanRecall    float64
	MRR           float64
	MeanNDCG      float64
}

// Run retrieves topK chunks per question and scores the pages they come
// from. A topK of zero falls back to the golden set's own value.
func Run(ctx context.Context, r Retriever, gs *GoldenSet, topK int) (*Report, error) {
	if topK <= 0 {
		topK = gs.TopK
	}
	if topK <= 0 {
		topK = 5
	}

	report := &Report{PaperID: gs.PaperID, TopK: topK}
	for _, c := range gs.Cases {
		chunks, err := r.Retrieve(ctx, gs.PaperID, c.Question, topK)
		if err != nil {
			return nil, fmt.Errorf("retrieve %q: %w", c.Question, err)
		}
		pages := RankedPages(chunks)
		res := CaseResult{
			Question:  c.Question,
			Retrieved: pages,
			Precision: PrecisionAtK(pages, c.Pages),
			Recall:    RecallAtK(pages, c.Pages),
			RR:        ReciprocalRank(pages, c.Pages),
			NDCG:      BinaryNDCG(pages, c.Pages),
		}
		if len(chunks) > 0 {
			res.TopScore = chunks[0].Score
		}
		report.Cases = append(report.Cases, res)
		report.MeanPrecision += res.Precision
		report.MeanRecall += res.Recall
		report.MRR += res.RR
		report.MeanNDCG += res.NDCG
	}

	n := float64(len(report.Cases))
	if n > 0 {
		report.MeanPrecision /= n
		report.MeanRecall /= n
		report.MRR /= n
		report.MeanNDCG /= n
	}
	return report, nil
}

// RankedPages lists the distinct pages of the chunks in rank order.
func RankedPages(chunks []domain.RetrievedChunk) []int {
	seen := make(map[int]bool, len(chunks))
	pages := make([]int, 0, len(chunks))
	for _, c := range chunks {
		if seen[c.PageNum] {
			continue
		}
		seen[c.PageNum] = true
		pages = append(pages, c.PageNum)
	}
	return pages
}
