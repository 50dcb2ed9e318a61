package eval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperqa/internal/domain"
)

type fakeRetriever struct {
	pages map[string][]int
	err   error
	gotK  int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _, query string, topK int) ([]domain.RetrievedChunk, error) {
	f.gotK = topK
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.RetrievedChunk
	for i, p := range f.pages[query] {
		c := domain.RetrievedChunk{Score: 1 - float64(i)*0.1}
		c.PageNum = p
		out = append(out, c)
	}
	return out, nil
}

func TestRankedPagesDeduplicates(t *testing.T) {
	chunks := make([]domain.RetrievedChunk, 4)
	for i, p := range []int{3, 1, 3, 2} {
		chunks[i].PageNum = p
	}
	assert.Equal(t, []int{3, 1, 2}, RankedPages(chunks))
}

func TestRunAggregates(t *testing.T) {
	gs := &GoldenSet{
		PaperID: "paper",
		TopK:    3,
		Cases: []Case{
			{Question: "loss", Pages: []int{4}},
			{Question: "data", Pages: []int{2}},
		},
	}
	r := &fakeRetriever{pages: map[string][]int{
		"loss": {4, 1},
		"data": {7, 2},
	}}

	report, err := Run(context.Background(), r, gs, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, r.gotK)
	require.Len(t, report.Cases, 2)
	assert.InDelta(t, 1.0, report.Cases[0].RR, 1e-9)
	assert.InDelta(t, 0.5, report.Cases[1].RR, 1e-9)
	assert.InDelta(t, 0.75, report.MRR, 1e-9)
	assert.InDelta(t, 1.0, report.MeanRecall, 1e-9)
	assert.InDelta(t, 0.5, report.MeanPrecision, 1e-9)
	assert.InDelta(t, 1.0, report.Cases[0].TopScore, 1e-9)
}

func TestRunPropagatesRetrieveError(t *testing.T) {
	gs := &GoldenSet{PaperID: "paper", Cases: []Case{{Question: "q", Pages: []int{1}}}}
	_, err := Run(context.Background(), &fakeRetriever{err: domain.ErrNotIndexed}, gs, 5)
	assert.True(t, errors.Is(err, domain.ErrNotIndexed))
}

func TestLoadGoldenSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "golden.yaml")
	content := `paper_id: 2504.13079v1
top_k: 4
cases:
  - question: Which loss function is used?
    pages: [3, 4]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	gs, err := LoadGoldenSet(path)
	require.NoError(t, err)
	assert.Equal(t, "2504.13079v1", gs.PaperID)
	assert.Equal(t, 4, gs.TopK)
	require.Len(t, gs.Cases, 1)
	assert.Equal(t, []int{3, 4}, gs.Cases[0].Pages)
}

func TestLoadGoldenSetRejectsIncompleteCases(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"no_paper": "cases:\n  - question: q\n    pages: [1]\n",
		"no_cases": "paper_id: p\n",
		"no_pages": "paper_id: p\ncases:\n  - question: q\n",
		"invalid":  "paper_id: [\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			_, err := LoadGoldenSet(path)
			assert.Error(t, err)
		})
	}
}
