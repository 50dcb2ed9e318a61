package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"paperqa/internal/domain"
	"paperqa/internal/port"
)

const (
	DefaultCandidates   = 20
	DefaultTopK         = 5
	DefaultSnippetChars = 160
)

// AskUseCase answers a question about one indexed document.
type AskUseCase struct {
	retriever    port.Retriever
	filter       port.RelevanceFilter
	answerer     port.Answerer
	candidates   int
	topK         int
	snippetChars int
	logger       *zap.Logger
}

// AskOptions sizes the retrieval funnel. Zero fields take the defaults.
type AskOptions struct {
	Candidates   int
	TopK         int
	SnippetChars int
}

func NewAskUseCase(
	retriever port.Retriever,
	filter port.RelevanceFilter,
	answerer port.Answerer,
	opts AskOptions,
	logger *zap.Logger,
) *AskUseCase {
	if opts.Candidates <= 0 {
		opts.Candidates = DefaultCandidates
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.SnippetChars <= 0 {
		opts.SnippetChars = DefaultSnippetChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AskUseCase{
		retriever:    retriever,
		filter:       filter,
		answerer:     answerer,
		candidates:   opts.Candidates,
		topK:         opts.TopK,
		snippetChars: opts.SnippetChars,
		logger:       logger,
	}
}

// Context fetches the candidate chunks, applies the relevance filter and
// keeps the best topK survivors in score order.
func (u *AskUseCase) Context(ctx context.Context, docID, question string) ([]domain.RetrievedChunk, error) {
	candidates := u.candidates
	if candidates < u.topK {
		candidates = u.topK
	}

	chunks, err := u.retriever.Retrieve(ctx, docID, question, candidates)
	if err != nil {
		return nil, err
	}
	if u.filter != nil {
		chunks = u.filter.Filter(chunks)
	}
	if len(chunks) > u.topK {
		chunks = chunks[:u.topK]
	}
	return chunks, nil
}

// Prompt returns the prompt Ask would send, without calling the model.
func (u *AskUseCase) Prompt(ctx context.Context, docID, question string) (domain.Prompt, []domain.RetrievedChunk, error) {
	chunks, err := u.Context(ctx, docID, question)
	if err != nil {
		return domain.Prompt{}, nil, err
	}
	return BuildPrompt(chunks, question), chunks, nil
}

// Ask answers question from docID's excerpts and cites every excerpt used.
func (u *AskUseCase) Ask(ctx context.Context, docID, question string) (*domain.Answer, error) {
	prompt, chunks, err := u.Prompt(ctx, docID, question)
	if err != nil {
		return nil, err
	}

	text, err := u.answerer.Complete(ctx, prompt.System, prompt.User)
	if err != nil {
		return nil, fmt.Errorf("answer %s: %w", docID, err)
	}

	citations := make([]domain.Citation, 0, len(chunks))
	for _, c := range chunks {
		citations = append(citations, domain.Citation{
			Page:        c.PageNum,
			TextSnippet: Snippet(c.Excerpt(), u.snippetChars),
		})
	}

	u.logger.Debug("answered question",
		zap.String("doc_id", docID),
		zap.Int("excerpts", len(chunks)),
		zap.String("model", u.answerer.ModelName()))

	return &domain.Answer{Text: text, Citations: citations}, nil
}

// Snippet returns the first n runes of text followed by an ellipsis.
func Snippet(text string, n int) string {
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "…"
}
