package resilience

import (
	"context"

	"paperqa/internal/port"
)

// Embedder guards an embedding backend.
type Embedder struct {
	inner port.Embedder
	guard *Guard
}

func NewEmbedder(inner port.Embedder, guard *Guard) *Embedder {
	return &Embedder{inner: inner, guard: guard}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := e.guard.Do(ctx, "embed", func(ctx context.Context) error {
		v, err := e.inner.Embed(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	return vec, err
}

func (e *Embedder) Dimension() int {
	return e.inner.Dimension()
}

func (e *Embedder) ModelName() string {
	return e.inner.ModelName()
}

// Answerer guards a chat-completion backend.
type Answerer struct {
	inner port.Answerer
	guard *Guard
}

func NewAnswerer(inner port.Answerer, guard *Guard) *Answerer {
	return &Answerer{inner: inner, guard: guard}
}

func (a *Answerer) Complete(ctx context.Context, system, user string) (string, error) {
	var out string
	err := a.guard.Do(ctx, "complete", func(ctx context.Context) error {
		s, err := a.inner.Complete(ctx, system, user)
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}

func (a *Answerer) ModelName() string {
	return a.inner.ModelName()
}
