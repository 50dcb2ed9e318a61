package llm

import (
	"context"
	"fmt"
	"regexp"
)

var pageMarker = regexp.MustCompile(`>>> Page (\d+)`)

// MockAnswerer answers from the prompt alone: it cites the first page
// marker it finds, or declines when the context has none.
type MockAnswerer struct{}

func NewMockAnswerer() *MockAnswerer {
	return &MockAnswerer{}
}

func (a *MockAnswerer) Complete(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m := pageMarker.FindStringSubmatch(user)
	if m == nil {
		return "I don't know.", nil
	}
	return fmt.Sprintf("The excerpts address this directly (p. %s).", m[1]), nil
}

func (a *MockAnswerer) ModelName() string {
	return "mock"
}
