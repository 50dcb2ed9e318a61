package port

import "context"

// Answerer generates text from a system directive and user content.
type Answerer interface {
	// Complete returns the model's reply to the two-part prompt.
	Complete(ctx context.Context, system, user string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
