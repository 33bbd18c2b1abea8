package content

import "context"

// Example is one usage sentence with its translation.
type Example struct {
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

// Payload is the verb artifact produced by the content provider.
type Payload struct {
	Verb        string    `json:"verb"`
	Translation string    `json:"translation"`
	Explanation string    `json:"explanation"`
	Examples    []Example `json:"examples"`
}

// Provider produces lesson payloads and evaluates learner answers.
type Provider interface {
	// GeneratePayload never fails: on any internal error the provider
	// returns a canned fallback payload, so the scheduler always has
	// something to deliver.
	GeneratePayload(ctx context.Context) Payload

	// Evaluate judges a learner's sentence for the given verb and reports
	// feedback text plus whether the usage counts as mastered.
	Evaluate(ctx context.Context, verb, userText string) (feedback string, mastered bool, err error)
}

// Synthesizer converts short text into an audio clip. Audio is best-effort
// everywhere it is used; failures are logged by callers, never retried.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
