// Package qasummary abstracts the QA-expansion LLM call: given a chunk of
// content, produce question-style expansions suitable for embedding
// alongside the content vector so that question-phrased queries retrieve
// the right chunk.
package qasummary

import "context"

// Client produces a QA-style summary for a piece of content.
type Client interface {
	// Summarize returns question-style expansions of content.
	Summarize(ctx context.Context, content string) (string, error)
}

// NoopClient returns the input content unchanged, used in local/test
// environments where no LLM is configured, mirroring pkg/embeddings.NoopClient.
type NoopClient struct{}

// Summarize implements Client.
func (NoopClient) Summarize(_ context.Context, content string) (string, error) {
	return content, nil
}
