// Package llm provides a provider-agnostic adapter over OpenAI-compatible
// chat completion APIs, covering the three call shapes nodes need: a plain
// completion, a structured-output completion, and a token stream.
package llm

import (
	"context"
)

// CompletionOpts configures a single completion or stream call.
type CompletionOpts struct {
	Temperature float64
	MaxTokens   int
}

// Client abstracts an LLM provider for the execution engine's nodes.
type Client interface {
	// Complete returns the full generated text for one system/user prompt pair.
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOpts) (string, error)

	// CompleteStructured returns generated text expected to be (or contain) a
	// single JSON object. Callers parse the result themselves; the adapter
	// does not interpret the schema.
	CompleteStructured(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOpts) (string, error)

	// Stream returns a channel of text deltas and a channel that carries at
	// most one error. Both channels are closed when generation ends. A
	// canceled ctx stops the stream and may surface ctx.Err() on errCh.
	Stream(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOpts) (tokens <-chan string, errs <-chan error)
}

// Embedder abstracts a text embedding provider.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
