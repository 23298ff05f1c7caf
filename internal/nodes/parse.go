// Package nodes implements the execution engine's graph nodes: guardrail,
// router, executor, grader, rewriter, generator, and out-of-scope. Each node
// is a small struct wrapping the LLM/tool dependencies it needs. Non-terminal
// nodes expose Run(ctx, state) []events.Event; the generator and out-of-scope
// nodes expose Run(ctx, state, emit) error and stream through emit.
package nodes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseJSON extracts a single JSON object of type T from raw, tolerating a
// markdown code fence around it. Generalizes the teacher's
// parseGenerationResponse fence-stripping idiom across every structured node.
func parseJSON[T any](raw string) (T, error) {
	var zero T

	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		lines := strings.Split(cleaned, "\n")
		if len(lines) >= 3 {
			cleaned = strings.Join(lines[1:len(lines)-1], "\n")
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	var out T
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return zero, fmt.Errorf("nodes.parseJSON: %w", err)
	}
	return out, nil
}
