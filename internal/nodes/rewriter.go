package nodes

import (
	"context"
	"fmt"

	"github.com/paperrag/agent/internal/agentstate"
	"github.com/paperrag/agent/internal/events"
	"github.com/paperrag/agent/internal/llm"
	"github.com/paperrag/agent/internal/prompt"
)

type rewriterJSON struct {
	RewrittenQuery string `json:"rewritten_query"`
	Reason         string `json:"reason"`
}

// RewriterNode reformulates the current query after insufficient relevant
// chunks were found. It does not retrieve anything itself, so it leaves
// RetrievalAttempts untouched — that counter is advanced by the executor,
// once per retrieve_chunks call that reaches the grader. Never called once
// RetrievalAttempts has reached MaxRetrievalAttempts.
type RewriterNode struct {
	Client   llm.Client
	Composer *prompt.Composer
}

// Run asks the LLM for a reformulated query and makes it the current query.
func (n *RewriterNode) Run(ctx context.Context, s *agentstate.State) []events.Event {
	var out []events.Event
	out = append(out, events.Status("routing", "rewriting query", map[string]any{
		"attempt": s.RetrievalAttempts + 1,
	}))

	sys, user := n.Composer.Compose(prompt.TemplateRewriter, prompt.Opts{
		ConversationHistory: s.ConversationHistory,
		ConversationWindow:  s.Limits.ConversationWindow,
		Query:               s.CurrentQuery,
		Notes:               []string{"Prior retrieval did not surface enough relevant evidence."},
	})

	rewritten, reason, err := n.rewrite(ctx, sys, user)
	if err != nil {
		s.AddReasoningStep(fmt.Sprintf("rewriter failed, keeping current query: %v", err))
		return out
	}

	s.CurrentQuery = rewritten
	s.RewrittenQuery = &rewritten
	s.AddReasoningStep(fmt.Sprintf("rewrote query: %s", reason))

	out = append(out, events.Status("routing", "query rewritten", map[string]any{
		"rewritten_query": rewritten,
	}))
	return out
}

func (n *RewriterNode) rewrite(ctx context.Context, sys, user string) (string, string, error) {
	raw, err := n.Client.CompleteStructured(ctx, sys, user, llm.CompletionOpts{Temperature: 0.3})
	if err == nil {
		if parsed, perr := parseJSON[rewriterJSON](raw); perr == nil && parsed.RewrittenQuery != "" {
			return parsed.RewrittenQuery, parsed.Reason, nil
		}
	}

	raw, err = n.Client.CompleteStructured(ctx, sys, user, llm.CompletionOpts{Temperature: 0.3})
	if err != nil {
		return "", "", fmt.Errorf("nodes.RewriterNode: %w", err)
	}
	parsed, err := parseJSON[rewriterJSON](raw)
	if err != nil {
		return "", "", fmt.Errorf("nodes.RewriterNode: parse: %w", err)
	}
	if parsed.RewrittenQuery == "" {
		return "", "", fmt.Errorf("nodes.RewriterNode: empty rewritten_query")
	}
	return parsed.RewrittenQuery, parsed.Reason, nil
}
