package nodes

import (
	"context"
	"fmt"

	"github.com/paperrag/agent/internal/agentstate"
	"github.com/paperrag/agent/internal/events"
	"github.com/paperrag/agent/internal/llm"
	"github.com/paperrag/agent/internal/prompt"
)

type guardrailJSON struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// GuardrailNode decides whether a query is in scope for the paper corpus.
type GuardrailNode struct {
	Client   llm.Client
	Composer *prompt.Composer
}

// Run scores state.CurrentQuery against Limits.GuardrailThreshold. LLM or
// parse failure after one retry defaults to in_scope=true, score=0.
func (n *GuardrailNode) Run(ctx context.Context, s *agentstate.State) []events.Event {
	var out []events.Event
	out = append(out, events.Status("guardrail", "screening query", nil))

	sys, user := n.Composer.Compose(prompt.TemplateGuardrail, prompt.Opts{
		ConversationHistory: s.ConversationHistory,
		ConversationWindow:  s.Limits.ConversationWindow,
		Query:               s.CurrentQuery,
	})

	result, err := n.evaluate(ctx, sys, user)
	if err != nil {
		s.AddReasoningStep(fmt.Sprintf("guardrail failed, defaulting to in-scope: %v", err))
		result = &agentstate.GuardrailResult{Score: 0, Reasoning: "guardrail unavailable", InScope: true}
	} else {
		result.InScope = result.Score >= s.Limits.GuardrailThreshold
	}

	s.GuardrailResult = result
	out = append(out, events.Status("guardrail", "screening complete", map[string]any{
		"score":    result.Score,
		"in_scope": result.InScope,
	}))
	return out
}

func (n *GuardrailNode) evaluate(ctx context.Context, sys, user string) (*agentstate.GuardrailResult, error) {
	raw, err := n.Client.CompleteStructured(ctx, sys, user, llm.CompletionOpts{Temperature: 0})
	if err == nil {
		if parsed, perr := parseJSON[guardrailJSON](raw); perr == nil {
			return &agentstate.GuardrailResult{Score: parsed.Score, Reasoning: parsed.Reasoning}, nil
		}
	}

	// Retry once on failure before giving up, per the engine's structured-
	// output contract.
	raw, err = n.Client.CompleteStructured(ctx, sys, user, llm.CompletionOpts{Temperature: 0})
	if err != nil {
		return nil, fmt.Errorf("nodes.GuardrailNode: %w", err)
	}
	parsed, err := parseJSON[guardrailJSON](raw)
	if err != nil {
		return nil, fmt.Errorf("nodes.GuardrailNode: parse: %w", err)
	}
	return &agentstate.GuardrailResult{Score: parsed.Score, Reasoning: parsed.Reasoning}, nil
}
