package nodes

import (
	"context"
	"strings"

	"github.com/paperrag/agent/internal/agentstate"
	"github.com/paperrag/agent/internal/engine"
	"github.com/paperrag/agent/internal/events"
	"github.com/paperrag/agent/internal/llm"
	"github.com/paperrag/agent/internal/prompt"
)

// outOfScopeTemperature is fixed per spec §4.E, independent of the request's
// configured generation temperature.
const outOfScopeTemperature = 0.7

// OutOfScopeNode generates a short polite redirection when the guardrail
// rejects a query. Skips retrieval and grading entirely. Terminal.
type OutOfScopeNode struct {
	Client   llm.Client
	Composer *prompt.Composer
}

// Run streams a redirection answer, mirroring GeneratorNode's shape minus
// the Sources event (no evidence was gathered).
func (n *OutOfScopeNode) Run(ctx context.Context, s *agentstate.State, emit engine.EmitFunc) error {
	if err := emit(events.Status("out_of_scope", "query out of scope, redirecting", nil)); err != nil {
		return err
	}

	sys, user := n.Composer.Compose(prompt.TemplateOutOfScope, prompt.Opts{
		ConversationHistory: s.ConversationHistory,
		ConversationWindow:  s.Limits.ConversationWindow,
		Query:               s.CurrentQuery,
	})

	tokenCh, errCh := n.Client.Stream(ctx, sys, user, llm.CompletionOpts{Temperature: outOfScopeTemperature})

	var sb strings.Builder
	for tokenCh != nil || errCh != nil {
		select {
		case tok, ok := <-tokenCh:
			if !ok {
				tokenCh = nil
				continue
			}
			sb.WriteString(tok)
			if err := emit(events.Content(tok)); err != nil {
				return err
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				s.Status = agentstate.StatusFailed
				return emit(events.ErrorEvent(err.Error(), ""))
			}
		case <-ctx.Done():
			return events.ErrCancelled
		}
	}

	s.FinalAnswer = sb.String()
	s.Status = agentstate.StatusCompleted
	return nil
}
