package nodes

import (
	"context"
	"strings"

	"github.com/paperrag/agent/internal/agentstate"
	"github.com/paperrag/agent/internal/engine"
	"github.com/paperrag/agent/internal/events"
	"github.com/paperrag/agent/internal/llm"
	"github.com/paperrag/agent/internal/model"
	"github.com/paperrag/agent/internal/prompt"
)

// GeneratorNode composes the answer prompt from retrieved context and
// conversation history, then streams the LLM's response token by token.
// Terminal: sets s.Status to completed or failed.
type GeneratorNode struct {
	Client   llm.Client
	Composer *prompt.Composer
}

// Run streams the final answer, emitting Status, Sources, Content events.
// Each event is passed to emit as soon as it is produced, so content tokens
// reach the consumer as they arrive; Run returns no event slice, only the
// first error emit reports (or ErrCancelled when ctx is done). A streaming
// failure from the LLM is emitted as an Error event with status failed.
func (n *GeneratorNode) Run(ctx context.Context, s *agentstate.State, emit engine.EmitFunc) error {
	if err := emit(events.Status("generation", "composing answer", nil)); err != nil {
		return err
	}

	top := topChunks(s.RelevantChunks, s.Limits.TopK)
	chunks := make([]model.Chunk, len(top))
	for i, rc := range top {
		chunks[i] = rc.Chunk
	}

	var notes []string
	if s.RetrievalAttempts == s.Limits.MaxRetrievalAttempts && len(s.RelevantChunks) < s.Limits.TopK {
		notes = append(notes, "Note: limited sources were found for this question; answer with appropriate caveats.")
	}

	sys, user := n.Composer.Compose(prompt.TemplateAnswer, prompt.Opts{
		ConversationHistory: s.ConversationHistory,
		ConversationWindow:  s.Limits.ConversationWindow,
		Chunks:              chunks,
		Query:               s.CurrentQuery,
		Notes:               notes,
	})

	sources := sourcesFromChunks(top)
	if err := emit(events.Sources(sources)); err != nil {
		return err
	}

	tokenCh, errCh := n.Client.Stream(ctx, sys, user, llm.CompletionOpts{Temperature: s.Limits.Temperature})

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
	s.Sources = sources
	s.Status = agentstate.StatusCompleted
	return nil
}

// topChunks returns the first k relevant chunks, or all of them if fewer.
func topChunks(chunks []agentstate.RelevantChunk, k int) []agentstate.RelevantChunk {
	if k <= 0 || k > len(chunks) {
		k = len(chunks)
	}
	return chunks[:k]
}

func sourcesFromChunks(chunks []agentstate.RelevantChunk) []model.Source {
	sources := make([]model.Source, len(chunks))
	for i, rc := range chunks {
		sources[i] = model.Source{
			ArxivID:           rc.Chunk.ArxivID,
			Title:             rc.Chunk.PaperTitle,
			RelevanceScore:    rc.Score,
			WasGradedRelevant: rc.WasGradedRelevant,
		}
	}
	return sources
}
