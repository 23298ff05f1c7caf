package nodes

import (
	"context"
	"fmt"

	"github.com/paperrag/agent/internal/agentstate"
	"github.com/paperrag/agent/internal/events"
	"github.com/paperrag/agent/internal/llm"
	"github.com/paperrag/agent/internal/model"
	"github.com/paperrag/agent/internal/prompt"
)

type graderResultJSON struct {
	Index    int    `json:"index"`
	Relevant bool   `json:"relevant"`
	Reason   string `json:"reason"`
}

type graderBatchJSON struct {
	Results []graderResultJSON `json:"results"`
}

// GraderNode labels each relevant chunk as graded-relevant or not, after a
// retrieval tool call, in a single batched structured call covering every
// chunk (spec §4.E). On LLM/parse failure, or a missing index in the
// response, it accepts the corresponding chunk as relevant (per the
// engine's grader fallback).
type GraderNode struct {
	Client   llm.Client
	Composer *prompt.Composer
}

// Run grades every chunk in s.RelevantChunks against s.CurrentQuery.
func (n *GraderNode) Run(ctx context.Context, s *agentstate.State) []events.Event {
	var out []events.Event
	out = append(out, events.Status("grading", "checking chunk relevance", map[string]any{
		"chunk_count": len(s.RelevantChunks),
	}))

	n.evaluateBatch(ctx, s)

	graded := 0
	for _, rc := range s.RelevantChunks {
		if rc.WasGradedRelevant != nil && *rc.WasGradedRelevant {
			graded++
		}
	}
	out = append(out, events.Status("grading", "grading complete", map[string]any{
		"relevant_count": graded,
		"total":          len(s.RelevantChunks),
	}))
	return out
}

// evaluateBatch grades all of s.RelevantChunks with one structured call,
// matching results back to chunks by index. A chunk whose index is absent
// from the response (or any call/parse failure) is accepted as relevant.
func (n *GraderNode) evaluateBatch(ctx context.Context, s *agentstate.State) {
	if len(s.RelevantChunks) == 0 {
		return
	}

	chunks := make([]model.Chunk, len(s.RelevantChunks))
	for i, rc := range s.RelevantChunks {
		chunks[i] = rc.Chunk
	}

	sys, user := n.Composer.Compose(prompt.TemplateGrader, prompt.Opts{
		Query:  s.CurrentQuery,
		Chunks: chunks,
	})

	batch, err := n.gradeOnce(ctx, sys, user)
	if err != nil {
		batch, err = n.gradeOnce(ctx, sys, user)
	}
	if err != nil {
		s.AddReasoningStep(fmt.Sprintf("grader failed, accepting all %d chunks: %v", len(s.RelevantChunks), err))
		acceptAll(s.RelevantChunks)
		return
	}

	byIndex := make(map[int]bool, len(batch.Results))
	for _, r := range batch.Results {
		byIndex[r.Index] = r.Relevant
	}

	for i := range s.RelevantChunks {
		relevant, ok := byIndex[i]
		if !ok {
			rc := s.RelevantChunks[i]
			s.AddReasoningStep(fmt.Sprintf("grader omitted chunk %s#%d, accepting", rc.Chunk.ArxivID, rc.Chunk.ChunkIndex))
			relevant = true
		}
		s.RelevantChunks[i].WasGradedRelevant = &relevant
	}
}

func (n *GraderNode) gradeOnce(ctx context.Context, sys, user string) (graderBatchJSON, error) {
	raw, err := n.Client.CompleteStructured(ctx, sys, user, llm.CompletionOpts{Temperature: 0})
	if err != nil {
		return graderBatchJSON{}, err
	}
	return parseJSON[graderBatchJSON](raw)
}

func acceptAll(chunks []agentstate.RelevantChunk) {
	for i := range chunks {
		relevant := true
		chunks[i].WasGradedRelevant = &relevant
	}
}
