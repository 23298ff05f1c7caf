package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/paperrag/agent/internal/agentstate"
	"github.com/paperrag/agent/internal/events"
	"github.com/paperrag/agent/internal/model"
	"github.com/paperrag/agent/internal/tools"
)

// RetrieveChunksToolName is the well-known name of the built-in retrieval
// tool; the engine routes to GRADER only when this tool ran and succeeded.
const RetrieveChunksToolName = "retrieve_chunks"

// ExecutorNode dispatches the router's chosen tool and records the call in
// tool_history. It never fails the state machine — tool errors are recorded
// and routing continues.
type ExecutorNode struct {
	Executor *tools.ToolExecutor
}

// Run validates and executes s.RouterDecision's tool call.
func (n *ExecutorNode) Run(ctx context.Context, s *agentstate.State) []events.Event {
	var out []events.Event

	decision := s.RouterDecision
	if decision == nil || decision.NextTool == "" {
		s.AddReasoningStep("executor invoked with no tool selected")
		return out
	}

	out = append(out, events.Status("executing", "running tool", map[string]any{
		"tool_name": decision.NextTool,
	}))

	started := time.Now().UTC()
	result := n.Executor.Execute(ctx, decision.NextTool, decision.ToolArgs)
	ended := time.Now().UTC()

	summary := "ok"
	if !result.Success {
		summary = result.Error
	}
	s.ToolHistory = append(s.ToolHistory, agentstate.ToolCall{
		ToolName:  decision.NextTool,
		Args:      decision.ToolArgs,
		Success:   result.Success,
		Summary:   summary,
		StartedAt: started,
		EndedAt:   ended,
	})

	if result.Success && decision.NextTool == RetrieveChunksToolName {
		// One retrieve_chunks call that reaches the grader is one retrieval
		// attempt (glossary: "Retrieval attempt"); the rewriter only
		// reformulates the query, it doesn't retrieve.
		s.RetrievalAttempts++
		if err := n.mergeRetrieved(s, result.Data); err != nil {
			s.AddReasoningStep(fmt.Sprintf("executor: %v", err))
		}
	}

	out = append(out, events.Status("executing", "tool finished", map[string]any{
		"tool_name": decision.NextTool,
		"success":   result.Success,
	}))
	return out
}

// mergeRetrieved unions a retrieve_chunks result into s.RelevantChunks.
func (n *ExecutorNode) mergeRetrieved(s *agentstate.State, data interface{}) error {
	res, ok := data.(tools.RetrieveChunksResult)
	if !ok {
		return fmt.Errorf("unexpected retrieve_chunks result shape %T", data)
	}

	found := make([]agentstate.RelevantChunk, 0, len(res.Chunks))
	for _, c := range res.Chunks {
		found = append(found, agentstate.RelevantChunk{
			Chunk: model.Chunk{
				ArxivID:     c.ArxivID,
				PaperTitle:  c.Title,
				ChunkIndex:  c.ChunkIndex,
				Text:        c.ChunkText,
				SectionName: c.Section,
				PageNumber:  c.Page,
			},
			Score: c.Score,
		})
	}
	s.MergeChunks(found)
	return nil
}
