// Package agentstate defines the in-memory record the execution engine
// carries through a single request.
package agentstate

import (
	"fmt"
	"sort"
	"time"

	"github.com/paperrag/agent/internal/model"
)

// Status is the terminal (or running) status of a request.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// GuardrailResult is the outcome of the guardrail node.
type GuardrailResult struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
	InScope   bool   `json:"inScope"`
}

// RouterDecision is the outcome of the router node.
type RouterDecision struct {
	NextTool       string                 `json:"nextTool,omitempty"`
	ToolArgs       map[string]interface{} `json:"toolArgs,omitempty"`
	Rationale      string                 `json:"rationale"`
	ShouldGenerate bool                   `json:"shouldGenerate"`
}

// ToolCall is one entry of tool_history.
type ToolCall struct {
	ToolName  string                 `json:"toolName"`
	Args      map[string]interface{} `json:"args"`
	Success   bool                   `json:"success"`
	Summary   string                 `json:"summary"`
	StartedAt time.Time              `json:"startedAt"`
	EndedAt   time.Time              `json:"endedAt"`
}

// RelevantChunk is a retrieved chunk plus its fused score and (once graded)
// relevance verdict.
type RelevantChunk struct {
	Chunk             model.Chunk `json:"chunk"`
	Score             float64     `json:"score"`
	WasGradedRelevant *bool       `json:"wasGradedRelevant,omitempty"`
}

// Limits bounds the engine's cycles; all are request-configurable with
// defaults from config.
type Limits struct {
	Temperature          float64
	TopK                 int
	GuardrailThreshold   int
	MaxRetrievalAttempts int
	ConversationWindow   int
	MaxIterations        int
}

// State is the state-machine record threaded through every node.
type State struct {
	OriginalQuery       string
	CurrentQuery        string
	ConversationHistory []model.Message
	SessionID           string

	Limits Limits

	GuardrailResult *GuardrailResult
	RouterDecision  *RouterDecision
	ToolHistory     []ToolCall
	RelevantChunks  []RelevantChunk

	Iteration         int
	RetrievalAttempts int

	Status         Status
	ReasoningSteps []string
	FinalAnswer    string
	Sources        []model.Source

	// RewrittenQuery is set once the rewriter has produced a reformulation;
	// persisted verbatim into the ConversationTurn.
	RewrittenQuery *string

	// Provider/Model actually used for generation, recorded for persistence.
	Provider string
	Model    string

	StartedAt time.Time
}

// New builds the initial state for a request.
func New(query, sessionID string, history []model.Message, limits Limits) *State {
	return &State{
		OriginalQuery:       query,
		CurrentQuery:        query,
		ConversationHistory: history,
		SessionID:           sessionID,
		Limits:              limits,
		Status:              StatusRunning,
		StartedAt:           time.Now().UTC(),
	}
}

// AddReasoningStep appends a short note to the trace surfaced in metadata.
func (s *State) AddReasoningStep(step string) {
	s.ReasoningSteps = append(s.ReasoningSteps, step)
}

// MergeChunks unions newly retrieved chunks into RelevantChunks by
// (arxiv_id, chunk_index), keeping the maximum score per key, and orders
// the result by score descending.
func (s *State) MergeChunks(found []RelevantChunk) {
	byKey := make(map[string]int, len(s.RelevantChunks))
	for i, rc := range s.RelevantChunks {
		byKey[chunkKey(rc.Chunk)] = i
	}

	for _, rc := range found {
		key := chunkKey(rc.Chunk)
		if idx, ok := byKey[key]; ok {
			if rc.Score > s.RelevantChunks[idx].Score {
				s.RelevantChunks[idx].Score = rc.Score
			}
			continue
		}
		byKey[key] = len(s.RelevantChunks)
		s.RelevantChunks = append(s.RelevantChunks, rc)
	}

	sort.Slice(s.RelevantChunks, func(i, j int) bool {
		return s.RelevantChunks[i].Score > s.RelevantChunks[j].Score
	})
}

func chunkKey(c model.Chunk) string {
	return fmt.Sprintf("%s#%d", c.ArxivID, c.ChunkIndex)
}
