// Package engine implements the bounded tool-routing state machine that
// drives a single question to an answer: START -> GUARDRAIL -> (ROUTER |
// OUT_OF_SCOPE) -> (EXECUTOR -> [GRADER -> (REWRITER -> ROUTER | ROUTER)] |
// GENERATOR) -> END, per an explicit state -> (state', guard) table rather
// than mutually recursive node calls, so iteration and retrieval caps stay
// inspectable in tests.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/paperrag/agent/internal/agentstate"
	"github.com/paperrag/agent/internal/events"
)

// State names one node in the execution graph.
type State string

const (
	StateGuardrail  State = "guardrail"
	StateRouter     State = "router"
	StateExecutor   State = "executor"
	StateGrader     State = "grader"
	StateRewriter   State = "rewriter"
	StateGenerator  State = "generator"
	StateOutOfScope State = "out_of_scope"
)

// EmitFunc delivers one event to the consumer. Returning a non-nil error
// (typically events.ErrCancelled) stops the engine at the next check point.
type EmitFunc func(events.Event) error

// Node is the shape of every non-terminal graph node: a pure-ish
// transformation of state that also produces events to emit.
type Node interface {
	Run(ctx context.Context, s *agentstate.State) []events.Event
}

// StreamingNode is the shape shared by the generator and out-of-scope
// nodes: both stream tokens directly onto the emit callback and are
// terminal, setting s.Status themselves.
type StreamingNode interface {
	Run(ctx context.Context, s *agentstate.State, emit EmitFunc) error
}

// Nodes bundles every graph node the engine dispatches to.
type Nodes struct {
	Guardrail  Node
	Router     Node
	Executor   Node
	Grader     Node
	Rewriter   Node
	Generator  StreamingNode
	OutOfScope StreamingNode
}

// Engine steps an AgentState through the graph, enforcing the iteration and
// retrieval-attempt caps and emitting events at every node boundary.
type Engine struct {
	nodes Nodes
}

// New creates an Engine dispatching to nodes.
func New(nodes Nodes) *Engine {
	return &Engine{nodes: nodes}
}

// Run drives s from StateGuardrail to a terminal node (GENERATOR or
// OUT_OF_SCOPE), emitting every event through emit in causal order. On
// cancellation (ctx done or emit returning an error) it sets s.Status to
// failed with a "cancelled" reasoning step and returns the error.
func (e *Engine) Run(ctx context.Context, s *agentstate.State, emit EmitFunc) (err error) {
	defer func() {
		if errors.Is(err, events.ErrCancelled) && s.Status != agentstate.StatusFailed {
			s.Status = agentstate.StatusFailed
			s.AddReasoningStep("cancelled")
		}
	}()

	current := StateGuardrail

	for {
		if ctx.Err() != nil {
			s.Status = agentstate.StatusFailed
			s.AddReasoningStep("cancelled")
			return events.ErrCancelled
		}

		slog.Debug("[DEBUG-ENGINE] entering state",
			"state", current, "iteration", s.Iteration, "retrieval_attempts", s.RetrievalAttempts)

		switch current {
		case StateGenerator:
			return e.nodes.Generator.Run(ctx, s, emit)
		case StateOutOfScope:
			return e.nodes.OutOfScope.Run(ctx, s, emit)
		}

		next, err := e.step(ctx, current, s, emit)
		if err != nil {
			return err
		}
		current = next
	}
}

// step runs one non-terminal node and returns the next state per the
// transition table in spec §4.F.
func (e *Engine) step(ctx context.Context, current State, s *agentstate.State, emit EmitFunc) (State, error) {
	switch current {
	case StateGuardrail:
		if err := e.run(ctx, e.nodes.Guardrail, s, emit); err != nil {
			return "", err
		}
		if s.GuardrailResult != nil && s.GuardrailResult.InScope {
			return StateRouter, nil
		}
		return StateOutOfScope, nil

	case StateRouter:
		if err := e.run(ctx, e.nodes.Router, s, emit); err != nil {
			return "", err
		}
		decision := s.RouterDecision
		budgetExhausted := decision != nil &&
			decision.NextTool == retrieveChunksToolName &&
			s.RetrievalAttempts >= s.Limits.MaxRetrievalAttempts
		if budgetExhausted {
			s.AddReasoningStep("retrieval budget exhausted, forcing generation instead of another retrieve_chunks call")
		}
		if decision != nil && (decision.ShouldGenerate || s.Iteration >= s.Limits.MaxIterations || budgetExhausted) {
			return StateGenerator, nil
		}
		s.Iteration++
		return StateExecutor, nil

	case StateExecutor:
		if err := e.run(ctx, e.nodes.Executor, s, emit); err != nil {
			return "", err
		}
		if isRetrieveChunksSuccess(s) {
			return StateGrader, nil
		}
		return StateRouter, nil

	case StateGrader:
		if err := e.run(ctx, e.nodes.Grader, s, emit); err != nil {
			return "", err
		}
		if needsRewrite(s) {
			return StateRewriter, nil
		}
		return StateRouter, nil

	case StateRewriter:
		if err := e.run(ctx, e.nodes.Rewriter, s, emit); err != nil {
			return "", err
		}
		return StateRouter, nil

	default:
		return "", fmt.Errorf("engine: unhandled state %s", current)
	}
}

func (e *Engine) run(ctx context.Context, node Node, s *agentstate.State, emit EmitFunc) error {
	for _, ev := range node.Run(ctx, s) {
		if err := emit(ev); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return events.ErrCancelled
	}
	return nil
}

// isRetrieveChunksSuccess reports whether the most recent tool call was a
// successful retrieve_chunks invocation, the trigger for grading.
func isRetrieveChunksSuccess(s *agentstate.State) bool {
	if len(s.ToolHistory) == 0 {
		return false
	}
	last := s.ToolHistory[len(s.ToolHistory)-1]
	return last.ToolName == retrieveChunksToolName && last.Success
}

// needsRewrite reports whether fewer than top_k chunks graded relevant and
// budget remains for another retrieval attempt.
func needsRewrite(s *agentstate.State) bool {
	if s.RetrievalAttempts >= s.Limits.MaxRetrievalAttempts {
		return false
	}
	relevant := 0
	for _, rc := range s.RelevantChunks {
		if rc.WasGradedRelevant != nil && *rc.WasGradedRelevant {
			relevant++
		}
	}
	return relevant < s.Limits.TopK
}

const retrieveChunksToolName = "retrieve_chunks"
