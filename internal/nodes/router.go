package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paperrag/agent/internal/agentstate"
	"github.com/paperrag/agent/internal/events"
	"github.com/paperrag/agent/internal/llm"
	"github.com/paperrag/agent/internal/prompt"
	"github.com/paperrag/agent/internal/tools"
)

type routerJSON struct {
	NextTool       *string                `json:"next_tool"`
	ToolArgs       map[string]interface{} `json:"tool_args"`
	Rationale      string                 `json:"rationale"`
	ShouldGenerate bool                   `json:"should_generate"`
}

// RouterNode decides whether to call a tool or move to generation.
type RouterNode struct {
	Client   llm.Client
	Composer *prompt.Composer
	Registry *tools.Registry
}

// Run asks the LLM for the next action. should_generate or iteration cap
// forces GENERATOR; LLM/parse failure forces should_generate=true.
func (n *RouterNode) Run(ctx context.Context, s *agentstate.State) []events.Event {
	var out []events.Event
	out = append(out, events.Status("routing", "deciding next action", nil))

	if s.Iteration >= s.Limits.MaxIterations {
		s.RouterDecision = &agentstate.RouterDecision{ShouldGenerate: true, Rationale: "max iterations reached"}
		out = append(out, events.Status("routing", "forcing generation: max iterations reached", nil))
		return out
	}

	sys, user := n.Composer.Compose(prompt.TemplateRouter, prompt.Opts{
		ConversationHistory: s.ConversationHistory,
		ConversationWindow:  s.Limits.ConversationWindow,
		Query:               s.CurrentQuery,
		Notes:               n.notes(s),
	})

	decision, err := n.decide(ctx, sys, user)
	if err != nil {
		s.AddReasoningStep(fmt.Sprintf("router failed, forcing generation: %v", err))
		decision = &agentstate.RouterDecision{ShouldGenerate: true, Rationale: "router unavailable"}
	} else if decision.NextTool != "" {
		if _, ok := n.Registry.Lookup(decision.NextTool); !ok {
			s.AddReasoningStep(fmt.Sprintf("router chose unregistered tool %q, forcing generation", decision.NextTool))
			decision = &agentstate.RouterDecision{ShouldGenerate: true, Rationale: "unregistered tool"}
		} else if toolCalledWithSameArgs(s.ToolHistory, decision.NextTool, decision.ToolArgs) {
			s.AddReasoningStep(fmt.Sprintf("router repeated tool %q with identical args", decision.NextTool))
		}
	}

	s.RouterDecision = decision
	out = append(out, events.Status("routing", "decision made", map[string]any{
		"next_tool":       decision.NextTool,
		"should_generate": decision.ShouldGenerate,
	}))
	return out
}

func (n *RouterNode) decide(ctx context.Context, sys, user string) (*agentstate.RouterDecision, error) {
	raw, err := n.Client.CompleteStructured(ctx, sys, user, llm.CompletionOpts{Temperature: 0})
	if err == nil {
		if parsed, perr := parseJSON[routerJSON](raw); perr == nil {
			return toDecision(parsed), nil
		}
	}

	raw, err = n.Client.CompleteStructured(ctx, sys, user, llm.CompletionOpts{Temperature: 0})
	if err != nil {
		return nil, fmt.Errorf("nodes.RouterNode: %w", err)
	}
	parsed, err := parseJSON[routerJSON](raw)
	if err != nil {
		return nil, fmt.Errorf("nodes.RouterNode: parse: %w", err)
	}
	return toDecision(parsed), nil
}

func toDecision(parsed routerJSON) *agentstate.RouterDecision {
	d := &agentstate.RouterDecision{
		ToolArgs:       parsed.ToolArgs,
		Rationale:      parsed.Rationale,
		ShouldGenerate: parsed.ShouldGenerate,
	}
	if parsed.NextTool != nil {
		d.NextTool = *parsed.NextTool
	}
	return d
}

func (n *RouterNode) notes(s *agentstate.State) []string {
	var notes []string
	notes = append(notes, "=== AVAILABLE TOOLS ===")
	for _, spec := range n.Registry.Specs() {
		schema, _ := json.Marshal(spec.Parameters)
		notes = append(notes, fmt.Sprintf("- %s: %s\n  parameters: %s", spec.Name, spec.Description, string(schema)))
	}

	notes = append(notes, fmt.Sprintf("=== TOOL HISTORY (%d calls) ===", len(s.ToolHistory)))
	for _, tc := range s.ToolHistory {
		notes = append(notes, fmt.Sprintf("- %s(success=%v): %s", tc.ToolName, tc.Success, tc.Summary))
	}

	notes = append(notes, fmt.Sprintf("Iterations remaining: %d", s.Limits.MaxIterations-s.Iteration))
	return notes
}

func toolCalledWithSameArgs(history []agentstate.ToolCall, tool string, args map[string]interface{}) bool {
	want, _ := json.Marshal(args)
	for _, tc := range history {
		if tc.ToolName != tool {
			continue
		}
		got, _ := json.Marshal(tc.Args)
		if strings.EqualFold(string(got), string(want)) {
			return true
		}
	}
	return false
}
