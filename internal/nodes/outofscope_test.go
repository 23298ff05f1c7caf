package nodes

import (
	"context"
	"testing"

	"github.com/paperrag/agent/internal/agentstate"
	"github.com/paperrag/agent/internal/events"
	"github.com/paperrag/agent/internal/prompt"
)

func TestOutOfScopeNode_StreamsRedirection(t *testing.T) {
	n := &OutOfScopeNode{
		Client:   &fakeClient{streamTokens: []string{"I can only ", "help with ", "the paper corpus."}},
		Composer: prompt.NewComposer(),
	}
	s := newState("what's the weather?", 75)

	var sawSources bool
	err := n.Run(context.Background(), s, func(e events.Event) error {
		if e.Type == events.TypeSources {
			sawSources = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sawSources {
		t.Error("out-of-scope redirection should never emit a sources event")
	}
	if s.Status != agentstate.StatusCompleted {
		t.Errorf("Status = %s, want completed", s.Status)
	}
	if s.FinalAnswer != "I can only help with the paper corpus." {
		t.Errorf("FinalAnswer = %q", s.FinalAnswer)
	}
}
