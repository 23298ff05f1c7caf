package nodes

import (
	"context"
	"testing"

	"github.com/paperrag/agent/internal/prompt"
)

func TestRewriterNode_RewritesQueryAndLeavesAttemptsUntouched(t *testing.T) {
	n := &RewriterNode{
		Client:   &fakeClient{structured: []string{`{"rewritten_query": "transformer self-attention mechanism", "reason": "broaden terms"}`}},
		Composer: prompt.NewComposer(),
	}
	s := newState("attention", 75)
	s.Limits.MaxRetrievalAttempts = 2
	s.RetrievalAttempts = 1

	n.Run(context.Background(), s)

	if s.CurrentQuery != "transformer self-attention mechanism" {
		t.Errorf("CurrentQuery = %q, want rewritten query", s.CurrentQuery)
	}
	if s.RewrittenQuery == nil || *s.RewrittenQuery != s.CurrentQuery {
		t.Error("expected RewrittenQuery to record the rewrite")
	}
	if s.RetrievalAttempts != 1 {
		t.Errorf("RetrievalAttempts = %d, want unchanged at 1 — the rewriter doesn't retrieve", s.RetrievalAttempts)
	}
}

func TestRewriterNode_FailureKeepsQueryAndAttempts(t *testing.T) {
	n := &RewriterNode{
		Client:   &fakeClient{}, // always errors
		Composer: prompt.NewComposer(),
	}
	s := newState("attention", 75)
	s.RetrievalAttempts = 1
	original := s.CurrentQuery

	n.Run(context.Background(), s)

	if s.CurrentQuery != original {
		t.Errorf("CurrentQuery = %q, want unchanged %q", s.CurrentQuery, original)
	}
	if s.RetrievalAttempts != 1 {
		t.Errorf("RetrievalAttempts = %d, want unchanged at 1 on failure", s.RetrievalAttempts)
	}
	if s.RewrittenQuery != nil {
		t.Error("expected RewrittenQuery to remain nil on failure")
	}
}
