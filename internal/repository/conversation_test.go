package repository

import (
	"context"
	"testing"

	"github.com/paperrag/agent/internal/model"
)

func TestConversationStore_GetOrCreate_Idempotent(t *testing.T) {
	pool := setupTestPool(t)
	store := NewConversationStore(pool)
	ctx := context.Background()

	id1, err := store.GetOrCreate(ctx, "session-1")
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}

	id2, err := store.GetOrCreate(ctx, "session-1")
	if err != nil {
		t.Fatalf("GetOrCreate() second call error: %v", err)
	}

	if id1 != id2 {
		t.Errorf("GetOrCreate() returned different IDs for the same session: %q vs %q", id1, id2)
	}
}

func TestConversationStore_SaveTurn_MonotonicTurnNumbers(t *testing.T) {
	pool := setupTestPool(t)
	store := NewConversationStore(pool)
	ctx := context.Background()

	if _, err := store.GetOrCreate(ctx, "session-2"); err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}

	var turns []*model.ConversationTurn
	for i := 0; i < 3; i++ {
		turn, err := store.SaveTurn(ctx, "session-2", model.TurnData{
			UserQuery:     "what is attention",
			AgentResponse: "a mechanism for weighting inputs",
			Provider:      "openai",
			Model:         "gpt-4o-mini",
		})
		if err != nil {
			t.Fatalf("SaveTurn() error: %v", err)
		}
		turns = append(turns, turn)
	}

	for i, turn := range turns {
		if turn.TurnNumber != i {
			t.Errorf("turn %d: TurnNumber = %d, want %d", i, turn.TurnNumber, i)
		}
	}
}

func TestConversationStore_GetHistory_OrderedOldestFirst(t *testing.T) {
	pool := setupTestPool(t)
	store := NewConversationStore(pool)
	ctx := context.Background()

	if _, err := store.GetOrCreate(ctx, "session-3"); err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}

	queries := []string{"first question", "second question", "third question"}
	for _, q := range queries {
		if _, err := store.SaveTurn(ctx, "session-3", model.TurnData{
			UserQuery:     q,
			AgentResponse: "answer to " + q,
		}); err != nil {
			t.Fatalf("SaveTurn() error: %v", err)
		}
	}

	history, err := store.GetHistory(ctx, "session-3", 5)
	if err != nil {
		t.Fatalf("GetHistory() error: %v", err)
	}

	if len(history) != 6 {
		t.Fatalf("GetHistory() returned %d messages, want 6", len(history))
	}
	if history[0].Content != "first question" {
		t.Errorf("history[0].Content = %q, want %q", history[0].Content, "first question")
	}
	if history[len(history)-2].Content != "third question" {
		t.Errorf("last user message = %q, want %q", history[len(history)-2].Content, "third question")
	}
}

func TestConversationStore_ListSessions_ReturnsSummaries(t *testing.T) {
	pool := setupTestPool(t)
	store := NewConversationStore(pool)
	ctx := context.Background()

	if _, err := store.GetOrCreate(ctx, "session-4"); err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	if _, err := store.SaveTurn(ctx, "session-4", model.TurnData{
		UserQuery:     "hello",
		AgentResponse: "hi",
	}); err != nil {
		t.Fatalf("SaveTurn() error: %v", err)
	}

	summaries, total, err := store.ListSessions(ctx, 0, 10)
	if err != nil {
		t.Fatalf("ListSessions() error: %v", err)
	}
	if total < 1 {
		t.Errorf("total = %d, want at least 1", total)
	}

	found := false
	for _, s := range summaries {
		if s.SessionID == "session-4" {
			found = true
			if s.TurnCount != 1 {
				t.Errorf("TurnCount = %d, want 1", s.TurnCount)
			}
		}
	}
	if !found {
		t.Error("ListSessions() did not include session-4")
	}
}

func TestConversationStore_GetConversation_ReturnsRow(t *testing.T) {
	pool := setupTestPool(t)
	store := NewConversationStore(pool)
	ctx := context.Background()

	if _, err := store.GetOrCreate(ctx, "session-6"); err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}

	conv, err := store.GetConversation(ctx, "session-6")
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if conv.SessionID != "session-6" {
		t.Errorf("SessionID = %q, want session-6", conv.SessionID)
	}
}

func TestConversationStore_GetConversation_UnknownSessionErrors(t *testing.T) {
	pool := setupTestPool(t)
	store := NewConversationStore(pool)
	ctx := context.Background()

	if _, err := store.GetConversation(ctx, "does-not-exist"); err == nil {
		t.Error("expected an error for an unknown session")
	}
}

func TestConversationStore_ListTurns_ChronologicalOrder(t *testing.T) {
	pool := setupTestPool(t)
	store := NewConversationStore(pool)
	ctx := context.Background()

	if _, err := store.GetOrCreate(ctx, "session-7"); err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	for _, q := range []string{"first", "second"} {
		if _, err := store.SaveTurn(ctx, "session-7", model.TurnData{UserQuery: q, AgentResponse: "a"}); err != nil {
			t.Fatalf("SaveTurn() error: %v", err)
		}
	}

	turns, err := store.ListTurns(ctx, "session-7")
	if err != nil {
		t.Fatalf("ListTurns() error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if turns[0].TurnNumber != 0 || turns[1].TurnNumber != 1 {
		t.Errorf("turn numbers = %d,%d, want 0,1", turns[0].TurnNumber, turns[1].TurnNumber)
	}
}

func TestConversationStore_Delete_RemovesConversationAndTurns(t *testing.T) {
	pool := setupTestPool(t)
	store := NewConversationStore(pool)
	ctx := context.Background()

	if _, err := store.GetOrCreate(ctx, "session-5"); err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	if _, err := store.SaveTurn(ctx, "session-5", model.TurnData{
		UserQuery:     "q",
		AgentResponse: "a",
	}); err != nil {
		t.Fatalf("SaveTurn() error: %v", err)
	}

	n, err := store.Delete(ctx, "session-5")
	if err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if n != 1 {
		t.Errorf("Delete() turns deleted = %d, want 1", n)
	}

	if _, err := store.Delete(ctx, "session-5"); err == nil {
		t.Error("expected error deleting an already-deleted session")
	}
}
