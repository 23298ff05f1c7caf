package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperrag/agent/internal/model"
)

// ConversationStore persists conversations and their turns.
type ConversationStore struct {
	pool *pgxpool.Pool
}

// NewConversationStore creates a ConversationStore.
func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{pool: pool}
}

// GetOrCreate finds the conversation for sessionID or creates one. Returns
// the conversation's internal ID.
func (s *ConversationStore) GetOrCreate(ctx context.Context, sessionID string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM conversations WHERE session_id = $1
	`, sessionID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != pgx.ErrNoRows {
		return "", fmt.Errorf("repository.ConversationStore.GetOrCreate: lookup: %w", err)
	}

	id = uuid.New().String()
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO conversations (id, session_id, metadata, created_at, updated_at)
		VALUES ($1, $2, '{}'::jsonb, $3, $3)
		ON CONFLICT (session_id) DO NOTHING
	`, id, sessionID, now)
	if err != nil {
		return "", fmt.Errorf("repository.ConversationStore.GetOrCreate: insert: %w", err)
	}

	// Someone may have raced us; re-read to get the winning row.
	if err := s.pool.QueryRow(ctx, `
		SELECT id FROM conversations WHERE session_id = $1
	`, sessionID).Scan(&id); err != nil {
		return "", fmt.Errorf("repository.ConversationStore.GetOrCreate: reread: %w", err)
	}

	return id, nil
}

// GetHistory returns the last `window` turns of a conversation, oldest first,
// as Messages alternating user/assistant.
func (s *ConversationStore) GetHistory(ctx context.Context, sessionID string, window int) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ct.user_query, ct.agent_response
		FROM conversation_turns ct
		JOIN conversations c ON ct.conversation_ref = c.id
		WHERE c.session_id = $1
		ORDER BY ct.turn_number DESC
		LIMIT $2
	`, sessionID, window)
	if err != nil {
		return nil, fmt.Errorf("repository.ConversationStore.GetHistory: %w", err)
	}
	defer rows.Close()

	type pair struct{ q, a string }
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.q, &p.a); err != nil {
			return nil, fmt.Errorf("repository.ConversationStore.GetHistory: scan: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ConversationStore.GetHistory: rows: %w", err)
	}

	messages := make([]model.Message, 0, len(pairs)*2)
	for i := len(pairs) - 1; i >= 0; i-- {
		messages = append(messages,
			model.Message{Role: "user", Content: pairs[i].q},
			model.Message{Role: "assistant", Content: pairs[i].a},
		)
	}
	return messages, nil
}

// SaveTurn atomically assigns the next turn_number for the conversation and
// inserts the turn, serialized per session via a row lock on the
// conversation.
func (s *ConversationStore) SaveTurn(ctx context.Context, sessionID string, turn model.TurnData) (*model.ConversationTurn, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository.ConversationStore.SaveTurn: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var conversationRef string
	err = tx.QueryRow(ctx, `
		SELECT id FROM conversations WHERE session_id = $1 FOR UPDATE
	`, sessionID).Scan(&conversationRef)
	if err != nil {
		return nil, fmt.Errorf("repository.ConversationStore.SaveTurn: lock conversation: %w", err)
	}

	var nextTurn int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(turn_number) + 1, 0) FROM conversation_turns WHERE conversation_ref = $1
	`, conversationRef).Scan(&nextTurn)
	if err != nil {
		return nil, fmt.Errorf("repository.ConversationStore.SaveTurn: next turn: %w", err)
	}

	sourcesJSON, err := json.Marshal(turn.Sources)
	if err != nil {
		return nil, fmt.Errorf("repository.ConversationStore.SaveTurn: marshal sources: %w", err)
	}
	stepsJSON, err := json.Marshal(turn.ReasoningSteps)
	if err != nil {
		return nil, fmt.Errorf("repository.ConversationStore.SaveTurn: marshal steps: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		INSERT INTO conversation_turns
			(id, conversation_ref, turn_number, user_query, agent_response, provider, model,
			 guardrail_score, retrieval_attempts, rewritten_query, sources, reasoning_steps, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		id, conversationRef, nextTurn, turn.UserQuery, turn.AgentResponse, turn.Provider, turn.Model,
		turn.GuardrailScore, turn.RetrievalAttempts, turn.RewrittenQuery, sourcesJSON, stepsJSON, now,
	)
	if err != nil {
		return nil, fmt.Errorf("repository.ConversationStore.SaveTurn: insert: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE conversations SET updated_at = $1 WHERE id = $2
	`, now, conversationRef); err != nil {
		return nil, fmt.Errorf("repository.ConversationStore.SaveTurn: touch conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository.ConversationStore.SaveTurn: commit: %w", err)
	}

	return &model.ConversationTurn{
		ID:                id,
		ConversationRef:   conversationRef,
		TurnNumber:        nextTurn,
		UserQuery:         turn.UserQuery,
		AgentResponse:     turn.AgentResponse,
		Provider:          turn.Provider,
		Model:             turn.Model,
		GuardrailScore:    turn.GuardrailScore,
		RetrievalAttempts: turn.RetrievalAttempts,
		RewrittenQuery:    turn.RewrittenQuery,
		Sources:           turn.Sources,
		ReasoningSteps:    turn.ReasoningSteps,
		CreatedAt:         now,
	}, nil
}

// ListSessions returns a page of conversation summaries, most recently
// updated first, plus the total number of conversations.
func (s *ConversationStore) ListSessions(ctx context.Context, offset, limit int) ([]model.ConversationSummary, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.ConversationStore.ListSessions: count: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.session_id, COUNT(ct.id),
		       COALESCE((ARRAY_AGG(ct.user_query ORDER BY ct.turn_number DESC))[1], ''),
		       c.created_at, c.updated_at
		FROM conversations c
		LEFT JOIN conversation_turns ct ON ct.conversation_ref = c.id
		GROUP BY c.id
		ORDER BY c.updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ConversationStore.ListSessions: %w", err)
	}
	defer rows.Close()

	var summaries []model.ConversationSummary
	for rows.Next() {
		var cs model.ConversationSummary
		if err := rows.Scan(&cs.SessionID, &cs.TurnCount, &cs.LastQuery, &cs.CreatedAt, &cs.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("repository.ConversationStore.ListSessions: scan: %w", err)
		}
		summaries = append(summaries, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository.ConversationStore.ListSessions: rows: %w", err)
	}

	return summaries, total, nil
}

// GetConversation returns the conversation row for sessionID.
func (s *ConversationStore) GetConversation(ctx context.Context, sessionID string) (*model.Conversation, error) {
	var c model.Conversation
	err := s.pool.QueryRow(ctx, `
		SELECT id, session_id, created_at, updated_at FROM conversations WHERE session_id = $1
	`, sessionID).Scan(&c.ID, &c.SessionID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository.ConversationStore.GetConversation: %w", err)
	}
	return &c, nil
}

// ListTurns returns every turn of a conversation in chronological order.
func (s *ConversationStore) ListTurns(ctx context.Context, sessionID string) ([]model.ConversationTurn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ct.id, ct.conversation_ref, ct.turn_number, ct.user_query, ct.agent_response,
		       ct.provider, ct.model, ct.guardrail_score, ct.retrieval_attempts, ct.rewritten_query,
		       ct.sources, ct.reasoning_steps, ct.created_at
		FROM conversation_turns ct
		JOIN conversations c ON ct.conversation_ref = c.id
		WHERE c.session_id = $1
		ORDER BY ct.turn_number ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("repository.ConversationStore.ListTurns: %w", err)
	}
	defer rows.Close()

	var turns []model.ConversationTurn
	for rows.Next() {
		var t model.ConversationTurn
		var sourcesJSON, stepsJSON []byte
		if err := rows.Scan(&t.ID, &t.ConversationRef, &t.TurnNumber, &t.UserQuery, &t.AgentResponse,
			&t.Provider, &t.Model, &t.GuardrailScore, &t.RetrievalAttempts, &t.RewrittenQuery,
			&sourcesJSON, &stepsJSON, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.ConversationStore.ListTurns: scan: %w", err)
		}
		if len(sourcesJSON) > 0 {
			if err := json.Unmarshal(sourcesJSON, &t.Sources); err != nil {
				return nil, fmt.Errorf("repository.ConversationStore.ListTurns: unmarshal sources: %w", err)
			}
		}
		if len(stepsJSON) > 0 {
			if err := json.Unmarshal(stepsJSON, &t.ReasoningSteps); err != nil {
				return nil, fmt.Errorf("repository.ConversationStore.ListTurns: unmarshal steps: %w", err)
			}
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ConversationStore.ListTurns: rows: %w", err)
	}

	return turns, nil
}

// Delete removes a conversation and (via ON DELETE CASCADE) all its turns,
// returning the number of turns deleted.
func (s *ConversationStore) Delete(ctx context.Context, sessionID string) (int, error) {
	var turnsDeleted int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM conversation_turns ct
		JOIN conversations c ON ct.conversation_ref = c.id
		WHERE c.session_id = $1
	`, sessionID).Scan(&turnsDeleted)
	if err != nil {
		return 0, fmt.Errorf("repository.ConversationStore.Delete: count turns: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("repository.ConversationStore.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("repository.ConversationStore.Delete: no conversation for session %q", sessionID)
	}
	return turnsDeleted, nil
}
