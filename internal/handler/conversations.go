package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/paperrag/agent/internal/model"
)

// ConversationStore is the narrow interface the conversations handlers need;
// repository.ConversationStore satisfies it directly.
type ConversationStore interface {
	ListSessions(ctx context.Context, offset, limit int) ([]model.ConversationSummary, int, error)
	GetConversation(ctx context.Context, sessionID string) (*model.Conversation, error)
	ListTurns(ctx context.Context, sessionID string) ([]model.ConversationTurn, error)
	Delete(ctx context.Context, sessionID string) (int, error)
}

const defaultListLimit = 20

// ListConversations wires GET /conversations?offset&limit.
func ListConversations(store ConversationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		offset := 0
		if v := r.URL.Query().Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		summaries, total, err := store.ListSessions(r.Context(), offset, limit)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to list conversations")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"total":         total,
			"offset":        offset,
			"limit":         limit,
			"conversations": summaries,
		})
	}
}

// GetConversation wires GET /conversations/{session_id}.
func GetConversation(store ConversationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "session_id")

		conv, err := store.GetConversation(r.Context(), sessionID)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "unknown session")
			return
		}

		turns, err := store.ListTurns(r.Context(), sessionID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to load turns")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": sessionID,
			"created_at": conv.CreatedAt,
			"updated_at": conv.UpdatedAt,
			"turns":      turns,
		})
	}
}

// DeleteConversation wires DELETE /conversations/{session_id}.
func DeleteConversation(store ConversationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "session_id")

		n, err := store.Delete(r.Context(), sessionID)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "unknown session")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"session_id":    sessionID,
			"turns_deleted": n,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
