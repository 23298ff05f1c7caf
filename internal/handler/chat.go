package handler

import (
	"encoding/json"
	"net/http"

	"github.com/paperrag/agent/internal/service"
	"github.com/paperrag/agent/internal/transport"
)

// streamRequest is the POST /stream body.
type streamRequest struct {
	Query                string  `json:"query"`
	Provider             string  `json:"provider,omitempty"`
	Model                string  `json:"model,omitempty"`
	TopK                 int     `json:"top_k,omitempty"`
	GuardrailThreshold   int     `json:"guardrail_threshold,omitempty"`
	MaxRetrievalAttempts int     `json:"max_retrieval_attempts,omitempty"`
	Temperature          float64 `json:"temperature,omitempty"`
	SessionID            string  `json:"session_id,omitempty"`
	ConversationWindow   int     `json:"conversation_window,omitempty"`
}

// Chat wires POST /stream: decode the request, start the agent, and drain
// the resulting event channel onto the response as SSE. Mirrors the
// teacher's chat handler shape but delegates all orchestration to
// service.AgentService.
func Chat(agent *service.AgentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req streamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Query == "" {
			writeJSONError(w, http.StatusBadRequest, "query is required")
			return
		}

		ch, err := agent.Ask(r.Context(), service.AskRequest{
			Query:                req.Query,
			SessionID:            req.SessionID,
			Provider:             req.Provider,
			Model:                req.Model,
			TopK:                 req.TopK,
			GuardrailThreshold:   req.GuardrailThreshold,
			MaxRetrievalAttempts: req.MaxRetrievalAttempts,
			Temperature:          req.Temperature,
			ConversationWindow:   req.ConversationWindow,
		})
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to start agent")
			return
		}

		_ = transport.WriteSSE(w, r, ch)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
