package model

import "time"

// Conversation is a session thread, lazily created on first turn.
type Conversation struct {
	ID        string            `json:"id"`
	SessionID string            `json:"sessionId"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Message is one turn of conversation history as presented to a node.
type Message struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// ConversationTurn is one user<->assistant exchange within a conversation.
// (conversation_ref, turn_number) is unique; turn numbers form a dense
// prefix 0..n-1 within a conversation.
type ConversationTurn struct {
	ID                string    `json:"id"`
	ConversationRef   string    `json:"conversationRef"`
	TurnNumber        int       `json:"turnNumber"`
	UserQuery         string    `json:"userQuery"`
	AgentResponse     string    `json:"agentResponse"`
	Provider          string    `json:"provider"`
	Model             string    `json:"model"`
	GuardrailScore    *int      `json:"guardrailScore,omitempty"`
	RetrievalAttempts int       `json:"retrievalAttempts"`
	RewrittenQuery    *string   `json:"rewrittenQuery,omitempty"`
	Sources           []Source  `json:"sources,omitempty"`
	ReasoningSteps    []string  `json:"reasoningSteps,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// TurnData is the input to ConversationStore.SaveTurn — everything about a
// turn except the assigned ID and turn_number.
type TurnData struct {
	UserQuery         string
	AgentResponse     string
	Provider          string
	Model             string
	GuardrailScore    *int
	RetrievalAttempts int
	RewrittenQuery    *string
	Sources           []Source
	ReasoningSteps    []string
}

// ConversationSummary is one row of list_sessions.
type ConversationSummary struct {
	SessionID string    `json:"sessionId"`
	TurnCount int       `json:"turnCount"`
	LastQuery string    `json:"lastQuery,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
