// Package events defines the tagged event variant the execution engine
// emits and a single-producer/single-consumer channel for streaming them
// to a transport.
package events

import "github.com/paperrag/agent/internal/model"

// Type names one of the six SSE-visible event kinds.
type Type string

const (
	TypeStatus   Type = "status"
	TypeContent  Type = "content"
	TypeSources  Type = "sources"
	TypeMetadata Type = "metadata"
	TypeError    Type = "error"
	TypeDone     Type = "done"
)

// Event is one item on the event channel. Exactly one of the payload
// fields is meaningful, selected by Type.
type Event struct {
	Type Type

	Status   *StatusPayload
	Content  *ContentPayload
	Sources  *SourcesPayload
	Metadata *MetadataPayload
	Error    *ErrorPayload
}

// StatusPayload reports a node transition.
type StatusPayload struct {
	Step    string         `json:"step"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ContentPayload carries one streamed generation token.
type ContentPayload struct {
	Token string `json:"token"`
}

// SourcesPayload carries the citation list, sent once before the first
// generator token.
type SourcesPayload struct {
	Sources []model.Source `json:"sources"`
}

// MetadataPayload carries end-of-run bookkeeping.
type MetadataPayload struct {
	SessionID         string   `json:"sessionId,omitempty"`
	TurnNumber        int      `json:"turnNumber"`
	ExecutionTimeMs   int64    `json:"executionTimeMs"`
	RetrievalAttempts int      `json:"retrievalAttempts"`
	RewrittenQuery    *string  `json:"rewrittenQuery,omitempty"`
	GuardrailScore    *int     `json:"guardrailScore,omitempty"`
	Provider          string   `json:"provider"`
	Model             string   `json:"model"`
	ReasoningSteps    []string `json:"reasoningSteps,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// ErrorPayload carries a fatal error.
type ErrorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Status builds a Status event.
func Status(step, message string, details map[string]any) Event {
	return Event{Type: TypeStatus, Status: &StatusPayload{Step: step, Message: message, Details: details}}
}

// Content builds a Content event.
func Content(token string) Event {
	return Event{Type: TypeContent, Content: &ContentPayload{Token: token}}
}

// Sources builds a Sources event.
func Sources(sources []model.Source) Event {
	return Event{Type: TypeSources, Sources: &SourcesPayload{Sources: sources}}
}

// Metadata builds a Metadata event.
func Metadata(m MetadataPayload) Event {
	return Event{Type: TypeMetadata, Metadata: &m}
}

// ErrorEvent builds an Error event.
func ErrorEvent(err string, code string) Event {
	return Event{Type: TypeError, Error: &ErrorPayload{Error: err, Code: code}}
}

// Done builds a Done event.
func Done() Event {
	return Event{Type: TypeDone}
}
