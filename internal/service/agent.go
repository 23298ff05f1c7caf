// Package service orchestrates a single request end to end: load history,
// run the execution engine, persist the turn, and shape the response —
// mirroring handler.Chat's sequencing in the teacher (embed/cache check ->
// retrieve -> generate -> reflect -> persist -> emit) but factored out as a
// transport-agnostic method, since spec §4.I requires ask() to return an
// event stream rather than write directly to an http.ResponseWriter.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paperrag/agent/internal/agentstate"
	"github.com/paperrag/agent/internal/engine"
	"github.com/paperrag/agent/internal/events"
	"github.com/paperrag/agent/internal/model"
)

// Defaults mirrors agentstate.Limits; the zero value of each AskRequest
// field falls back to these when the caller doesn't override.
type Defaults struct {
	Provider             string
	Model                string
	Temperature          float64
	TopK                 int
	GuardrailThreshold   int
	MaxRetrievalAttempts int
	ConversationWindow   int
	MaxIterations        int
}

// ConversationStore is the narrow persistence interface AgentService needs.
// repository.ConversationStore satisfies it directly.
type ConversationStore interface {
	GetOrCreate(ctx context.Context, sessionID string) (string, error)
	GetHistory(ctx context.Context, sessionID string, window int) ([]model.Message, error)
	SaveTurn(ctx context.Context, sessionID string, turn model.TurnData) (*model.ConversationTurn, error)
}

// AskRequest is the input to AgentService.Ask, matching the POST /stream
// wire shape (spec §6).
type AskRequest struct {
	Query                string
	SessionID            string
	Provider             string
	Model                string
	TopK                 int
	GuardrailThreshold   int
	MaxRetrievalAttempts int
	Temperature          float64
	ConversationWindow   int
}

// AskResult is returned alongside the event channel: a summary available
// once the engine has completed, useful for non-streaming callers/tests.
type AskResult struct {
	TurnNumber int
	Status     agentstate.Status
}

// TurnMetrics records the domain gauges a completed turn exercises.
// middleware.Metrics satisfies this directly; kept as a narrow interface
// here so AgentService doesn't need to import the middleware package.
type TurnMetrics interface {
	RecordGuardrailRejection()
	ObserveRetrievalAttempts(attempts int)
}

// AgentService runs one request through the execution engine and persists
// the resulting turn. EngineFor builds (or selects) the Engine wired to the
// requested provider/model, matching how the teacher resolves its LLM client
// per request rather than pinning one client at startup.
type AgentService struct {
	Store       ConversationStore
	Defaults    Defaults
	EngineFor   func(provider, model string) (*engine.Engine, error)
	ChannelSize int
	Metrics     TurnMetrics // optional; nil disables domain metrics
}

// Ask validates the request, loads conversation history, constructs the
// initial AgentState, and runs the engine in a background goroutine,
// returning immediately with the event channel the caller streams to the
// client. On terminal state it persists the turn (unless cancelled or
// session_id is empty) and emits Metadata then Done.
func (s *AgentService) Ask(ctx context.Context, req AskRequest) (*events.Channel, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("service.Ask: query is empty")
	}

	limits := s.resolveLimits(req)

	var history []model.Message
	if req.SessionID != "" {
		h, err := s.Store.GetHistory(ctx, req.SessionID, limits.ConversationWindow)
		if err != nil {
			return nil, fmt.Errorf("service.Ask: load history: %w", err)
		}
		history = h
	}

	provider := req.Provider
	if provider == "" {
		provider = s.Defaults.Provider
	}
	modelName := req.Model
	if modelName == "" {
		modelName = s.Defaults.Model
	}

	eng, err := s.EngineFor(provider, modelName)
	if err != nil {
		return nil, fmt.Errorf("service.Ask: %w", err)
	}

	st := agentstate.New(req.Query, req.SessionID, history, limits)
	st.Provider = provider
	st.Model = modelName

	channelSize := s.ChannelSize
	if channelSize <= 0 {
		channelSize = 16
	}
	ch := events.NewChannel(channelSize)

	go s.run(ctx, eng, st, ch)

	return ch, nil
}

func (s *AgentService) run(ctx context.Context, eng *engine.Engine, st *agentstate.State, ch *events.Channel) {
	defer ch.Finish()

	startedAt := time.Now().UTC()
	emit := func(ev events.Event) error { return ch.Emit(ctx, ev) }

	err := eng.Run(ctx, st, emit)
	if err == events.ErrCancelled {
		slog.Info("[AGENT] run cancelled", "session_id", st.SessionID)
		return
	}
	if err != nil {
		slog.Error("[AGENT] run failed", "session_id", st.SessionID, "error", err)
		_ = emit(events.ErrorEvent(err.Error(), "engine_error"))
		_ = emit(events.Done())
		return
	}

	if s.Metrics != nil {
		if st.GuardrailResult != nil && !st.GuardrailResult.InScope {
			s.Metrics.RecordGuardrailRejection()
		}
		s.Metrics.ObserveRetrievalAttempts(st.RetrievalAttempts)
	}

	execMs := time.Since(startedAt).Milliseconds()
	meta := events.MetadataPayload{
		ExecutionTimeMs:   execMs,
		RetrievalAttempts: st.RetrievalAttempts,
		RewrittenQuery:    st.RewrittenQuery,
		Provider:          st.Provider,
		Model:             st.Model,
		ReasoningSteps:    st.ReasoningSteps,
	}
	if st.GuardrailResult != nil {
		score := st.GuardrailResult.Score
		meta.GuardrailScore = &score
	}

	if st.SessionID == "" {
		meta.TurnNumber = 0
		_ = emit(events.Metadata(meta))
		_ = emit(events.Done())
		return
	}

	if st.Status == agentstate.StatusFailed {
		meta.TurnNumber = -1
		_ = emit(events.Metadata(meta))
		_ = emit(events.Done())
		return
	}

	if _, err := s.Store.GetOrCreate(ctx, st.SessionID); err != nil {
		slog.Error("[AGENT] get_or_create failed", "session_id", st.SessionID, "error", err)
		meta.TurnNumber = -1
		meta.Error = err.Error()
		_ = emit(events.Metadata(meta))
		_ = emit(events.Done())
		return
	}

	turn, err := s.Store.SaveTurn(ctx, st.SessionID, model.TurnData{
		UserQuery:         st.OriginalQuery,
		AgentResponse:     st.FinalAnswer,
		Provider:          st.Provider,
		Model:             st.Model,
		GuardrailScore:    meta.GuardrailScore,
		RetrievalAttempts: st.RetrievalAttempts,
		RewrittenQuery:    st.RewrittenQuery,
		Sources:           st.Sources,
		ReasoningSteps:    st.ReasoningSteps,
	})
	if err != nil {
		slog.Error("[AGENT] save_turn failed", "session_id", st.SessionID, "error", err)
		meta.TurnNumber = -1
		meta.Error = fmt.Sprintf("persistence failed: %v", err)
		_ = emit(events.Metadata(meta))
		_ = emit(events.Done())
		return
	}

	meta.SessionID = st.SessionID
	meta.TurnNumber = turn.TurnNumber
	_ = emit(events.Metadata(meta))
	_ = emit(events.Done())
}

func (s *AgentService) resolveLimits(req AskRequest) agentstate.Limits {
	limits := agentstate.Limits{
		Temperature:          s.Defaults.Temperature,
		TopK:                 s.Defaults.TopK,
		GuardrailThreshold:   s.Defaults.GuardrailThreshold,
		MaxRetrievalAttempts: s.Defaults.MaxRetrievalAttempts,
		ConversationWindow:   s.Defaults.ConversationWindow,
		MaxIterations:        s.Defaults.MaxIterations,
	}
	if req.Temperature > 0 {
		limits.Temperature = req.Temperature
	}
	if req.TopK > 0 {
		limits.TopK = req.TopK
	}
	if req.GuardrailThreshold > 0 {
		limits.GuardrailThreshold = req.GuardrailThreshold
	}
	if req.MaxRetrievalAttempts > 0 {
		limits.MaxRetrievalAttempts = req.MaxRetrievalAttempts
	}
	if req.ConversationWindow > 0 {
		limits.ConversationWindow = req.ConversationWindow
	}
	return limits
}
