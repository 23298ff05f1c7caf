package tools

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultToolTimeout is the maximum time a tool may run.
const DefaultToolTimeout = 30 * time.Second

// Tool is the interface every registered tool must implement.
type Tool interface {
	Execute(ctx context.Context, params map[string]interface{}) (*ToolResult, error)
}

// ToolResult is the successful return value from a tool execution.
type ToolResult struct {
	Data     interface{} `json:"data"`
	UIAction interface{} `json:"uiAction,omitempty"`
}

// Result is the envelope every tool call produces, win or lose; tools never
// raise, the executor surfaces failures here.
type Result struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	ToolName string      `json:"tool_name"`
}

// ToolExecutor dispatches tool calls by name with a timeout, panic
// recovery, and a per-tool rate limiter guarding against runaway router
// loops.
type ToolExecutor struct {
	registry *Registry

	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	limitPerSec float64
	limitBurst  int
}

// NewToolExecutor creates an executor dispatching against registry, with a
// token-bucket limiter per tool name.
func NewToolExecutor(registry *Registry, limitPerSec float64, limitBurst int) *ToolExecutor {
	return &ToolExecutor{
		registry:    registry,
		limiters:    make(map[string]*rate.Limiter),
		limitPerSec: limitPerSec,
		limitBurst:  limitBurst,
	}
}

// Execute runs a tool with rate limiting, a timeout, and panic recovery.
// It never returns a Go error for tool-level failures; those are reported
// in Result.Success/Result.Error so the executor node can append a
// tool_history entry regardless of outcome.
func (e *ToolExecutor) Execute(ctx context.Context, toolName string, params map[string]interface{}) *Result {
	if !e.limiterFor(toolName).Allow() {
		return &Result{Success: false, Error: NewRateLimitedError(toolName).Error(), ToolName: toolName}
	}

	result, err := e.executeWithErrorHandling(ctx, toolName, params)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ToolName: toolName}
	}
	return &Result{Success: true, Data: result.Data, ToolName: toolName}
}

func (e *ToolExecutor) limiterFor(toolName string) *rate.Limiter {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.limiters[toolName]
	if !ok {
		l = rate.NewLimiter(rate.Limit(e.limitPerSec), e.limitBurst)
		e.limiters[toolName] = l
	}
	return l
}

// executeWithErrorHandling wraps tool execution with timeout and panic recovery.
func (e *ToolExecutor) executeWithErrorHandling(ctx context.Context, toolName string, params map[string]interface{}) (result *ToolResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultToolTimeout)
	defer cancel()

	tool, exists := e.registry.Lookup(toolName)
	if !exists {
		return nil, NewToolNotFoundError(toolName)
	}

	defer func() {
		if p := recover(); p != nil {
			err = NewInternalError(toolName)
		}
	}()

	result, err = tool.Execute(ctx, params)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, NewTimeoutError(toolName, DefaultToolTimeout)
	}

	if err != nil {
		if _, ok := err.(*ToolError); !ok {
			return nil, NewUpstreamError(toolName, err)
		}
	}

	return result, err
}
