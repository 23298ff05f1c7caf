package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// WebSearchSpec describes the web_search tool for router prompting.
var WebSearchSpec = Spec{
	Name:        "web_search",
	Description: "Search the public web for context not present in the paper corpus.",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query":       map[string]interface{}{"type": "string"},
			"max_results": map[string]interface{}{"type": "integer", "maximum": 10},
		},
		"required": []string{"query"},
	},
}

// WebSearchTool implements web_search(query, max_results<=10). Any
// transport failure is returned as a *ToolError, which ToolExecutor turns
// into a {success: false} result.
type WebSearchTool struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewWebSearchTool creates a WebSearchTool calling a search API at endpoint.
func NewWebSearchTool(endpoint, apiKey string) *WebSearchTool {
	return &WebSearchTool{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type webSearchResult struct {
	Results []webSearchHit `json:"results"`
}

type webSearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Execute calls the configured search API and shapes its output.
func (t *WebSearchTool) Execute(ctx context.Context, params map[string]interface{}) (*ToolResult, error) {
	query, _ := params["query"].(string)
	if query == "" {
		return nil, NewValidationError("web_search", "query is required")
	}

	maxResults := 5
	if raw, ok := params["max_results"]; ok {
		if n, ok := toInt(raw); ok {
			maxResults = n
		}
	}
	if maxResults > 10 {
		maxResults = 10
	}

	reqURL := fmt.Sprintf("%s?q=%s&limit=%d", t.endpoint, url.QueryEscape(query), maxResults)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, NewUpstreamError("web_search", err)
	}
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, NewUpstreamError("web_search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewUpstreamError("web_search", fmt.Errorf("status %d", resp.StatusCode))
	}

	var payload webSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewUpstreamError("web_search", err)
	}

	return &ToolResult{Data: payload}, nil
}
