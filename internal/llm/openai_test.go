package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIClient_Complete_ReturnsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			}{{Message: struct {
				Content string `json:"content"`
			}{Content: "hello there"}}},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", srv.URL, "gpt-4o-mini")
	text, err := c.Complete(context.Background(), "sys", "user", CompletionOpts{Temperature: 0.3})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "hello there" {
		t.Errorf("got %q, want %q", text, "hello there")
	}
}

func TestOpenAIClient_Complete_PropagatesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "quota exceeded"},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, "m")
	_, err := c.Complete(context.Background(), "sys", "user", CompletionOpts{})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenAIClient_Complete_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, "m")
	_, err := c.Complete(context.Background(), "sys", "user", CompletionOpts{})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenAIClient_CompleteStructured_SetsJSONMode(t *testing.T) {
	var gotFormat map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotFormat = req.ResponseFormat
		json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, "m")
	_, _ = c.CompleteStructured(context.Background(), "sys", "user", CompletionOpts{})
	if gotFormat == nil || gotFormat["type"] != "json_object" {
		t.Errorf("expected json_object response_format, got %v", gotFormat)
	}
}

func TestOpenAIClient_Stream_YieldsTokensInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for _, tok := range []string{"Hel", "lo", " world"} {
			chunk := chatStreamChunk{}
			chunk.Choices = []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			}{{Delta: struct {
				Content string `json:"content"`
			}{Content: tok}}}
			data, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, "m")
	tokenCh, errCh := c.Stream(context.Background(), "sys", "user", CompletionOpts{})

	var got string
	for tok := range tokenCh {
		got += tok
	}
	if err := <-errCh; err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if got != "Hello world" {
		t.Errorf("got %q, want %q", got, "Hello world")
	}
}

func TestOpenAIClient_Stream_CancelStopsEarly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewOpenAIClient("k", srv.URL, "m")
	tokenCh, errCh := c.Stream(ctx, "sys", "user", CompletionOpts{})
	cancel()

	for range tokenCh {
	}
	if err := <-errCh; err == nil {
		t.Error("expected an error after cancellation")
	}
}
