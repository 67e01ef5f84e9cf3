package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"searchagent/internal/domain"
)

func TestOpenAI_ChatSendsToolsAndZeroTemperature(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"",
			"tool_calls":[{"id":"call_1","type":"function","function":{"name":"crypto_search","arguments":"{\"query\":\"btc\"}"}}]},
			"finish_reason":"tool_calls"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "sk-test", APIBase: srv.URL + "/v1", Logger: testLogger()})
	resp, err := o.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: "user", Content: "bitcoin?"}},
		Tools:    []domain.ToolDefinition{{Name: "crypto_search", Description: "d", Parameters: map[string]any{"type": "object"}}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	if got["model"] != "gpt-4" {
		t.Fatalf("expected default model gpt-4, got %v", got["model"])
	}
	if temp, ok := got["temperature"]; !ok || temp != float64(0) {
		t.Fatalf("temperature 0 must be sent explicitly, got %v", got["temperature"])
	}
	if tools, _ := got["tools"].([]any); len(tools) != 1 {
		t.Fatalf("expected one tool definition, got %v", got["tools"])
	}

	if !resp.HasToolCalls() || resp.ToolCalls[0].Name != "crypto_search" || resp.ToolCalls[0].Arguments["query"] != "btc" {
		t.Fatalf("unexpected tool calls: %+v", resp.ToolCalls)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Fatalf("expected usage 15, got %d", resp.Usage.TotalTokens)
	}
}

func TestOpenAI_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "k", APIBase: srv.URL, MaxRetries: 1, Logger: testLogger()})
	o.retry.BaseDelay = 1

	resp, err := o.Chat(context.Background(), domain.ChatRequest{Messages: []domain.Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "hello" || calls.Load() != 2 {
		t.Fatalf("expected recovery on second attempt, content=%q calls=%d", resp.Content, calls.Load())
	}
}

func TestOpenAI_ClientErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "bad", APIBase: srv.URL, Logger: testLogger()})
	_, err := o.Chat(context.Background(), domain.ChatRequest{})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
}

func TestOllama_ChatParsesStringArguments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["stream"] != false {
			t.Errorf("expected non-streaming request")
		}
		opts, _ := body["options"].(map[string]any)
		if opts["temperature"] != float64(0) {
			t.Errorf("expected temperature option 0, got %v", opts["temperature"])
		}
		w.Write([]byte(`{"message":{"role":"assistant","content":"",
			"tool_calls":[{"function":{"name":"wikipedia","arguments":"{\"query\":\"go\"}"}}]},
			"done":true,"done_reason":"stop","prompt_eval_count":3,"eval_count":4}`))
	}))
	defer srv.Close()

	o := NewOllama(OllamaConfig{APIBase: srv.URL, Logger: testLogger()})
	resp, err := o.Chat(context.Background(), domain.ChatRequest{Messages: []domain.Message{{Role: "user", Content: "go?"}}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Arguments["query"] != "go" {
		t.Fatalf("unexpected tool calls: %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[0].ID != "call_0" {
		t.Fatalf("expected synthesized id call_0, got %q", resp.ToolCalls[0].ID)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Fatalf("expected 7 tokens, got %d", resp.Usage.TotalTokens)
	}
}
