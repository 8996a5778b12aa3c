package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIProvider(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"content": "hello", "role": "assistant"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	p, _ := NewOpenAIProvider("test-key", server.URL, "gpt-4")
	if p.Name() != "openai" {
		t.Errorf("Expected 'openai', got '%s'", p.Name())
	}

	resp, err := p.Chat(context.Background(), Request{
		System:   "be nice",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("Expected 'hello', got '%s'", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("Expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}

	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("Expected system + user message, got %d", len(msgs))
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != RoleSystem || first["content"] != "be nice" {
		t.Errorf("Expected leading system message, got %v", first)
	}
}

func TestOpenAIProviderStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}`,
			`{"choices":[{"index":0,"delta":{"content":"lo"}}]}`,
			`{"choices":[],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`,
		}
		for _, c := range chunks {
			w.Write([]byte("data: " + c + "\n\n"))
		}
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	p, _ := NewOpenAIProvider("test-key", server.URL, "")

	var deltas []string
	resp, err := p.Stream(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	}, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if resp.Content != "Hello" {
		t.Errorf("Expected 'Hello', got '%s'", resp.Content)
	}
	if len(deltas) != 2 {
		t.Errorf("Expected 2 deltas, got %d", len(deltas))
	}
	if resp.Usage.TotalTokens != 5 {
		t.Errorf("Expected 5 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestOllamaProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message": {"role": "assistant", "content": "hi from ollama"}, "done": true, "eval_count": 10, "prompt_eval_count": 5}`))
	}))
	defer server.Close()

	t.Setenv("OLLAMA_HOST", server.URL)

	p, err := NewOllamaProvider("llama3")
	if err != nil {
		t.Fatalf("NewOllamaProvider failed: %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("Expected 'ollama', got '%s'", p.Name())
	}

	resp, err := p.Chat(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "hi from ollama" {
		t.Errorf("Expected 'hi from ollama', got '%s'", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("Expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestOllamaProviderStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"message": {"role": "assistant", "content": "hi "}, "done": false}` + "\n"))
		w.Write([]byte(`{"message": {"role": "assistant", "content": "there"}, "done": false}` + "\n"))
		w.Write([]byte(`{"message": {"role": "assistant", "content": ""}, "done": true, "eval_count": 2, "prompt_eval_count": 4}` + "\n"))
	}))
	defer server.Close()

	t.Setenv("OLLAMA_HOST", server.URL)
	p, _ := NewOllamaProvider("")

	var deltas []string
	resp, err := p.Stream(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	}, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if strings.Join(deltas, "") != "hi there" {
		t.Errorf("Expected deltas to spell 'hi there', got %q", deltas)
	}
	if resp.Content != "hi there" {
		t.Errorf("Expected 'hi there', got '%s'", resp.Content)
	}
}

func TestAnthropicProvider(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("Expected api key header, got %q", r.Header.Get("X-Api-Key"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_123",
			"type": "message",
			"role": "assistant",
			"model": "claude-3",
			"content": [{"type": "text", "text": "hello from claude"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 5, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	p, _ := NewAnthropicProvider("test-key", server.URL, "claude-3")
	if p.Name() != "anthropic" {
		t.Errorf("Expected 'anthropic', got '%s'", p.Name())
	}

	resp, err := p.Chat(context.Background(), Request{
		System:   "remember things",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "hello from claude" {
		t.Errorf("Expected 'hello from claude', got '%s'", resp.Content)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("Expected 10 total tokens, got %d", resp.Usage.TotalTokens)
	}
	if got["system"] == nil {
		t.Error("Expected system prompt in request body")
	}
	if got["max_tokens"] != float64(anthropicDefaultMaxTokens) {
		t.Errorf("Expected default max_tokens, got %v", got["max_tokens"])
	}
}

func TestAnthropicProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	p, _ := NewAnthropicProvider("bad-key", server.URL, "")
	_, err := p.Chat(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("Expected error for 401 response")
	}
}

func TestMissingAPIKey(t *testing.T) {
	if _, err := NewOpenAIProvider("", "", ""); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("openai: expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := NewAnthropicProvider("", "", ""); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("anthropic: expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := NewGeminiProvider("", ""); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("gemini: expected ErrMissingAPIKey, got %v", err)
	}
}

func TestStubProvider(t *testing.T) {
	p := &StubProvider{Responses: []Response{{Content: "one"}, {Content: "two three"}}}

	r1, _ := p.Chat(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "a"}}})
	if r1.Content != "one" {
		t.Errorf("Expected 'one', got '%s'", r1.Content)
	}

	var deltas []string
	r2, err := p.Stream(context.Background(), Request{}, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if r2.Content != "two three" || len(deltas) != 2 {
		t.Errorf("Expected 2 deltas of 'two three', got %q", deltas)
	}

	// The last response repeats once the queue is drained.
	r3, _ := p.Chat(context.Background(), Request{})
	if r3.Content != "two three" {
		t.Errorf("Expected repeat of last response, got '%s'", r3.Content)
	}

	if n := len(p.Requests()); n != 3 {
		t.Errorf("Expected 3 recorded requests, got %d", n)
	}

	t.Run("error", func(t *testing.T) {
		boom := errors.New("boom")
		p := &StubProvider{Err: boom}
		if _, err := p.Chat(context.Background(), Request{}); !errors.Is(err, boom) {
			t.Errorf("Expected boom, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := NewStubProvider().Chat(ctx, Request{}); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}

func TestCLIProvider(t *testing.T) {
	p, err := NewCLIProvider("echo", nil)
	if err != nil {
		t.Fatalf("NewCLIProvider failed: %v", err)
	}
	if p.Name() != "cli-echo" {
		t.Errorf("Expected 'cli-echo', got '%s'", p.Name())
	}

	resp, err := p.Chat(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if strings.TrimSpace(resp.Content) != "hello" {
		t.Errorf("Expected 'hello', got %q", resp.Content)
	}

	if _, err := NewCLIProvider("", nil); err == nil {
		t.Error("Expected error for empty binary path")
	}
}

func TestCLIProviderPrompt(t *testing.T) {
	p, _ := NewCLIProvider("echo", nil)
	prompt := p.prompt(Request{
		System: "sys",
		Messages: []Message{
			{Role: RoleUser, Content: "first"},
			{Role: RoleAssistant, Content: "reply"},
			{Role: RoleUser, Content: "second"},
		},
	})
	want := "sys\n\nuser: first\nassistant: reply\n\nsecond"
	if prompt != want {
		t.Errorf("Expected %q, got %q", want, prompt)
	}
}
