package provider

import (
	"context"
	"strings"
	"sync"
	"time"
)

// StubProvider replays canned responses. It is used by tests and by
// `--provider stub` for offline runs.
type StubProvider struct {
	mu        sync.Mutex
	Responses []Response
	Delay     time.Duration
	Err       error

	requests []Request
}

func NewStubProvider() *StubProvider {
	return &StubProvider{
		Responses: []Response{
			{
				Content: "Hello! I'm running offline, so my answers are canned. Ask me anything.",
				Usage:   Usage{PromptTokens: 40, CompletionTokens: 16, TotalTokens: 56},
			},
		},
	}
}

func (m *StubProvider) Chat(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Responses) == 0 {
		return &Response{Content: "I have nothing more to add.", Usage: Usage{}}, nil
	}
	resp := m.Responses[0]
	if len(m.Responses) > 1 {
		m.Responses = m.Responses[1:]
	}
	return &resp, nil
}

// Stream emits the canned response word by word.
func (m *StubProvider) Stream(ctx context.Context, req Request, fn StreamFunc) (*Response, error) {
	resp, err := m.Chat(ctx, req)
	if err != nil {
		return nil, err
	}

	words := strings.SplitAfter(resp.Content, " ")
	for _, w := range words {
		if w == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := fn(w); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (m *StubProvider) Name() string {
	return "stub"
}

// Requests returns every request received so far.
func (m *StubProvider) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
