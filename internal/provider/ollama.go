package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/ollama/ollama/api"
)

const ollamaDefaultHost = "http://localhost:11434"

type OllamaProvider struct {
	client *api.Client
	model  string
}

// NewOllamaProvider talks to the local Ollama daemon, honoring OLLAMA_HOST.
func NewOllamaProvider(model string) (*OllamaProvider, error) {
	if model == "" {
		model = "llama3.2"
	}

	baseURL := ollamaDefaultHost
	if envURL := os.Getenv("OLLAMA_HOST"); envURL != "" {
		baseURL = envURL
	}
	uri, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", baseURL, err)
	}

	return &OllamaProvider{
		client: api.NewClient(uri, http.DefaultClient),
		model:  model,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) request(req Request, stream bool) *api.ChatRequest {
	msgs := make([]api.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, api.Message{Role: RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, api.Message{Role: m.Role, Content: m.Content})
	}

	opts := map[string]any{}
	if req.Temperature > 0 {
		opts["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}

	return &api.ChatRequest{
		Model:    p.model,
		Messages: msgs,
		Stream:   &stream,
		Options:  opts,
	}
}

func (p *OllamaProvider) Chat(ctx context.Context, req Request) (*Response, error) {
	return p.Stream(ctx, req, nil)
}

// Stream with a nil fn issues a non-streaming request.
func (p *OllamaProvider) Stream(ctx context.Context, req Request, fn StreamFunc) (*Response, error) {
	var sb strings.Builder
	var usage Usage

	err := p.client.Chat(ctx, p.request(req, fn != nil), func(resp api.ChatResponse) error {
		if delta := resp.Message.Content; delta != "" {
			sb.WriteString(delta)
			if fn != nil {
				if err := fn(delta); err != nil {
					return err
				}
			}
		}
		if resp.Done {
			usage = Usage{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}

	return &Response{
		Content: sb.String(),
		Usage:   usage,
	}, nil
}
