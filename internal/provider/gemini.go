package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if model == "" {
		model = "gemini-1.5-flash"
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

// session prepares a chat session whose history holds every message but
// the last; the last one is returned to be sent.
func (p *GeminiProvider) session(req Request) (*genai.ChatSession, genai.Part, error) {
	if len(req.Messages) == 0 {
		return nil, nil, errors.New("gemini: no messages to send")
	}

	model := p.client.GenerativeModel(p.model)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	cs := model.StartChat()
	for _, m := range req.Messages[:len(req.Messages)-1] {
		cs.History = append(cs.History, geminiContent(m))
	}

	last := req.Messages[len(req.Messages)-1]
	return cs, genai.Text(last.Content), nil
}

func geminiContent(m Message) *genai.Content {
	role := "user"
	if m.Role == RoleAssistant {
		role = "model"
	}
	return &genai.Content{
		Role:  role,
		Parts: []genai.Part{genai.Text(m.Content)},
	}
}

func (p *GeminiProvider) Chat(ctx context.Context, req Request) (*Response, error) {
	cs, part, err := p.session(req)
	if err != nil {
		return nil, err
	}

	resp, err := cs.SendMessage(ctx, part)
	if err != nil {
		return nil, fmt.Errorf("gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned")
	}

	return &Response{
		Content: geminiText(resp),
		Usage:   geminiUsage(resp),
	}, nil
}

func (p *GeminiProvider) Stream(ctx context.Context, req Request, fn StreamFunc) (*Response, error) {
	cs, part, err := p.session(req)
	if err != nil {
		return nil, err
	}

	iter := cs.SendMessageStream(ctx, part)
	var sb strings.Builder
	var usage Usage
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gemini stream failed: %w", err)
		}

		if u := geminiUsage(resp); u.TotalTokens > 0 {
			usage = u
		}
		delta := geminiText(resp)
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if err := fn(delta); err != nil {
			return nil, err
		}
	}

	return &Response{Content: sb.String(), Usage: usage}, nil
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

func geminiUsage(resp *genai.GenerateContentResponse) Usage {
	if resp.UsageMetadata == nil {
		return Usage{}
	}
	return Usage{
		PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
		CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
	}
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}
