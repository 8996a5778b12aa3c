package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/felixgeelhaar/recall/internal/attach"
	"github.com/felixgeelhaar/recall/internal/guard"
	"github.com/felixgeelhaar/recall/internal/memory"
	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/provider"
	"github.com/felixgeelhaar/recall/internal/store"
	"github.com/felixgeelhaar/recall/internal/ui"
)

const titleRunes = 40

var ErrEmptyMessage = errors.New("message is empty")

// Options tune every request the service sends.
type Options struct {
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	MemoryLimit  int
}

// Reply is the outcome of one turn.
type Reply struct {
	ChatID      string
	MessageID   int64
	Content     string
	Memories    []string
	Attachments []attach.Preview
	Usage       provider.Usage
}

// Service runs chat turns: it injects ranked memories, persists the
// exchange and streams the reply to the UI.
type Service struct {
	store     store.Storage
	memories  memory.Source
	retriever *memory.Retriever
	provider  provider.Provider
	guard     *guard.Guard
	ingestor  *attach.Ingestor
	observe   *observe.Observer
	bus       *EventBus
	turns     *TurnTracker
	ui        ui.UI
	opts      Options
}

// New wires a service. mem may differ from s when memories live elsewhere.
func New(s store.Storage, mem memory.Source, p provider.Provider, g *guard.Guard, o *observe.Observer, opts Options) *Service {
	if mem == nil {
		mem = s
	}
	return &Service{
		store:     s,
		memories:  mem,
		retriever: memory.NewRetriever(mem, opts.MemoryLimit),
		provider:  p,
		guard:     g,
		ingestor:  attach.NewIngestor(s, g),
		observe:   o,
		bus:       NewEventBus(),
		turns:     NewTurnTracker(),
		ui:        ui.SilentUI{},
		opts:      opts,
	}
}

func (s *Service) SetUI(u ui.UI) {
	if u != nil {
		s.ui = u
	}
}

// Events exposes the bus so callers can follow turns.
func (s *Service) Events() *EventBus {
	return s.bus
}

func (s *Service) Provider() provider.Provider {
	return s.provider
}

// NewChat creates an empty chat.
func (s *Service) NewChat(ctx context.Context) (*store.Chat, error) {
	now := time.Now()
	chat := &store.Chat{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]string{"provider": s.provider.Name()},
	}
	if err := s.store.CreateChat(chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	s.observe.Log().Info().Str("chat", chat.ID).Msg("chat created")
	return chat, nil
}

// Send runs a single turn on the chat with optional file attachments.
func (s *Service) Send(ctx context.Context, chatID, text string, files []string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(files) == 0 {
		return nil, ErrEmptyMessage
	}
	if v := s.guard.CheckMessage(text); v != nil {
		return nil, v
	}

	release, err := s.turns.Begin(chatID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := s.observe.StartSpan(ctx, "chat.Send",
		attribute.String("chat", chatID),
		attribute.String("provider", s.provider.Name()))
	defer span.End()

	log := s.observe.Log().With().Str("chat", chatID).Logger()
	log.Debug().Int("active_turns", s.turns.Count()).Msg("turn started")
	s.bus.PublishWithData(EventTurnStart, chatID, map[string]any{"attachments": len(files)})

	reply, err := s.send(ctx, chatID, text, files)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Msg("turn failed")
		s.bus.PublishWithData(EventTurnError, chatID, map[string]any{"error": err.Error()})
		s.ui.UpdateStatus("error")
		return nil, err
	}

	elapsed := time.Since(s.turns.Since(chatID)).Milliseconds()
	log.Info().
		Int("memories", len(reply.Memories)).
		Int("tokens", reply.Usage.TotalTokens).
		Int("elapsed_ms", int(elapsed)).
		Msg("turn complete")
	s.bus.PublishWithData(EventTurnComplete, chatID, map[string]any{
		"message_id": reply.MessageID,
		"tokens":     reply.Usage.TotalTokens,
		"elapsed_ms": elapsed,
	})
	return reply, nil
}

func (s *Service) send(ctx context.Context, chatID, text string, files []string) (*Reply, error) {
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}

	s.ui.UpdateStatus("reading attachments")
	previews, err := s.ingestor.Ingest(ctx, chatID, files)
	if err != nil {
		return nil, err
	}
	for _, p := range previews {
		s.bus.PublishWithData(EventAttachmentIngested, chatID, map[string]any{
			"id":   p.AttachmentID,
			"name": p.Name,
			"size": p.Size,
		})
	}

	memories, err := s.retriever.Retrieve(ctx, text)
	if err != nil {
		// A broken memory source degrades the turn instead of failing it.
		s.observe.Log().Warn().Str("chat", chatID).Err(err).Msg("memory retrieval failed")
		memories = nil
	}
	if len(memories) > 0 {
		s.ui.Log(fmt.Sprintf("%d memories injected", len(memories)))
		s.bus.PublishWithData(EventMemoriesInjected, chatID, map[string]any{
			"count":    len(memories),
			"memories": memories,
		})
	}

	userMsg := &store.Message{
		ChatID:    chatID,
		Role:      store.RoleUser,
		Content:   userContent(text, previews),
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendMessage(userMsg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	history, err := s.store.ListMessages(chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	history = history[s.guard.HistoryWindow(len(history)):]

	req := provider.Request{
		System:      memory.BuildInstruction(s.opts.SystemPrompt, memories),
		Messages:    toProviderMessages(history),
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	}

	s.ui.UpdateStatus("thinking")
	resp, err := s.provider.Stream(ctx, req, func(delta string) error {
		s.ui.Chunk(delta)
		s.bus.PublishWithData(EventProviderChunk, chatID, map[string]any{"delta": delta})
		return nil
	})
	s.ui.EndReply()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.provider.Name(), err)
	}

	assistantMsg := &store.Message{
		ChatID:    chatID,
		Role:      store.RoleAssistant,
		Content:   resp.Content,
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendMessage(assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to save reply: %w", err)
	}

	if chat.Title == "" {
		chat.Title = Title(titleSource(text, previews))
		if err := s.store.UpdateChat(chat); err != nil {
			s.observe.Log().Warn().Str("chat", chatID).Err(err).Msg("failed to set chat title")
		}
	}
	s.ui.UpdateStatus("ready")

	return &Reply{
		ChatID:      chatID,
		MessageID:   assistantMsg.ID,
		Content:     resp.Content,
		Memories:    memories,
		Attachments: previews,
		Usage:       resp.Usage,
	}, nil
}

func userContent(text string, previews []attach.Preview) string {
	parts := make([]string, 0, len(previews)+1)
	if text != "" {
		parts = append(parts, text)
	}
	for _, p := range previews {
		parts = append(parts, p.Context())
	}
	return strings.Join(parts, "\n\n")
}

func toProviderMessages(history []*store.Message) []provider.Message {
	out := make([]provider.Message, 0, len(history))
	for _, m := range history {
		out = append(out, provider.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func titleSource(text string, previews []attach.Preview) string {
	if text == "" && len(previews) > 0 {
		return previews[0].Name
	}
	return text
}

// Title derives a chat title from the first user message.
func Title(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= titleRunes {
		return text
	}
	return string([]rune(text)[:titleRunes]) + "…"
}

// Remember stores a new fact about the user.
func (s *Service) Remember(ctx context.Context, fact string) (memory.Item, error) {
	item, err := s.memories.AddMemory(ctx, fact)
	if err != nil {
		return memory.Item{}, err
	}
	s.observe.Log().Info().Str("memory", item.ID).Msg("memory stored")
	return item, nil
}

func (s *Service) Forget(ctx context.Context, id string) error {
	return s.memories.DeleteMemory(ctx, id)
}

func (s *Service) Memories(ctx context.Context) ([]memory.Item, error) {
	return s.memories.ListMemories(ctx)
}

func (s *Service) History(chatID string) ([]*store.Message, error) {
	return s.store.ListMessages(chatID)
}
