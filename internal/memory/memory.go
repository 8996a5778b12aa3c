package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyMemory    = errors.New("memory content is empty")
	ErrMemoryNotFound = errors.New("memory not found")
)

// Source is a persistent, ordered collection of user facts.
type Source interface {
	// ListMemories returns every stored memory, oldest first.
	ListMemories(ctx context.Context) ([]Item, error)

	// AddMemory appends a fact and returns the stored item.
	AddMemory(ctx context.Context, content string) (Item, error)

	// DeleteMemory removes the memory with the given ID.
	DeleteMemory(ctx context.Context, id string) error

	// ClearMemories removes every stored memory.
	ClearMemories(ctx context.Context) error
}

// Item represents a unit of memory.
type Item struct {
	ID        string
	Content   string
	CreatedAt time.Time
}

// Normalize trims a fact and rejects blank input.
func Normalize(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyMemory
	}
	return content, nil
}

// Contents returns the text of each item, preserving order.
func Contents(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Content
	}
	return out
}

// Retriever selects memories from a Source for a given query.
type Retriever struct {
	Source Source
	Limit  int
}

func NewRetriever(src Source, limit int) *Retriever {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Retriever{Source: src, Limit: limit}
}

// Retrieve ranks every stored memory against query.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]string, error) {
	items, err := r.Source.ListMemories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	return Rank(query, Contents(items), r.Limit), nil
}
