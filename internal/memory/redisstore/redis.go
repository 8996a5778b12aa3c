// Package redisstore keeps memories in a Redis list so several clients can
// share one memory store.
//
// Data layout:
//   - Key: "{prefix}:memories"
//   - Type: List, RPUSH order (oldest first)
//   - Value: JSON({id, content, created_at})
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/recall/internal/memory"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "recall"

type Store struct {
	client *redis.Client
	key    string
}

type record struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// New connects to the Redis server at redisURL.
func New(redisURL, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewWithClient(redis.NewClient(opts), prefix), nil
}

func NewWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		client: client,
		key:    prefix + ":memories",
	}
}

func (s *Store) ListMemories(ctx context.Context) ([]memory.Item, error) {
	values, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read memories: %w", err)
	}

	items := make([]memory.Item, 0, len(values))
	for _, v := range values {
		var rec record
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			// Skip entries written by something else.
			continue
		}
		items = append(items, memory.Item{
			ID:        rec.ID,
			Content:   rec.Content,
			CreatedAt: time.UnixMilli(rec.CreatedAt),
		})
	}
	return items, nil
}

func (s *Store) AddMemory(ctx context.Context, content string) (memory.Item, error) {
	content, err := memory.Normalize(content)
	if err != nil {
		return memory.Item{}, err
	}

	rec := record{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return memory.Item{}, fmt.Errorf("failed to encode memory: %w", err)
	}

	if err := s.client.RPush(ctx, s.key, string(data)).Err(); err != nil {
		return memory.Item{}, fmt.Errorf("failed to store memory: %w", err)
	}

	return memory.Item{ID: rec.ID, Content: rec.Content, CreatedAt: time.UnixMilli(rec.CreatedAt)}, nil
}

func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	values, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to read memories: %w", err)
	}

	for _, v := range values {
		var rec record
		if err := json.Unmarshal([]byte(v), &rec); err != nil || rec.ID != id {
			continue
		}
		if err := s.client.LRem(ctx, s.key, 1, v).Err(); err != nil {
			return fmt.Errorf("failed to delete memory: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", memory.ErrMemoryNotFound, id)
}

func (s *Store) ClearMemories(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear memories: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
